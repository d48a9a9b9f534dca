// Package logger provides the file writers behind the session loggers.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator writes to a log file and rewrites it with only the newest
// maxLines lines once twice that many have been written.
type LogRotator struct {
	file     *os.File
	buffer   *RingBuffer
	filePath string
	mutex    sync.Mutex
}

// NewLogRotator opens filePath for appending. A maxLines of zero or less
// disables rotation.
func NewLogRotator(filePath string, maxLines int) (*LogRotator, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", filePath, err)
	}

	w := &LogRotator{
		file:     file,
		filePath: filePath,
	}

	if maxLines > 0 {
		w.buffer = NewRingBuffer(maxLines)
	}

	return w, nil
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	n, err := w.file.Write(p)
	if err != nil || w.buffer == nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.buffer.Add(line)

		if w.buffer.totalSeen >= w.buffer.capacity*2 {
			if err := w.rotate(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}

			w.buffer.totalSeen = w.buffer.Len()
		}
	}

	return n, nil
}

// Sync flushes the file.
func (w *LogRotator) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.file.Sync()
}

// Close closes the file.
func (w *LogRotator) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.file.Close()
}

// rotate replaces the file with the buffered lines.
func (w *LogRotator) rotate() error {
	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "temp-log-")
	if err != nil {
		return err
	}

	tempPath := temp.Name()

	content := strings.Join(w.buffer.Lines(), "\n") + "\n"
	if _, err := temp.WriteString(content); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	w.file.Close()

	if err := os.Rename(tempPath, w.filePath); err != nil {
		return err
	}

	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w.file = file

	return nil
}
