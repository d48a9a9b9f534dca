package mirror

import "errors"

var (
	// ErrFetchHistory aborts a run before anything is processed.
	ErrFetchHistory = errors.New("failed to fetch announcement history")
	// ErrSendMessage is recorded when one mirrored message could not be posted.
	ErrSendMessage = errors.New("failed to send message")
	// ErrRoleOperation is recorded when adding or removing the role for one user fails.
	ErrRoleOperation = errors.New("failed to update affiliate role")
	// ErrSnapshot aborts a run when the stored affiliate set could not be swapped.
	ErrSnapshot = errors.New("failed to swap affiliate snapshot")
	// errDryRun rolls back the snapshot transaction of a dry run.
	errDryRun = errors.New("dry run")
)
