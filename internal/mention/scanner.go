// Package mention finds Discord user mention tokens in free text.
package mention

import (
	"regexp"
	"strconv"

	"github.com/disgoorg/snowflake/v2"
)

// userMentionPattern matches <@id> and the legacy nickname form <@!id>.
var userMentionPattern = regexp.MustCompile(`<@!?(\d{17,19})>`)

// Scan returns the user IDs of every mention token in text, in order of appearance.
// Duplicates are kept. Text without a well-formed token yields an empty slice.
func Scan(text string) []string {
	matches := userMentionPattern.FindAllStringSubmatch(text, -1)

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, match[1])
	}

	return ids
}

// ScanIDs is Scan with the results parsed into snowflake IDs.
// Tokens above the signed 64-bit range are not valid snowflakes and are dropped.
func ScanIDs(text string) []snowflake.ID {
	raw := Scan(text)

	ids := make([]snowflake.ID, 0, len(raw))
	for _, id := range raw {
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}

		ids = append(ids, snowflake.ID(parsed))
	}

	return ids
}

// User renders a user mention token.
func User(id snowflake.ID) string {
	return "<@" + id.String() + ">"
}

// Role renders a role mention token.
func Role(id snowflake.ID) string {
	return "<@&" + id.String() + ">"
}
