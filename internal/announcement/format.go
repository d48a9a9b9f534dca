package announcement

import (
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/mention"
)

// ContactStyle selects the header rendered above the contacts list.
type ContactStyle int

const (
	// ContactStyleRoleHeader renders the affiliate role mention as the header.
	ContactStyleRoleHeader ContactStyle = iota
	// ContactStyleHeading renders a plain "Contacts" heading.
	ContactStyleHeading
)

// String returns the name of the style.
func (s ContactStyle) String() string {
	switch s {
	case ContactStyleRoleHeader:
		return "role_header"
	case ContactStyleHeading:
		return "heading"
	default:
		return "unknown"
	}
}

// Formatter renders extracted fields into the mirrored message content.
type Formatter struct {
	Style  ContactStyle
	RoleID snowflake.ID
}

// NewFormatter creates a formatter using the contact style selected at build time.
func NewFormatter(roleID snowflake.ID) *Formatter {
	return &Formatter{
		Style:  DefaultContactStyle,
		RoleID: roleID,
	}
}

// Format builds the message content. Sections always appear in the order
// heading, body, custom fields, contacts, footnote, with a blank line between blocks.
func (f *Formatter) Format(fields Fields) string {
	var b strings.Builder

	b.WriteString("## ")
	b.WriteString(fields.Heading)
	b.WriteString("\n")
	b.WriteString(fields.Body)

	if custom := customFieldLines(fields); len(custom) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(custom, "\n"))
	}

	if contacts := contactLines(fields.Contact); len(contacts) > 0 {
		b.WriteString("\n\n")
		b.WriteString(f.contactHeader())
		b.WriteString("\n")
		b.WriteString(strings.Join(contacts, "\n"))
	}

	if fields.Footnote != "" {
		b.WriteString("\n\n-# ")
		b.WriteString(fields.Footnote)
	}

	return b.String()
}

// contactHeader returns the line shown above the contacts list.
func (f *Formatter) contactHeader() string {
	if f.Style == ContactStyleHeading {
		return "__Contacts__"
	}

	return "__" + mention.Role(f.RoleID) + "__"
}

// customFieldLines builds the friends chat and invite lines, friends chat first.
func customFieldLines(fields Fields) []string {
	var lines []string

	if fields.FriendsChat != "" {
		lines = append(lines, FriendsChatEmoji+" **Friends Chat**: `"+fields.FriendsChat+"`")
	}

	if fields.InviteURL != "" {
		lines = append(lines, DiscordEmoji+" **Discord**: "+fields.InviteURL)
	}

	return lines
}

// contactLines renders one list entry per mention found in the contact field.
// Entries are rendered from the parsed IDs so they match the role grants.
func contactLines(contact string) []string {
	if contact == "" {
		return nil
	}

	ids := mention.ScanIDs(contact)

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, "- "+mention.User(id))
	}

	return lines
}
