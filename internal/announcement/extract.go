package announcement

import (
	"slices"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/mention"
)

// Fields are the values extracted from an actionable announcement.
// Optional values are empty when absent.
type Fields struct {
	Heading     string
	Body        string
	FriendsChat string
	Contact     string
	InviteURL   string
	Footnote    string
}

// Extract pulls the fields out of an item. It returns false when the item has
// no embed or is missing its title or description.
func Extract(item Item) (Fields, bool) {
	embed := item.Embed
	if embed == nil || embed.Title == "" || embed.Description == "" {
		return Fields{}, false
	}

	fields := Fields{
		Heading:   embed.Title,
		Body:      embed.Description,
		InviteURL: embed.URL,
		Footnote:  embed.Footer,
	}

	if field, ok := findField(embed.Fields, friendsChatFieldNames...); ok {
		fields.FriendsChat = field.Value
	}

	if field, ok := findField(embed.Fields, ContactFieldName); ok {
		fields.Contact = field.Value
	}

	return fields, true
}

// ContactIDs returns the users mentioned in the contact field.
func (f Fields) ContactIDs() []snowflake.ID {
	if f.Contact == "" {
		return nil
	}

	return mention.ScanIDs(f.Contact)
}

// findField returns the first field whose name is one of names.
func findField(fields []Field, names ...string) (Field, bool) {
	for _, field := range fields {
		if slices.Contains(names, field.Name) {
			return field, true
		}
	}

	return Field{}, false
}
