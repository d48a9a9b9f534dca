// Package announcement turns affiliate announcement embeds into the messages
// posted in the public affiliates channel.
package announcement

import "github.com/disgoorg/snowflake/v2"

// Item is one message fetched from the source channel.
type Item struct {
	ID    snowflake.ID
	Embed *Embed // First embed of the message, nil when it has none
}

// Embed holds the parts of a Discord embed the mirror reads.
// Discord omits empty attributes, so an empty string means the attribute is absent.
type Embed struct {
	Title       string
	Description string
	URL         string
	Footer      string
	Fields      []Field
}

// Field is a named embed field.
type Field struct {
	Name  string
	Value string
}
