//go:build contactsheading

package announcement

// DefaultContactStyle is the contact header style compiled into this build.
const DefaultContactStyle = ContactStyleHeading
