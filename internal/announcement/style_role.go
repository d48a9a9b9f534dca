//go:build !contactsheading

package announcement

// DefaultContactStyle is the contact header style compiled into this build.
// Build with -tags contactsheading for the plain heading.
const DefaultContactStyle = ContactStyleRoleHeader
