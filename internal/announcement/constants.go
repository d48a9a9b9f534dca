package announcement

const (
	// FriendsChatEmoji prefixes the friends chat line.
	FriendsChatEmoji = "<:friends_chat:1365351046159007786>"
	// DiscordEmoji prefixes the invite line.
	DiscordEmoji = "<:discord:1365342635228659765>"

	// ContactFieldName is the field listing the clan's contacts.
	ContactFieldName = "__Contact__"
)

// friendsChatFieldNames are the accepted spellings of the friends chat field.
// Some clans post the apostrophe variant.
var friendsChatFieldNames = []string{
	"__Friends Chat__",
	"__Friend's Chat__",
}
