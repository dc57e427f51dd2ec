package repository

import "github.com/sakif/vaccine-portal/internal/model"

// SINGLE-TABLE KEY SCHEME:
// Every record lives in one table under a composite (PK, SK) key. The
// prefix tells the record type apart:
//
//	user profile   PK=USER#<email>      SK=PROFILE#<email>
//	oauth link     PK=USER#<email>      SK=OAUTH#<provider>
//	chat session   PK=USER#<userID>     SK=CHAT#<sessionID>
//	chat message   PK=CHAT#<sessionID>  SK=MSG#<messageID>
//
// All key construction goes through these helpers. Writing keys by hand
// elsewhere is how a profile ends up stored under a key its reader never
// asks for.
const (
	UserPrefix    = "USER#"
	ProfilePrefix = "PROFILE#"
	OAuthPrefix   = "OAUTH#"
	ChatPrefix    = "CHAT#"
	MessagePrefix = "MSG#"
)

// Key is a composite primary key.
type Key struct {
	PK string
	SK string
}

func UserKey(email string) Key {
	return Key{PK: UserPrefix + email, SK: ProfilePrefix + email}
}

func OAuthKey(email string, provider model.Provider) Key {
	return Key{PK: UserPrefix + email, SK: OAuthPrefix + string(provider)}
}

func ChatSessionKey(userID, sessionID string) Key {
	return Key{PK: UserPrefix + userID, SK: ChatPrefix + sessionID}
}

func ChatMessageKey(sessionID, messageID string) Key {
	return Key{PK: ChatPrefix + sessionID, SK: MessagePrefix + messageID}
}

// UserPartition is the partition holding a user's profile, links and sessions.
func UserPartition(email string) string {
	return UserPrefix + email
}

// ChatPartition is the partition holding a session's messages.
func ChatPartition(sessionID string) string {
	return ChatPrefix + sessionID
}
