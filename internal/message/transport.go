// ABOUTME: Recipient, sender action, acknowledgement and profile types
// ABOUTME: Shared by the chat session and the transports that implement it

package message

// Recipient addresses a platform user. ID is the page-scoped id; UserRef
// is set instead for checkbox plugin opt-ins that have no id yet.
type Recipient struct {
	ID      string `json:"id,omitempty"`
	UserRef string `json:"user_ref,omitempty"`
}

// Key returns the stable identity used to key per-user state.
func (r Recipient) Key() string {
	if r.ID != "" {
		return r.ID
	}
	if r.UserRef != "" {
		return "ref:" + r.UserRef
	}
	return ""
}

// IsZero reports whether the recipient has no identity.
func (r Recipient) IsZero() bool {
	return r.ID == "" && r.UserRef == ""
}

// Action is a sender action that carries no content.
type Action string

const (
	ActionMarkSeen  Action = "mark_seen"
	ActionTypingOn  Action = "typing_on"
	ActionTypingOff Action = "typing_off"
)

// Valid reports whether the action is one the platform accepts.
func (a Action) Valid() bool {
	switch a {
	case ActionMarkSeen, ActionTypingOn, ActionTypingOff:
		return true
	}
	return false
}

// Ack is the transport acknowledgement of a send.
type Ack struct {
	RecipientID string `json:"recipient_id,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
}

// Profile holds the user profile fields a transport returns.
type Profile struct {
	ID         string  `json:"id,omitempty"`
	FirstName  string  `json:"first_name,omitempty"`
	LastName   string  `json:"last_name,omitempty"`
	ProfilePic string  `json:"profile_pic,omitempty"`
	Locale     string  `json:"locale,omitempty"`
	Timezone   float64 `json:"timezone,omitempty"`
	Gender     string  `json:"gender,omitempty"`

	// Instagram
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

// Profile field sets.
var (
	MessengerProfileFields = []string{"first_name", "last_name", "profile_pic", "locale", "timezone", "gender"}
	InstagramProfileFields = []string{"name", "username", "profile_pic"}
)
