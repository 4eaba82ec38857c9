// ABOUTME: Error types for chat sessions and conversations
// ABOUTME: CallbackError wraps application callback failures with their role

package chat

import (
	"errors"
	"fmt"

	"github.com/2389/coven-bot/internal/event"
)

var (
	// ErrConversationEnded is returned when asking on an ended conversation.
	ErrConversationEnded = errors.New("conversation ended")

	// ErrNoAnswerCallback is returned when Ask is given a nil answer callback.
	ErrNoAnswerCallback = errors.New("answer callback is required")

	// ErrNoUserID is returned for profile lookups on recipients known only by user_ref.
	ErrNoUserID = errors.New("recipient has no user id")

	// ErrInvalidAction is returned for sender actions the platform does not accept.
	ErrInvalidAction = errors.New("invalid sender action")
)

// Callback roles.
const (
	RoleAnswer  = "answer"
	RoleAux     = "aux"
	RoleOn      = "on"
	RoleHear    = "hear"
	RoleReceipt = "receipt"
)

// CallbackError wraps an error returned by an application callback.
type CallbackError struct {
	Role string
	Type event.Type
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s callback for %s: %v", e.Role, e.Type, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
