// ABOUTME: Graph API error type decoded from platform error responses
// ABOUTME: Includes throttling detection by platform error code

package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoPageToken is returned by New when no page access token is configured.
var ErrNoPageToken = errors.New("page access token is required")

// Error is a failed Graph API call.
type Error struct {
	StatusCode int
	Code       int
	Subcode    int
	Type       string
	Message    string
	TraceID    string
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("graph api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("graph api: status %d: %s (code %d, type %s, trace %s)",
		e.StatusCode, e.Message, e.Code, e.Type, e.TraceID)
}

// Platform throttling codes.
var rateLimitCodes = map[int]bool{
	4:   true, // application request limit
	17:  true, // user request limit
	32:  true, // page request limit
	613: true, // calls exceed rate limit
}

// IsRateLimited reports whether err is a Graph API throttling error.
func IsRateLimited(err error) bool {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.StatusCode == http.StatusTooManyRequests || rateLimitCodes[gerr.Code]
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

func decodeError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		e.Message = string(body)
		return e
	}
	e.Code = env.Error.Code
	e.Subcode = env.Error.Subcode
	e.Type = env.Error.Type
	e.Message = env.Error.Message
	e.TraceID = env.Error.FBTraceID
	return e
}
