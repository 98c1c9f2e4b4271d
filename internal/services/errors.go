package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/booklister/internal/shared"
)

// APIError is a non-2xx response. Fields hold whatever the body carried under error, detail, and message.
type APIError struct {
	StatusCode int
	ErrorText  string
	Detail     string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	msg := e.UserMessage()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, msg)
}

// Unwrap lets callers match [shared.ErrAPIRequest].
func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// Structured reports whether the body supplied any error text.
func (e *APIError) Structured() bool {
	return e.UserMessage() != ""
}

// UserMessage returns detail, then message, then error, whichever is set first.
func (e *APIError) UserMessage() string {
	for _, s := range []string{e.Detail, e.Message, e.ErrorText} {
		if s != "" {
			return s
		}
	}
	return ""
}

// AsAPIError unwraps err to an [*APIError].
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Detail  json.RawMessage `json:"detail"`
	Message json.RawMessage `json:"message"`
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: body}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.ErrorText = text(eb.Error)
		apiErr.Detail = text(eb.Detail)
		apiErr.Message = text(eb.Message)
	}
	return apiErr
}

// text renders a JSON value as a message. Strings are unquoted; booleans and null carry no text; arrays and
// objects (such as validation error lists) are compacted.
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	case 't', 'f', 'n':
		return ""
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	}
	return string(raw)
}
