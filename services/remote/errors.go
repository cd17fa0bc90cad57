package remotesvc

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
)

// Error is a non-2xx answer of the API.
type Error struct {
	StatusCode int
	Message    string
	// Fields holds the validation errors, by JSON field name.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		msgs := make([]string, 0, len(names))
		for _, name := range names {
			msgs = append(msgs, name+": "+e.Fields[name])
		}
		return strings.Join(msgs, "; ")
	}
	return strings.ToLower(http.StatusText(e.StatusCode))
}

// newError decodes the error bodies written by the API: {"error": msg}, echo's
// {"message": msg} or a {field: msg} map.
func newError(resp *rest.Response) *Error {
	e := &Error{StatusCode: resp.StatusCode}
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		e.Message = strings.TrimSpace(resp.Body)
		return e
	}
	for _, key := range []string{"error", "message"} {
		if msg, ok := body[key].(string); ok && len(body) == 1 {
			e.Message = msg
			return e
		}
	}
	e.Fields = make(map[string]string, len(body))
	for name, val := range body {
		if msg, ok := val.(string); ok {
			e.Fields[name] = msg
		}
	}
	return e
}

// StatusCode returns the HTTP status of an API error, 0 for any other error.
func StatusCode(err error) int {
	var rErr *Error
	if errors.As(err, &rErr) {
		return rErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool     { return StatusCode(err) == http.StatusNotFound }
func IsConflict(err error) bool     { return StatusCode(err) == http.StatusConflict }
func IsForbidden(err error) bool    { return StatusCode(err) == http.StatusForbidden }
func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }
