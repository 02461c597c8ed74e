package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// User-facing messages for failures that carry no message from the backend
const (
	DefaultErrorMessage = "An unexpected error occurred"
	NetworkErrorMessage = "Unable to connect to the server. Please check your internet connection."
	TimeoutErrorMessage = "Request timed out. Please try again."
)

// Status codes used for failures that never produced an HTTP response
const (
	StatusNetworkError = 0
	StatusTimeout      = http.StatusRequestTimeout
)

// APIError is the single shape every failed backend call is converted into
type APIError struct {
	Message    string              `json:"message"`
	StatusCode int                 `json:"statusCode"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if e.StatusCode == StatusNetworkError {
		return e.Message
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// IsUnauthorized reports whether the backend rejected the credential
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// FieldErrors returns the validation messages for one field
func (e *APIError) FieldErrors(field string) []string {
	return e.Errors[field]
}

func (e *APIError) clone() *APIError {
	c := *e
	if e.Errors != nil {
		c.Errors = make(map[string][]string, len(e.Errors))
		for k, v := range e.Errors {
			c.Errors[k] = append([]string(nil), v...)
		}
	}
	return &c
}

// AsAPIError unwraps err into an *APIError if it is one
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// errorFromResponse builds an APIError from an HTTP error response.
// A JSON body with a message wins; otherwise the default message is used.
func errorFromResponse(status int, body []byte) *APIError {
	apiErr := &APIError{
		Message:    DefaultErrorMessage,
		StatusCode: status,
	}
	if status == 0 {
		apiErr.StatusCode = http.StatusInternalServerError
	}

	if len(body) == 0 || !gjson.ValidBytes(body) {
		return apiErr
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return apiErr
	}

	if msg := messageFrom(res.Get("message")); msg != "" {
		apiErr.Message = msg
	}

	if errs := res.Get("errors"); errs.IsObject() {
		fieldErrors := make(map[string][]string)
		errs.ForEach(func(key, value gjson.Result) bool {
			switch {
			case value.IsArray():
				var msgs []string
				for _, v := range value.Array() {
					msgs = append(msgs, v.String())
				}
				fieldErrors[key.String()] = msgs
			case value.Type == gjson.String:
				fieldErrors[key.String()] = []string{value.Str}
			default:
				var msgs []string
				if err := json.Unmarshal([]byte(value.Raw), &msgs); err == nil {
					fieldErrors[key.String()] = msgs
				}
			}
			return true
		})
		apiErr.Errors = fieldErrors
	}

	return apiErr
}

// messageFrom accepts a plain string or a list of strings (as some validation
// layers return) and flattens it
func messageFrom(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return strings.TrimSpace(v.Str)
	case v.IsArray():
		var parts []string
		for _, item := range v.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// errorFromTransport classifies a failure where no usable response exists.
// responded is true when headers were received before the failure.
func errorFromTransport(err error, responded bool) *APIError {
	switch {
	case isTimeout(err):
		return &APIError{Message: TimeoutErrorMessage, StatusCode: StatusTimeout}
	case errors.Is(err, context.Canceled):
		return &APIError{Message: DefaultErrorMessage, StatusCode: http.StatusInternalServerError}
	case !responded:
		return &APIError{Message: NetworkErrorMessage, StatusCode: StatusNetworkError}
	default:
		return &APIError{Message: DefaultErrorMessage, StatusCode: http.StatusInternalServerError}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
