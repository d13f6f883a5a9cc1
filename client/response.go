package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
)

// Response is what the backend answered. Non-2xx answers are returned as a
// Response too; callers branch on Status and Message.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte          // Raw body, always set
	Data      json.RawMessage // responseData of the JSON envelope
	Message   string
	ErrorCode string
	Success   bool
}

type envelope struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	ErrorCode    string          `json:"errorCode"`
	ResponseData json.RawMessage `json:"responseData"`
}

func newResponse(resp *http.Response, body []byte, rt ResponseType) *Response {
	r := &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}
	if rt == ResponseBlob && r.OK() {
		return r
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		r.Success = env.Success
		r.Message = env.Message
		r.ErrorCode = env.ErrorCode
		r.Data = env.ResponseData
	}
	return r
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the envelope's responseData into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return fmt.Errorf("response has no data: %w", gwerrors.ErrUnexpectedResponse)
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decoding response data: %w: %w", gwerrors.ErrUnexpectedResponse, err)
	}
	return nil
}

// Err converts a non-2xx or unsuccessful response into an error carrying the
// backend's message, or nil.
func (r *Response) Err() error {
	if r.OK() && (r.Success || r.Message == "") {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = http.StatusText(r.Status)
	}
	return &APIError{Status: r.Status, Message: msg, Code: r.ErrorCode}
}

// APIError is a backend rejection.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("received %d from API server: %s", e.Status, e.Message)
}

// Unwrap maps 401 and 403 to ErrNotAuthorized.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return gwerrors.ErrNotAuthorized
	}
	return nil
}
