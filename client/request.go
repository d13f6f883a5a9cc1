package client

import (
	"maps"
	"time"
)

// AuthType selects the credential a request carries.
type AuthType int

const (
	AuthBearer AuthType = iota // Authorization: Bearer <access token>
	AuthNone                   // No credentials at all
	AuthCookie                 // Cookie jar only, used by refresh and logout
)

func (a AuthType) String() string {
	switch a {
	case AuthBearer:
		return "bearer"
	case AuthNone:
		return "none"
	case AuthCookie:
		return "cookie"
	}
	return "unknown"
}

// ResponseType selects how the response body is treated.
type ResponseType int

const (
	ResponseJSON ResponseType = iota
	ResponseBlob
)

// ProgressFunc is called as the request body is sent. total is -1 when the
// body size is not known up front.
type ProgressFunc func(sent, total int64)

// RequestConfig describes one HTTP call. The With methods return modified
// copies, so a config handed to the dispatcher is never changed afterwards.
type RequestConfig struct {
	URL              string
	Method           string
	Body             any
	Headers          map[string]string
	AuthType         AuthType
	Params           map[string]string
	ResponseType     ResponseType
	Timeout          time.Duration
	OnUploadProgress ProgressFunc
}

// NewRequest returns a bearer-authenticated JSON request config.
func NewRequest(method, url string) RequestConfig {
	return RequestConfig{
		URL:    url,
		Method: method,
	}
}

func (c RequestConfig) clone() RequestConfig {
	c.Headers = maps.Clone(c.Headers)
	c.Params = maps.Clone(c.Params)
	return c
}

func (c RequestConfig) WithURL(url string) RequestConfig {
	c = c.clone()
	c.URL = url
	return c
}

func (c RequestConfig) WithMethod(method string) RequestConfig {
	c = c.clone()
	c.Method = method
	return c
}

// WithBody sets the request body. []byte, string and io.Reader bodies are sent
// as-is, anything else is encoded as JSON.
func (c RequestConfig) WithBody(body any) RequestConfig {
	c = c.clone()
	c.Body = body
	return c
}

func (c RequestConfig) WithHeader(key, value string) RequestConfig {
	c = c.clone()
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
	return c
}

func (c RequestConfig) WithHeaders(headers map[string]string) RequestConfig {
	c = c.clone()
	if c.Headers == nil {
		c.Headers = make(map[string]string, len(headers))
	}
	maps.Copy(c.Headers, headers)
	return c
}

func (c RequestConfig) WithAuth(auth AuthType) RequestConfig {
	c = c.clone()
	c.AuthType = auth
	return c
}

func (c RequestConfig) WithParam(key, value string) RequestConfig {
	c = c.clone()
	if c.Params == nil {
		c.Params = make(map[string]string)
	}
	c.Params[key] = value
	return c
}

func (c RequestConfig) WithParams(params map[string]string) RequestConfig {
	c = c.clone()
	if c.Params == nil {
		c.Params = make(map[string]string, len(params))
	}
	maps.Copy(c.Params, params)
	return c
}

func (c RequestConfig) WithResponseType(rt ResponseType) RequestConfig {
	c = c.clone()
	c.ResponseType = rt
	return c
}

func (c RequestConfig) WithTimeout(d time.Duration) RequestConfig {
	c = c.clone()
	c.Timeout = d
	return c
}

func (c RequestConfig) WithUploadProgress(fn ProgressFunc) RequestConfig {
	c = c.clone()
	c.OnUploadProgress = fn
	return c
}

// RequestOption adjusts the config built by AuthenticatedRequest and
// UnauthenticatedRequest.
type RequestOption func(RequestConfig) RequestConfig

// AsBlob asks for the raw response body, e.g. for file downloads.
func AsBlob() RequestOption {
	return func(c RequestConfig) RequestConfig {
		return c.WithResponseType(ResponseBlob)
	}
}

func Header(key, value string) RequestOption {
	return func(c RequestConfig) RequestConfig {
		return c.WithHeader(key, value)
	}
}

func Headers(headers map[string]string) RequestOption {
	return func(c RequestConfig) RequestConfig {
		return c.WithHeaders(headers)
	}
}

func Param(key, value string) RequestOption {
	return func(c RequestConfig) RequestConfig {
		return c.WithParam(key, value)
	}
}

func Timeout(d time.Duration) RequestOption {
	return func(c RequestConfig) RequestConfig {
		return c.WithTimeout(d)
	}
}

func UploadProgress(fn ProgressFunc) RequestOption {
	return func(c RequestConfig) RequestConfig {
		return c.WithUploadProgress(fn)
	}
}
