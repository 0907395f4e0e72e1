package backendsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
	"github.com/trezcool/studentportal/core/student"
)

// APIError and ErrMalformedResponse are the errors returned for unsuccessful calls.
type APIError = core.APIError

var ErrMalformedResponse = core.ErrMalformedResponse

// IsUnauthorized reports whether the backend rejected the token.
func IsUnauthorized(err error) bool { return core.IsUnauthorized(err) }

// Client calls the student backend REST API. Every method maps to one endpoint.
type Client struct {
	rest *rest.Client

	authURL  string // <base>api/v1/auth/
	apiURL   string // <base>api/
	frontURL string // <base>frontend/api/
	photoURL string // <photo base>api/
}

var (
	_ account.Backend = (*Client)(nil)
	_ student.Backend = (*Client)(nil)
)

func NewClient(conf *core.Config) *Client {
	return &Client{
		rest:     &rest.Client{HTTPClient: &http.Client{Timeout: conf.Backend.Timeout}},
		authURL:  conf.Backend.BaseURL + "api/v1/auth/",
		apiURL:   conf.Backend.BaseURL + "api/",
		frontURL: conf.Backend.BaseURL + "frontend/api/",
		photoURL: conf.Backend.PhotoBaseURL + "api/",
	}
}

type call struct {
	method rest.Method
	url    string
	token  string
	query  map[string]string

	body        interface{} // JSON encoded, unless raw is set
	raw         []byte
	contentType string

	// message of the APIError when the body has neither `message` nor `detail`
	defaultMsg string
}

func (c *Client) send(ctx context.Context, cl call) (*rest.Response, error) {
	headers := map[string]string{"Accept": "application/json"}
	if cl.token != "" {
		headers["Authorization"] = "Bearer " + cl.token
	}

	body := cl.raw
	if body == nil && cl.body != nil {
		var err error
		if body, err = json.Marshal(cl.body); err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		headers["Content-Type"] = "application/json"
	}
	if cl.contentType != "" {
		headers["Content-Type"] = cl.contentType
	}

	resp, err := c.rest.SendWithContext(ctx, rest.Request{
		Method:      cl.method,
		BaseURL:     cl.url,
		Headers:     headers,
		QueryParams: cl.query,
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", cl.method, cl.url)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newAPIError(resp, cl.defaultMsg)
	}
	return resp, nil
}

// do sends the call and decodes the JSON response into dst (if not nil).
func (c *Client) do(ctx context.Context, cl call, dst interface{}) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	if err = json.Unmarshal([]byte(resp.Body), dst); err != nil {
		return errors.Wrapf(ErrMalformedResponse, "decoding %s %s response: %v", cl.method, cl.url, err)
	}
	return nil
}

// newAPIError reads the error message from the `message` field, then `detail`
// (a string, or a list of {msg} objects), then falls back to defaultMsg.
func newAPIError(resp *rest.Response, defaultMsg string) *APIError {
	var body struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	_ = json.Unmarshal([]byte(resp.Body), &body)

	msg := core.FirstNonEmpty(body.Message, detailMessage(body.Detail), defaultMsg)
	if msg == "" {
		msg = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func detailMessage(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
