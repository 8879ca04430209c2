// Package gateway is the REST client for the maintenance backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gmao-cli/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxErrorBody = 1 << 20

// Client talks to the backend API. It is safe for sequential use from one goroutine
// plus concurrent reads (Snapshot); SetToken must not race with requests.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	token string
	log   logrus.FieldLogger
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for baseURL (e.g. http://127.0.0.1:8000/api).
func New(baseURL string, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		log:        discard,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) SetToken(token string) { c.token = strings.TrimSpace(token) }

func (c *Client) Token() string { return c.token }

// do sends a JSON request and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindOther, Endpoint: path, Message: "encode request: " + err.Error(), Err: err}
		}
		reader = bytes.NewReader(b)
		contentType = "application/json"
	}
	resp, err := c.send(ctx, method, path, query, reader, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeInto(path, resp, out)
}

// fetchBytes fetches a binary payload (PDF downloads).
func (c *Client) fetchBytes(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Status: resp.StatusCode, Endpoint: path, Message: "read " + path + ": " + err.Error(), Err: err}
	}
	return b, nil
}

// send performs the request and turns transport failures and non-2xx responses into *Error.
// On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &Error{Kind: KindOther, Endpoint: path, Message: err.Error(), Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json, application/pdf")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	fields := logrus.Fields{
		"method":      method,
		"path":        path,
		"request_id":  reqID,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		c.log.WithFields(fields).WithError(err).Warn("api request failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &Error{Kind: KindNetwork, Endpoint: path, Message: fmt.Sprintf("cannot reach %s: %v", path, err), Err: err}
	}
	fields["status"] = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := errorFromBody(path, resp.StatusCode, resp.Status, b)
		c.log.WithFields(fields).WithField("kind", apiErr.Kind).Warn(apiErr.Message)
		return nil, apiErr
	}
	c.log.WithFields(fields).Debug("api request")
	return resp, nil
}

func decodeInto(path string, resp *http.Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Endpoint: path, Message: "unexpected response from " + path + ": " + err.Error(), Err: err}
	}
	if err := model.Check(out); err != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Endpoint: path, Message: "unexpected response from " + path + ": " + err.Error(), Err: err}
	}
	return nil
}

func idPath(prefix, id string, suffix ...string) string {
	p := prefix + url.PathEscape(strings.TrimSpace(id)) + "/"
	for _, s := range suffix {
		p += s
	}
	return p
}
