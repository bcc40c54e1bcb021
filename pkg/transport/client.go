// Package transport wraps the widget's request/response calls to the
// backend: token fetch, conversation listing, message send, session
// creation and file upload. Retries follow the shared backoff policy;
// auth failures invalidate the cached token instead of retrying.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"tpchat/pkg/backoff"
	"tpchat/pkg/errdefs"
	"tpchat/pkg/logger"
	"tpchat/pkg/metrics"
	"tpchat/pkg/models"
)

const (
	endpointAuth          = "/auth/chat-token"
	endpointConversations = "/conversations"
	endpointMessages      = "/messages"
	endpointUpload        = "/upload"

	appIDHeader    = "x-tpwidget-id"
	requestTimeout = 15 * time.Second
)

// Options configures a Client.
type Options struct {
	APIBase    string
	AppID      string
	TeamSlug   string
	UserJWT    string
	MaxRetries int
	BaseDelay  time.Duration
	RPS        float64
	Burst      int
}

// Client talks to the backend REST API.
type Client struct {
	opts    Options
	http    *fasthttp.Client
	retry   backoff.Policy
	limiter *rate.Limiter
}

// New builds a Client. Zero retry/rate options fall back to sane values.
func New(opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 10
	}
	return &Client{
		opts:    opts,
		http:    &fasthttp.Client{Name: "tpchat-widget"},
		retry:   backoff.Policy{MaxAttempts: opts.MaxRetries, BaseDelay: opts.BaseDelay},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// SetUserJWT swaps the visitor token, used when identify() upgrades an
// anonymous session. The cached chat token is dropped so the next call
// authenticates under the new identity.
func (c *Client) SetUserJWT(jwt string) {
	c.opts.UserJWT = jwt
	c.clearToken()
}

// ListResult is one page of the conversation list.
type ListResult struct {
	Results []models.Conversation `json:"results"`
	Total   int                   `json:"total"`
}

// ListConversations fetches the authoritative conversation list. Each
// entry carries the backend's unread flag.
func (c *Client) ListConversations(ctx context.Context, limit, offset int) (ListResult, error) {
	var out ListResult
	token, err := c.chatToken(ctx)
	if err != nil {
		return out, err
	}
	url := fmt.Sprintf("%s%s?limit=%d&offset=%d", c.opts.APIBase, endpointConversations, limit, offset)
	err = c.doJSON(ctx, "list_conversations", fasthttp.MethodGet, url, token, nil, &out)
	return out, err
}

// SendMessage delivers a message over REST, the fallback path when the
// conversation socket is down.
func (c *Client) SendMessage(ctx context.Context, m models.Message) error {
	token, err := c.chatToken(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	url := c.opts.APIBase + endpointMessages
	return c.doJSON(ctx, "send_message", fasthttp.MethodPost, url, token, body, nil)
}

// Session is the result of creating a conversation session.
type Session struct {
	SessionID string    `json:"sessionId"`
	Created   time.Time `json:"created"`
}

// CreateSession asks the backend for a fresh conversation session.
func (c *Client) CreateSession(ctx context.Context) (Session, error) {
	var out Session
	token, err := c.chatToken(ctx)
	if err != nil {
		return out, err
	}
	body, err := json.Marshal(map[string]string{
		"appId": c.opts.AppID,
		"team":  c.opts.TeamSlug,
		"jwt":   token,
	})
	if err != nil {
		return out, err
	}
	url := c.opts.APIBase + endpointConversations
	err = c.doJSON(ctx, "create_session", fasthttp.MethodPost, url, token, body, &out)
	return out, err
}

// UploadFile posts file content as multipart form data and returns the
// stored file's URL.
func (c *Client) UploadFile(ctx context.Context, sessionID, filename string, content []byte) (string, error) {
	token, err := c.chatToken(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s%s/%s/%s/", c.opts.APIBase, endpointUpload, c.opts.TeamSlug, sessionID)
	var out struct {
		URL string `json:"url"`
	}
	err = c.do(ctx, "upload_file", fasthttp.MethodPost, url, token, buf.Bytes(), w.FormDataContentType(), &out)
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, url, token string, body []byte, out any) error {
	return c.do(ctx, op, method, url, token, body, "application/json", out)
}

// do runs one request with retry. 4xx responses are never retried except
// 429; an auth status invalidates the cached token before returning.
func (c *Client) do(ctx context.Context, op, method, url, token string, body []byte, contentType string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return &errdefs.NetworkError{Op: op, Err: err}
		}

		status, resp, err := c.roundTrip(method, url, token, body, contentType)
		if err != nil {
			lastErr = &errdefs.NetworkError{Op: op, Err: err}
		} else if status >= 200 && status < 300 {
			if out == nil || len(resp) == 0 {
				return nil
			}
			if err := json.Unmarshal(resp, out); err != nil {
				return fmt.Errorf("%s: decode response: %w", op, err)
			}
			return nil
		} else if status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden {
			c.clearToken()
			return &errdefs.AuthError{Status: status}
		} else if status >= 400 && status < 500 && status != fasthttp.StatusTooManyRequests {
			// terminal rejection, not a transient; never retried
			return &errdefs.ValidationError{Reason: fmt.Sprintf("%s rejected: http %d", op, status)}
		} else {
			lastErr = &errdefs.NetworkError{Op: op, Err: fmt.Errorf("http %d", status)}
		}

		if attempt == c.retry.MaxAttempts {
			break
		}
		metrics.TransportRetries.Inc()
		delay := c.retry.Delay(attempt)
		logger.Debug("transport_retry", "op", op, "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return &errdefs.NetworkError{Op: op, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
	return lastErr
}

func (c *Client) roundTrip(method, url, token string, body []byte, contentType string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if c.opts.AppID != "" {
		req.Header.Set(appIDHeader, c.opts.AppID)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.SetBody(body)
	}

	if err := c.http.DoTimeout(req, resp, requestTimeout); err != nil {
		return 0, nil, err
	}
	out := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), out, nil
}
