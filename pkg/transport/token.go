package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"tpchat/pkg/errdefs"
	"tpchat/pkg/logger"
	"tpchat/pkg/store"
)

// Chat tokens outlive a page load; absent a usable exp claim the cache
// falls back to this TTL.
const tokenFallbackTTL = 168 * time.Hour

// ChatToken returns a valid chat token, reusing the cached one when its
// exp claim has not passed and fetching a fresh one otherwise. Anonymous
// visitors (no user JWT) get an empty token.
func (c *Client) ChatToken(ctx context.Context) (string, error) {
	return c.chatToken(ctx)
}

func (c *Client) chatToken(ctx context.Context) (string, error) {
	if c.opts.UserJWT == "" {
		return "", nil
	}
	if tok, ok := store.LoadToken(); ok {
		if exp, ok := jwtExpiry(tok); !ok || exp.After(time.Now()) {
			return tok, nil
		}
		// expired per its own claim; drop and refetch
		c.clearToken()
	}

	url := fmt.Sprintf("%s%s?jwt=%s&team=%s", c.opts.APIBase, endpointAuth, c.opts.UserJWT, c.opts.TeamSlug)
	var out struct {
		JWT string `json:"jwt"`
	}
	if err := c.doJSON(ctx, "authenticate", fasthttp.MethodGet, url, "", nil, &out); err != nil {
		return "", err
	}
	if out.JWT == "" {
		return "", &errdefs.AuthError{Status: 0, Err: fmt.Errorf("empty chat token in response")}
	}

	expires := time.Now().Add(tokenFallbackTTL)
	if exp, ok := jwtExpiry(out.JWT); ok && exp.Before(expires) {
		expires = exp
	}
	if err := store.SaveToken(out.JWT, expires); err != nil {
		logger.Warn("token_cache_write_failed", "error", err)
	}
	return out.JWT, nil
}

func (c *Client) clearToken() {
	if err := store.ClearToken(); err != nil {
		logger.Warn("token_cache_clear_failed", "error", err)
	}
}

// jwtExpiry decodes the exp claim locally; the token is never verified
// here, only inspected so an obviously stale one is not reused.
func jwtExpiry(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.Exp, 0), true
}
