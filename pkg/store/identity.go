package store

import (
	"time"

	"github.com/google/uuid"

	"tpchat/pkg/models"
)

const (
	userKey     = "user"
	settingsKey = "settings"
	deviceKey   = "device:id"
	tokenKey    = "token:chat"
)

// SaveUser persists the identified visitor.
func SaveUser(u models.UserIdentity) error {
	return SetJSON(userKey, u)
}

// GetUser loads the persisted identity; ok is false in anonymous mode.
func GetUser() (models.UserIdentity, bool) {
	var u models.UserIdentity
	if err := GetJSON(userKey, &u); err != nil {
		return models.UserIdentity{}, false
	}
	return u, true
}

// ClearUser removes the persisted identity.
func ClearUser() error {
	return Remove(userKey)
}

// SaveSettings persists widget settings merged over the existing map.
func SaveSettings(settings map[string]any) error {
	cur := GetSettings()
	for k, v := range settings {
		cur[k] = v
	}
	return SetJSON(settingsKey, cur)
}

// GetSettings returns the persisted settings map, empty when absent.
func GetSettings() map[string]any {
	out := map[string]any{}
	_ = GetJSON(settingsKey, &out)
	return out
}

// GetOrCreateDeviceID returns the stable per-install device identifier,
// generating and persisting one on first use.
func GetOrCreateDeviceID() string {
	var id string
	if err := GetJSON(deviceKey, &id); err == nil && id != "" {
		return id
	}
	id = "device_" + uuid.NewString()
	_ = SetJSON(deviceKey, id)
	return id
}

// cachedToken is the cookie-like record for the short-lived chat token.
type cachedToken struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// SaveToken caches the chat token with an explicit expiry.
func SaveToken(token string, expires time.Time) error {
	return SetJSON(tokenKey, cachedToken{Token: token, Expires: expires})
}

// LoadToken returns the cached chat token if present and unexpired.
func LoadToken() (string, bool) {
	var t cachedToken
	if err := GetJSON(tokenKey, &t); err != nil {
		return "", false
	}
	if t.Token == "" || !t.Expires.After(time.Now()) {
		return "", false
	}
	return t.Token, true
}

// ClearToken drops the cached chat token so the next call re-authenticates.
func ClearToken() error {
	return Remove(tokenKey)
}
