package store

import (
	"sort"
	"strings"
	"time"

	"tpchat/pkg/logger"
	"tpchat/pkg/models"
)

const convPrefix = "conversation:"

var maxStored = 50

// SetMaxStored caps how many conversations the cache keeps. Saving past
// the cap evicts the least recently modified.
func SetMaxStored(n int) {
	if n > 0 {
		maxStored = n
	}
}

// SaveConversation upserts a cached conversation and prunes the cache to
// the most recently modified maxStored entries.
func SaveConversation(c models.Conversation) error {
	if c.SessionID == "" {
		return nil
	}
	if err := SetJSON(convPrefix+c.SessionID, c); err != nil {
		return err
	}
	return pruneConversations()
}

// GetConversation loads one cached conversation.
func GetConversation(sessionID string) (models.Conversation, error) {
	var c models.Conversation
	err := GetJSON(convPrefix+sessionID, &c)
	return c, err
}

// ListConversations returns all cached conversations, most recently
// modified first.
func ListConversations() ([]models.Conversation, error) {
	keys, err := ListKeys(convPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]models.Conversation, 0, len(keys))
	for _, k := range keys {
		var c models.Conversation
		if err := GetJSON(k, &c); err != nil {
			logger.Warn("conversation_cache_unreadable", "key", k, "error", err)
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})
	return out, nil
}

// DeleteConversation removes a cached conversation.
func DeleteConversation(sessionID string) error {
	return Remove(convPrefix + sessionID)
}

// ReplaceConversations overwrites the whole cache with the given list,
// used after an authoritative server refresh.
func ReplaceConversations(convs []models.Conversation) error {
	keys, err := ListKeys(convPrefix)
	if err != nil {
		return err
	}
	keep := map[string]bool{}
	for _, c := range convs {
		keep[c.SessionID] = true
	}
	for _, k := range keys {
		if !keep[SessionIDFromKey(k)] {
			_ = Remove(k)
		}
	}
	for _, c := range convs {
		if err := SaveConversation(c); err != nil {
			return err
		}
	}
	return nil
}

// CleanupOldConversations drops cached conversations whose last activity
// is older than maxAge. Returns how many were removed.
func CleanupOldConversations(maxAge time.Duration) (int, error) {
	convs, err := ListConversations()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, c := range convs {
		if lastActivity(c).Before(cutoff) {
			if err := DeleteConversation(c.SessionID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	if removed > 0 {
		logger.Info("conversations_cleaned_up", "removed", removed)
	}
	return removed, nil
}

func pruneConversations() error {
	convs, err := ListConversations()
	if err != nil {
		return err
	}
	for i := maxStored; i < len(convs); i++ {
		if err := DeleteConversation(convs[i].SessionID); err != nil {
			return err
		}
	}
	return nil
}

func lastActivity(c models.Conversation) time.Time {
	if !c.Modified.IsZero() {
		return c.Modified
	}
	return c.Created
}

// SessionIDFromKey strips the conversation namespace from a raw key.
func SessionIDFromKey(key string) string {
	return strings.TrimPrefix(key, convPrefix)
}
