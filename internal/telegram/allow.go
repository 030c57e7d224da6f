package telegram

import (
	"strconv"
	"strings"
)

// AllowList holds the Telegram users permitted to talk to the bot. Entries
// are numeric user IDs or usernames, with or without a leading @. An empty
// list allows everyone.
type AllowList struct {
	ids   map[int64]struct{}
	names map[string]struct{}
}

// NewAllowList parses entries, skipping blank ones.
func NewAllowList(entries []string) *AllowList {
	a := &AllowList{
		ids:   make(map[int64]struct{}),
		names: make(map[string]struct{}),
	}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if id, err := strconv.ParseInt(entry, 10, 64); err == nil {
			a.ids[id] = struct{}{}
			continue
		}
		a.names[normalizeUsername(entry)] = struct{}{}
	}
	return a
}

// Open reports whether the list admits every sender.
func (a *AllowList) Open() bool {
	return len(a.ids) == 0 && len(a.names) == 0
}

// Allows reports whether the user may use the bot. Usernames compare
// case-insensitively, as Telegram treats them.
func (a *AllowList) Allows(userID int64, username string) bool {
	if a.Open() {
		return true
	}
	if _, ok := a.ids[userID]; ok {
		return true
	}
	if username == "" {
		return false
	}
	_, ok := a.names[normalizeUsername(username)]
	return ok
}

func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, "@"))
}
