package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestFindUser(t *testing.T) {
	users := []chat.User{
		{ID: "u1", Name: "Ana", Email: "ana@example.com"},
		{ID: "u2", Name: "Bea", Email: "bea@example.com"},
		{ID: "u3", Name: "bea", Email: "other@example.com"},
	}

	u, err := findUser(users, "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)

	u, err = findUser(users, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u, err = findUser(users, "ana")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = findUser(users, "bea")
	assert.ErrorContains(t, err, "2 users")

	_, err = findUser(users, "zed")
	assert.ErrorContains(t, err, "no user matches")
}

func TestStamp(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	assert.Equal(t, "09:30", stamp(time.Date(2026, 3, 10, 9, 30, 0, 0, time.Local), now))
	assert.Equal(t, "Jan 02", stamp(time.Date(2026, 1, 2, 9, 0, 0, 0, time.Local), now))
	assert.Equal(t, "2025-12-31", stamp(time.Date(2025, 12, 31, 9, 0, 0, 0, time.Local), now))
	assert.Empty(t, stamp(time.Time{}, now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestWriteItemsMarksUnread(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	writeItems(&buf, []chat.Item{
		{ID: "c1", DisplayName: "Bea", Preview: "hi", LastMessageAt: now, Unread: true},
		{ID: "c2", DisplayName: "Team", Preview: "Started a conversation", LastMessageAt: now, IsGroup: true},
	}, now)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "● c1"))
	assert.Contains(t, lines[1], "GROUP")
	assert.True(t, strings.HasPrefix(lines[1], "  c2"))
}

func TestWriteMessageNamesSelf(t *testing.T) {
	now := time.Now()
	names := userNames([]chat.User{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "Bea"}}, "u1")

	var buf bytes.Buffer
	writeMessage(&buf, &chat.Message{SenderID: "u1", Body: "hello", CreatedAt: now}, names, "u1", now)
	writeMessage(&buf, &chat.Message{SenderID: "u2", Image: "https://img/x.png", CreatedAt: now}, names, "u1", now)
	writeMessage(&buf, &chat.Message{SenderID: "gone", Body: "old", CreatedAt: now}, names, "u1", now)

	out := buf.String()
	assert.Contains(t, out, "You: hello")
	assert.Contains(t, out, "Bea: [image] https://img/x.png")
	assert.Contains(t, out, "gone: old")
}
