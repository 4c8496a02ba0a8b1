package tui

import (
	"testing"

	"github.com/matheus3301/parley/internal/chat"
)

func TestMatchUsers(t *testing.T) {
	users := []chat.User{
		{ID: "u1", Name: "Bea Lima", Email: "bea@example.com"},
		{ID: "u2", Name: "Beatriz", Email: "bia@example.com"},
		{ID: "u3", Name: "Cid", Email: "cid@example.com"},
	}
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"u1", "u2", "u3"}},
		{"bea", []string{"u1", "u2"}},
		{"BIA@example.com", []string{"u2"}},
		{"example", []string{"u1", "u2", "u3"}},
		{"zed", nil},
	}
	for _, tt := range tests {
		got := matchUsers(users, tt.query)
		var ids []string
		for _, u := range got {
			ids = append(ids, u.ID)
		}
		if len(ids) != len(tt.want) {
			t.Errorf("matchUsers(%q) = %v, want %v", tt.query, ids, tt.want)
			continue
		}
		for i := range ids {
			if ids[i] != tt.want[i] {
				t.Errorf("matchUsers(%q) = %v, want %v", tt.query, ids, tt.want)
				break
			}
		}
	}
}
