package chat

import (
	"slices"
	"testing"
)

func TestProjectionOrdering(t *testing.T) {
	x := NewIndex()
	x.UpsertConversation(direct("B", "U1", "U2"))
	x.UpsertConversation(direct("A", "U1", "U3"))
	x.UpsertConversation(direct("C", "U1", "U4"))
	_, _ = x.AppendMessage("B", msg("m1", "U2", 5, "x"))
	_, _ = x.AppendMessage("A", msg("m2", "U3", 5, "y"))
	_, _ = x.AppendMessage("C", msg("m3", "U4", 9, "z"))

	var ids []string
	for _, it := range x.Projection("U1") {
		ids = append(ids, it.ID)
	}
	if want := []string{"C", "A", "B"}; !slices.Equal(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestProjectionDisplayName(t *testing.T) {
	x := NewIndex()
	x.UpsertConversation(&Conversation{
		ID:           "C1",
		Participants: []string{"U1", "U2"},
		Users:        []User{{ID: "U1", Name: "Ana"}, {ID: "U2", Name: "Bruno"}},
	})
	x.UpsertConversation(&Conversation{ID: "G1", Name: "team", IsGroup: true, Participants: []string{"U1", "U2", "U3"}})
	x.UpsertConversation(direct("C2", "U1", "U9"))

	names := map[string]string{}
	for _, it := range x.Projection("U1") {
		names[it.ID] = it.DisplayName
	}
	want := map[string]string{"C1": "Bruno", "G1": "team", "C2": "U9"}
	for id, name := range want {
		if names[id] != name {
			t.Errorf("DisplayName(%s) = %q, want %q", id, names[id], name)
		}
	}

	names = map[string]string{}
	for _, it := range x.Projection("U2") {
		names[it.ID] = it.DisplayName
	}
	if names["C1"] != "Ana" {
		t.Errorf("DisplayName(C1) for U2 = %q, want Ana", names["C1"])
	}
}
