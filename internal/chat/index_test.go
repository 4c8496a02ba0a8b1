package chat

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func direct(id, a, b string) *Conversation {
	return &Conversation{ID: id, CreatedAt: at(0), Participants: []string{a, b}}
}

func msg(id, sender string, sec int, body string) *Message {
	return &Message{ID: id, SenderID: sender, Body: body, CreatedAt: at(sec)}
}

func messageIDs(c *Conversation) []string {
	ids := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		ids[i] = m.ID
	}
	return ids
}

func TestAppendMessageUnknownConversation(t *testing.T) {
	x := NewIndex()
	ok, err := x.AppendMessage("nope", msg("m1", "U1", 1, "hi"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if ok {
		t.Error("AppendMessage reported insert for unknown conversation")
	}
}

func TestAppendMessageOrdersByCreatedAt(t *testing.T) {
	msgs := []*Message{
		msg("m1", "U1", 1, "a"),
		msg("m2", "U2", 2, "b"),
		msg("m3", "U1", 3, "c"),
		msg("m4b", "U2", 4, "d"),
		msg("m4a", "U1", 4, "e"),
		msg("m5", "U2", 5, "f"),
	}
	want := []string{"m1", "m2", "m3", "m4a", "m4b", "m5"}

	r := rand.New(rand.NewPCG(1, 2))
	for round := range 20 {
		shuffled := slices.Clone(msgs)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		x := NewIndex()
		x.UpsertConversation(direct("C1", "U1", "U2"))
		for _, m := range shuffled {
			if _, err := x.AppendMessage("C1", m); err != nil {
				t.Fatal(err)
			}
		}
		c, _ := x.Conversation("C1")
		if got := messageIDs(c); !slices.Equal(got, want) {
			t.Fatalf("round %d: order = %v, want %v", round, got, want)
		}
		if !c.LastMessageAt.Equal(at(5)) {
			t.Errorf("round %d: LastMessageAt = %v, want %v", round, c.LastMessageAt, at(5))
		}
	}
}

func TestAppendMessageIdempotent(t *testing.T) {
	x := NewIndex()
	x.UpsertConversation(direct("C1", "U1", "U2"))

	first, err := x.AppendMessage("C1", msg("m1", "U1", 1, "hi"))
	if err != nil || !first {
		t.Fatalf("first append = %v, %v", first, err)
	}
	before, _ := x.Conversation("C1")

	again, err := x.AppendMessage("C1", msg("m1", "U1", 1, "hi"))
	if err != nil {
		t.Fatal(err)
	}
	if again {
		t.Error("duplicate append reported an insert")
	}
	after, _ := x.Conversation("C1")
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("messages = %d, want %d", len(after.Messages), len(before.Messages))
	}
}

func TestAppendMessageRejectsMissingAndForeignIDs(t *testing.T) {
	x := NewIndex()
	x.UpsertConversation(direct("C1", "U1", "U2"))
	x.UpsertConversation(direct("C2", "U1", "U3"))

	for _, conv := range []string{"C1", "nope"} {
		ok, err := x.AppendMessage(conv, nil)
		if !errors.Is(err, ErrMissingMessageID) || ok {
			t.Errorf("nil message on %s = %v, %v", conv, ok, err)
		}
	}
	if _, err := x.AppendMessage("C1", &Message{Body: "no id"}); !errors.Is(err, ErrMissingMessageID) {
		t.Errorf("empty id err = %v", err)
	}

	if _, err := x.AppendMessage("C1", msg("m1", "U1", 1, "hi")); err != nil {
		t.Fatal(err)
	}
	ok, err := x.AppendMessage("C2", msg("m1", "U3", 2, "other"))
	if !errors.Is(err, ErrMessageIDInUse) || ok {
		t.Fatalf("foreign id = %v, %v", ok, err)
	}
	c2, _ := x.Conversation("C2")
	if len(c2.Messages) != 0 {
		t.Errorf("C2 messages = %v", messageIDs(c2))
	}
}

func TestLastMessageAtMonotonic(t *testing.T) {
	x := NewIndex()
	x.UpsertConversation(direct("C1", "U1", "U2"))
	_, _ = x.AppendMessage("C1", msg("m2", "U1", 10, "late"))
	_, _ = x.AppendMessage("C1", msg("m1", "U1", 5, "delayed"))

	c, _ := x.Conversation("C1")
	if !c.LastMessageAt.Equal(at(10)) {
		t.Errorf("LastMessageAt = %v, want %v", c.LastMessageAt, at(10))
	}

	// An update with an older LastMessageAt must not move it back.
	x.UpsertConversation(&Conversation{ID: "C1", CreatedAt: at(0), Participants: []string{"U1", "U2"}, LastMessageAt: at(1)})
	c, _ = x.Conversation("C1")
	if !c.LastMessageAt.Equal(at(10)) {
		t.Errorf("LastMessageAt after upsert = %v, want %v", c.LastMessageAt, at(10))
	}
}

func TestUpsertMergesParticipantsAndKeepsMessages(t *testing.T) {
	x := NewIndex()
	x.UpsertConversation(&Conversation{ID: "G1", Name: "team", IsGroup: true, CreatedAt: at(0), Participants: []string{"U1", "U2"}})
	_, _ = x.AppendMessage("G1", msg("m1", "U1", 1, "hi"))

	x.UpsertConversation(&Conversation{ID: "G1", Name: "renamed", IsGroup: true, Participants: []string{"U2", "U3"}})

	c, _ := x.Conversation("G1")
	if c.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", c.Name)
	}
	if want := []string{"U1", "U2", "U3"}; !slices.Equal(c.Participants, want) {
		t.Errorf("Participants = %v, want %v", c.Participants, want)
	}
	if len(c.Messages) != 1 {
		t.Errorf("messages = %d, want 1", len(c.Messages))
	}
	if !c.CreatedAt.Equal(at(0)) {
		t.Errorf("CreatedAt overwritten by zero value: %v", c.CreatedAt)
	}
}

func TestRemoveConversation(t *testing.T) {
	x := NewIndex()
	x.UpsertConversation(direct("C1", "U1", "U2"))
	_, _ = x.AppendMessage("C1", msg("m1", "U1", 1, "hi"))

	if !x.RemoveConversation("C1") {
		t.Fatal("RemoveConversation returned false")
	}
	if x.HasConversation("C1") || x.HasMessage("m1") {
		t.Error("conversation or message still present after removal")
	}
	if x.RemoveConversation("C1") {
		t.Error("second removal reported true")
	}
}

func TestFindDirectEitherOrder(t *testing.T) {
	x := NewIndex()
	x.UpsertConversation(direct("C1", "U1", "U2"))
	x.UpsertConversation(&Conversation{ID: "G1", IsGroup: true, Participants: []string{"U1", "U2"}})

	for _, pair := range [][2]string{{"U1", "U2"}, {"U2", "U1"}} {
		c, ok := x.FindDirect(pair[0], pair[1])
		if !ok || c.ID != "C1" {
			t.Errorf("FindDirect(%s,%s) = %v, %v; want C1", pair[0], pair[1], c, ok)
		}
	}
	if _, ok := x.FindDirect("U1", "U3"); ok {
		t.Error("FindDirect found a conversation for an unknown pair")
	}
}

func TestWatchReceivesChanges(t *testing.T) {
	x := NewIndex()
	var got []ChangeKind
	x.Watch(func(c Change) { got = append(got, c.Kind) })

	x.UpsertConversation(direct("C1", "U1", "U2"))
	_, _ = x.AppendMessage("C1", msg("m1", "U1", 1, "hi"))
	_, _ = x.AppendMessage("C1", msg("m1", "U1", 1, "hi"))
	x.RemoveConversation("C1")

	want := []ChangeKind{ChangeUpserted, ChangeMessage, ChangeRemoved}
	if !slices.Equal(got, want) {
		t.Errorf("changes = %v, want %v", got, want)
	}
}

func TestReturnedConversationIsACopy(t *testing.T) {
	x := NewIndex()
	x.UpsertConversation(direct("C1", "U1", "U2"))
	_, _ = x.AppendMessage("C1", msg("m1", "U1", 1, "hi"))

	c, _ := x.Conversation("C1")
	c.Messages[0].SeenBy = append(c.Messages[0].SeenBy, "U2")

	again, _ := x.Conversation("C1")
	if again.Messages[0].HasSeen("U2") {
		t.Error("mutating a returned conversation leaked into the index")
	}
}
