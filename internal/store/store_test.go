package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustUser(t *testing.T, db *DB, name string) *chat.User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), name, name+"@example.com", "hash-"+name)
	require.NoError(t, err)
	return u
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	require.NoError(t, err)
	assert.False(t, result.Changed, "second Migrate() should report Changed=false")
	assert.Equal(t, uint(2), result.Version)
	assert.False(t, result.Dirty)
}

func TestCreateUserAndLookup(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u, err := db.CreateUser(ctx, " Ana ", "Ana@Example.com", "h")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)

	_, err = db.CreateUser(ctx, "Other", "ana@example.com", "h2")
	assert.ErrorIs(t, err, ErrEmailTaken)

	byEmail, hash, err := db.UserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "h", hash)

	_, _, err = db.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, chat.ErrNotFound)

	got, err := db.User(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, *u, *got)
}

func TestUpsertOAuthUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first, err := db.UpsertOAuthUser(ctx, "github", "bea@example.com", "Bea", "https://img/bea.png")
	require.NoError(t, err)
	second, err := db.UpsertOAuthUser(ctx, "github", "bea@example.com", "Beatriz", "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Beatriz", second.Name)
	assert.Equal(t, "https://img/bea.png", second.Image)
}

func TestUpsertOAuthUserRefusesForeignAccounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	ana := mustUser(t, db, "ana")

	_, err := db.UpsertOAuthUser(ctx, "github", "ANA@example.com", "Mallory", "")
	assert.ErrorIs(t, err, chat.ErrAccountLinked)
	got, err := db.User(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Name)

	_, err = db.UpsertOAuthUser(ctx, "github", "bea@example.com", "Bea", "")
	require.NoError(t, err)
	_, err = db.UpsertOAuthUser(ctx, "gitlab", "bea@example.com", "Bea", "")
	assert.ErrorIs(t, err, chat.ErrAccountLinked)
}

func TestListUsersExcludesCaller(t *testing.T) {
	db := testDB(t)
	a := mustUser(t, db, "ana")
	mustUser(t, db, "bruno")
	mustUser(t, db, "caio")

	users, err := db.ListUsers(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, a.ID, u.ID)
	}
}

func TestCreateDirectConversationConflict(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, b := mustUser(t, db, "ana"), mustUser(t, db, "bruno")

	c, err := db.CreateDirectConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, c.IsGroup)
	assert.Equal(t, []string{a.ID, b.ID}, c.Participants)
	assert.Len(t, c.Users, 2)

	_, err = db.CreateDirectConversation(ctx, b.ID, a.ID)
	var conflict *chat.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, chat.ErrConflictExisting)
	assert.Equal(t, c.ID, conflict.Existing.ID)
}

func TestCreateDirectConversationValidation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "ana")

	_, err := db.CreateDirectConversation(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, chat.ErrInvalidParticipants)
	_, err = db.CreateDirectConversation(ctx, a.ID, "ghost")
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestCreateDirectConversationRace(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, b := mustUser(t, db, "ana"), mustUser(t, db, "bruno")

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			self, other := a.ID, b.ID
			if i%2 == 1 {
				self, other = other, self
			}
			c, err := db.CreateDirectConversation(ctx, self, other)
			var conflict *chat.ConflictError
			if errors.As(err, &conflict) {
				c, err = conflict.Existing, nil
			}
			errs[i] = err
			if c != nil {
				ids[i] = c.ID
			}
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	count, err := db.ConversationCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCreateGroup(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, b, c := mustUser(t, db, "ana"), mustUser(t, db, "bruno"), mustUser(t, db, "caio")

	_, err := db.CreateGroup(ctx, a.ID, "", []string{b.ID, c.ID})
	assert.ErrorIs(t, err, ErrGroupName)
	_, err = db.CreateGroup(ctx, a.ID, "team", []string{b.ID, a.ID})
	assert.ErrorIs(t, err, chat.ErrInvalidParticipants)

	g, err := db.CreateGroup(ctx, a.ID, "team", []string{b.ID, c.ID, b.ID})
	require.NoError(t, err)
	assert.True(t, g.IsGroup)
	assert.Equal(t, "team", g.Name)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, g.Participants)
}

func TestCreateMessageAndSnapshot(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, b, c := mustUser(t, db, "ana"), mustUser(t, db, "bruno"), mustUser(t, db, "caio")

	ab, err := db.CreateDirectConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	ac, err := db.CreateDirectConversation(ctx, a.ID, c.ID)
	require.NoError(t, err)

	_, err = db.CreateMessage(ctx, ab.ID, a.ID, "  ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = db.CreateMessage(ctx, ab.ID, c.ID, "intruder", "")
	assert.ErrorIs(t, err, chat.ErrNotFound)

	m1, err := db.CreateMessage(ctx, ab.ID, a.ID, "hi", "")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, m1.SeenBy)
	time.Sleep(2 * time.Millisecond)
	m2, err := db.CreateMessage(ctx, ab.ID, b.ID, "", "https://img/1.png")
	require.NoError(t, err)

	snap, err := db.LoadSnapshot(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, ab.ID, snap[0].ID, "most recent conversation first")
	assert.Equal(t, ac.ID, snap[1].ID)

	got := snap[0]
	require.Len(t, got.Messages, 2)
	assert.Equal(t, m1.ID, got.Messages[0].ID)
	assert.Equal(t, m2.ID, got.Messages[1].ID)
	assert.True(t, got.LastMessageAt.Equal(m2.CreatedAt))
	assert.True(t, got.Messages[0].CreatedAt.Equal(m1.CreatedAt))

	bSnap, err := db.LoadSnapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, bSnap, 1)
}

func TestMarkSeenLatestOnly(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, b := mustUser(t, db, "ana"), mustUser(t, db, "bruno")
	conv, err := db.CreateDirectConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	m, changed, err := db.MarkSeen(ctx, conv.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.False(t, changed)

	old, err := db.CreateMessage(ctx, conv.ID, a.ID, "one", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	latest, err := db.CreateMessage(ctx, conv.ID, a.ID, "two", "")
	require.NoError(t, err)

	m, changed, err = db.MarkSeen(ctx, conv.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, latest.ID, m.ID)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, m.SeenBy)

	_, changed, err = db.MarkSeen(ctx, conv.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, changed, "second mark is a no-op")

	oldNow, err := db.Message(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, oldNow.SeenBy)
}

func TestListMessagesPaging(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, b := mustUser(t, db, "ana"), mustUser(t, db, "bruno")
	conv, err := db.CreateDirectConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	var created []*chat.Message
	for _, body := range []string{"1", "2", "3", "4"} {
		m, err := db.CreateMessage(ctx, conv.ID, a.ID, body, "")
		require.NoError(t, err)
		created = append(created, m)
		time.Sleep(2 * time.Millisecond)
	}

	page, err := db.ListMessages(ctx, conv.ID, b.ID, chat.Cursor{}, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "3", page[0].Body)
	assert.Equal(t, "4", page[1].Body)

	older, err := db.ListMessages(ctx, conv.ID, b.ID, chat.CursorBefore(page[0]), 10)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, created[0].ID, older[0].ID)

	_, err = db.ListMessages(ctx, conv.ID, "ghost", chat.Cursor{}, 10)
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestListMessagesPagingWithinOneMillisecond(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, b := mustUser(t, db, "ana"), mustUser(t, db, "bruno")
	conv, err := db.CreateDirectConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	ts := time.Now().UnixMilli()
	ids := []string{"m1", "m2", "m3", "m4", "m5"}
	for _, id := range ids {
		_, err := db.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, body, image, created_at)
			VALUES (?, ?, ?, ?, '', ?)`, id, conv.ID, a.ID, "body "+id, ts)
		require.NoError(t, err)
	}

	var got []string
	cursor := chat.Cursor{}
	for range ids {
		page, err := db.ListMessages(ctx, conv.ID, b.ID, cursor, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for i := len(page) - 1; i >= 0; i-- {
			got = append([]string{page[i].ID}, got...)
		}
		cursor = chat.CursorBefore(page[0])
	}
	assert.Equal(t, ids, got)
}

func TestDeleteConversation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, b, c := mustUser(t, db, "ana"), mustUser(t, db, "bruno"), mustUser(t, db, "caio")
	conv, err := db.CreateDirectConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = db.CreateMessage(ctx, conv.ID, a.ID, "hi", "")
	require.NoError(t, err)

	_, err = db.DeleteConversation(ctx, conv.ID, c.ID)
	assert.ErrorIs(t, err, chat.ErrNotFound)

	deleted, err := db.DeleteConversation(ctx, conv.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, deleted.Participants)

	_, err = db.Conversation(ctx, conv.ID, "")
	assert.ErrorIs(t, err, chat.ErrNotFound)
	count, err := db.MessageCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// The pair can start over after deletion.
	_, err = db.CreateDirectConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
}
