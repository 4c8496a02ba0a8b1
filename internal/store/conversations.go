package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/parley/internal/chat"
)

// CreateDirectConversation creates the one-to-one conversation of a pair.
// When the pair already has one, the existing conversation is returned
// inside a *chat.ConflictError.
func (db *DB) CreateDirectConversation(ctx context.Context, selfID, otherID string) (*chat.Conversation, error) {
	if selfID == "" || otherID == "" || selfID == otherID {
		return nil, chat.ErrInvalidParticipants
	}
	key := chat.PairKey(selfID, otherID)

	var id string
	conflict := false
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireUsers(ctx, tx, []string{selfID, otherID}); err != nil {
			return err
		}
		existing, err := directByKey(ctx, tx, key)
		if err != nil {
			return err
		}
		if existing != "" {
			id, conflict = existing, true
			return nil
		}

		id = uuid.NewString()
		ts := now().UnixMilli()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversations (id, is_group, created_at, last_message_at, direct_key)
			VALUES (?, 0, ?, ?, ?)`, id, ts, ts, key)
		if isUniqueViolation(err) {
			existing, lookupErr := directByKey(ctx, tx, key)
			if lookupErr != nil {
				return lookupErr
			}
			id, conflict = existing, true
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		return insertParticipants(ctx, tx, id, []string{selfID, otherID})
	})
	if err != nil {
		return nil, err
	}

	c, err := db.Conversation(ctx, id, "")
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, &chat.ConflictError{Existing: c}
	}
	return c, nil
}

func directByKey(ctx context.Context, q querier, key string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM conversations WHERE direct_key = ?`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query direct conversation: %w", err)
	}
	return id, nil
}

func requireUsers(ctx context.Context, q querier, ids []string) error {
	for _, id := range ids {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("query user: %w", err)
		}
		if !exists {
			return fmt.Errorf("user %s: %w", id, chat.ErrNotFound)
		}
	}
	return nil
}

func insertParticipants(ctx context.Context, tx *sql.Tx, conversationID string, userIDs []string) error {
	for i, uid := range userIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, position)
			VALUES (?, ?, ?)`, conversationID, uid, i); err != nil {
			return fmt.Errorf("insert participant %q: %w", uid, err)
		}
	}
	return nil
}

// CreateGroup creates a named group of creatorID and at least two other members.
func (db *DB) CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*chat.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrGroupName
	}
	participants := []string{creatorID}
	for _, id := range memberIDs {
		if id != "" && !slices.Contains(participants, id) {
			participants = append(participants, id)
		}
	}
	if len(participants) < 3 {
		return nil, fmt.Errorf("group needs two other members: %w", chat.ErrInvalidParticipants)
	}

	id := uuid.NewString()
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireUsers(ctx, tx, participants); err != nil {
			return err
		}
		ts := now().UnixMilli()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, name, is_group, created_at, last_message_at)
			VALUES (?, ?, 1, ?, ?)`, id, name, ts, ts); err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		return insertParticipants(ctx, tx, id, participants)
	})
	if err != nil {
		return nil, err
	}
	return db.Conversation(ctx, id, "")
}

// Conversation returns a conversation with participants, users, messages
// and seen lists. A non-empty userID must be a participant.
func (db *DB) Conversation(ctx context.Context, id, userID string) (*chat.Conversation, error) {
	var c chat.Conversation
	var created, last int64
	err := db.QueryRowContext(ctx, `
		SELECT id, name, is_group, created_at, last_message_at
		FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.IsGroup, &created, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, chat.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	c.CreatedAt, c.LastMessageAt = fromMillis(created), fromMillis(last)

	if err := db.fill(ctx, &c); err != nil {
		return nil, err
	}
	if userID != "" && !c.HasParticipant(userID) {
		return nil, fmt.Errorf("conversation %s: %w", id, chat.ErrNotFound)
	}
	return &c, nil
}

// LoadSnapshot returns every conversation userID participates in, most
// recent first, with their messages and seen lists.
func (db *DB) LoadSnapshot(ctx context.Context, userID string) ([]*chat.Conversation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.name, c.is_group, c.created_at, c.last_message_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.last_message_at DESC, c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	var convs []*chat.Conversation
	for rows.Next() {
		var c chat.Conversation
		var created, last int64
		if err := rows.Scan(&c.ID, &c.Name, &c.IsGroup, &created, &last); err != nil {
			_ = rows.Close()
			return nil, err
		}
		c.CreatedAt, c.LastMessageAt = fromMillis(created), fromMillis(last)
		convs = append(convs, &c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, c := range convs {
		if err := db.fill(ctx, c); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

// fill loads participants, users and messages of c.
func (db *DB) fill(ctx context.Context, c *chat.Conversation) error {
	rows, err := db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.image
		FROM conversation_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.conversation_id = ?
		ORDER BY p.position`, c.ID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	c.Participants, c.Users = nil, nil
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			_ = rows.Close()
			return err
		}
		c.Participants = append(c.Participants, u.ID)
		c.Users = append(c.Users, u)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	msgs, err := db.messages(ctx, db, c.ID, chat.Cursor{}, 0)
	if err != nil {
		return err
	}
	c.Messages = msgs
	return nil
}

// Participants returns the participant ids of a conversation.
func (db *DB) Participants(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = ? ORDER BY position`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteConversation removes a conversation userID participates in and
// returns what was deleted.
func (db *DB) DeleteConversation(ctx context.Context, id, userID string) (*chat.Conversation, error) {
	c, err := db.Conversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete conversation: %w", err)
	}
	return c, nil
}

// ConversationCount returns the total number of conversations.
func (db *DB) ConversationCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}
