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

// CreateMessage stores a message from senderID. The sender has seen it.
func (db *DB) CreateMessage(ctx context.Context, conversationID, senderID, body, image string) (*chat.Message, error) {
	body, image = strings.TrimSpace(body), strings.TrimSpace(image)
	if body == "" && image == "" {
		return nil, ErrEmptyMessage
	}
	m := &chat.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		Image:          image,
		CreatedAt:      now(),
		SeenBy:         []string{senderID},
	}
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireParticipant(ctx, tx, conversationID, senderID); err != nil {
			return err
		}
		ts := m.CreatedAt.UnixMilli()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, body, image, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, conversationID, senderID, body, image, ts); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO message_seen (message_id, user_id, seen_at) VALUES (?, ?, ?)`,
			m.ID, senderID, ts); err != nil {
			return fmt.Errorf("insert seen: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE conversations SET last_message_at = MAX(last_message_at, ?) WHERE id = ?`,
			ts, conversationID); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func requireParticipant(ctx context.Context, q querier, conversationID, userID string) error {
	var ok bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = ? AND user_id = ?)`,
		conversationID, userID).Scan(&ok)
	if err != nil {
		return fmt.Errorf("query participant: %w", err)
	}
	if !ok {
		return fmt.Errorf("conversation %s: %w", conversationID, chat.ErrNotFound)
	}
	return nil
}

// MarkSeen records userID on the latest message of a conversation. It
// returns that message and whether the seen list changed. A conversation
// without messages yields a nil message.
func (db *DB) MarkSeen(ctx context.Context, conversationID, userID string) (*chat.Message, bool, error) {
	var latestID string
	changed := false
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireParticipant(ctx, tx, conversationID, userID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM messages WHERE conversation_id = ?
			ORDER BY created_at DESC, id DESC LIMIT 1`, conversationID).Scan(&latestID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("query latest message: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO message_seen (message_id, user_id, seen_at) VALUES (?, ?, ?)`,
			latestID, userID, now().UnixMilli())
		if err != nil {
			return fmt.Errorf("insert seen: %w", err)
		}
		n, _ := res.RowsAffected()
		changed = n > 0
		return nil
	})
	if err != nil || latestID == "" {
		return nil, false, err
	}
	m, err := db.Message(ctx, latestID)
	if err != nil {
		return nil, false, err
	}
	return m, changed, nil
}

// Message returns a message with its seen list.
func (db *DB) Message(ctx context.Context, id string) (*chat.Message, error) {
	var m chat.Message
	var created int64
	err := db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, body, image, created_at
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.Image, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, chat.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query message: %w", err)
	}
	m.CreatedAt = fromMillis(created)

	rows, err := db.QueryContext(ctx, `
		SELECT user_id FROM message_seen WHERE message_id = ? ORDER BY seen_at, user_id`, id)
	if err != nil {
		return nil, fmt.Errorf("list seen: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		m.SeenBy = append(m.SeenBy, uid)
	}
	return &m, rows.Err()
}

// ListMessages returns up to limit messages of a conversation ordered
// before the cursor, oldest first. userID must be a participant.
func (db *DB) ListMessages(ctx context.Context, conversationID, userID string, before chat.Cursor, limit int) ([]*chat.Message, error) {
	if err := requireParticipant(ctx, db, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return db.messages(ctx, db, conversationID, before, limit)
}

// messages loads messages ascending by (created_at, id). A zero cursor and
// limit mean unbounded.
func (db *DB) messages(ctx context.Context, q querier, conversationID string, before chat.Cursor, limit int) ([]*chat.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, body, image, created_at
		FROM messages WHERE conversation_id = ?`
	args := []any{conversationID}
	if !before.IsZero() {
		ms := before.CreatedAt.UnixMilli()
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, ms, ms, before.ID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	var msgs []*chat.Message
	byID := make(map[string]*chat.Message)
	for rows.Next() {
		var m chat.Message
		var created int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.Image, &created); err != nil {
			_ = rows.Close()
			return nil, err
		}
		m.CreatedAt = fromMillis(created)
		msgs = append(msgs, &m)
		byID[m.ID] = &m
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()
	slices.Reverse(msgs)

	if len(msgs) == 0 {
		return msgs, nil
	}
	seen, err := q.QueryContext(ctx, `
		SELECT s.message_id, s.user_id
		FROM message_seen s
		JOIN messages m ON m.id = s.message_id
		WHERE m.conversation_id = ?
		ORDER BY s.seen_at, s.user_id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list seen: %w", err)
	}
	defer func() { _ = seen.Close() }()
	for seen.Next() {
		var mid, uid string
		if err := seen.Scan(&mid, &uid); err != nil {
			return nil, err
		}
		if m, ok := byID[mid]; ok {
			m.SeenBy = append(m.SeenBy, uid)
		}
	}
	return msgs, seen.Err()
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
