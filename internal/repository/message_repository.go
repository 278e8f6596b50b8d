package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/domain/message"
	chat_errors "craftlink-chat/pkg/errors"
)

type PostgresMessageStore struct {
	db DBTX
}

func NewMessageStore(db DBTX) MessageStore {
	return &PostgresMessageStore{db: db}
}

const messageColumns = `id, conversation_key, sender_id, recipient_id, body, image_url, status, created_at, delivered_at, read_at`

func (r *PostgresMessageStore) Create(ctx context.Context, m *message.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = message.StatusSent
	}

	// created_at is assigned by the database and clamped to the latest
	// timestamp already stored for the conversation, so a reader listing
	// history always observes non-decreasing timestamps.
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, conversation_key, sender_id, recipient_id, body, image_url, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, GREATEST(
			now(),
			COALESCE((SELECT max(created_at) FROM messages WHERE conversation_key = $2), now())
		))
		RETURNING created_at`,
		m.ID, m.ConversationKey, m.SenderID, m.RecipientID, m.Body, m.ImageURL, m.Status)

	if err := row.Scan(&m.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return chat_errors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *PostgresMessageStore) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	return scanMessage(row)
}

func (r *PostgresMessageStore) ListByConversation(ctx context.Context, key string, before time.Time, limit int) ([]message.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_key = $1`
	args := []interface{}{key}
	if !before.IsZero() {
		query += ` AND created_at < $2`
		args = append(args, before)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ` + buildPlaceholders(len(args)+1, 1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []message.Message
	for rows.Next() {
		m, err := scanMessageRows(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Page was fetched newest-first; flip to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *PostgresMessageStore) LatestMessage(ctx context.Context, key string) (message.Message, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_key = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, key)
	return scanMessage(row)
}

func (r *PostgresMessageStore) MarkRead(ctx context.Context, conversationKey string, ids []uuid.UUID, recipientID uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, conversationKey, recipientID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, `
		UPDATE messages
		SET status = 'read', read_at = now(),
		    delivered_at = COALESCE(delivered_at, now())
		WHERE conversation_key = $1 AND recipient_id = $2 AND status <> 'read'
		  AND id IN (`+buildPlaceholders(3, len(ids))+`)
		RETURNING id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changed []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		changed = append(changed, id)
	}
	return changed, rows.Err()
}

func (r *PostgresMessageStore) MarkDeliveredByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET status = 'delivered', delivered_at = now()
		WHERE id = $1 AND status = 'sent'`, id)
	return err
}

func (r *PostgresMessageStore) MarkConversationDelivered(ctx context.Context, key string, recipientID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET status = 'delivered', delivered_at = now()
		WHERE conversation_key = $1 AND recipient_id = $2 AND status = 'sent'`,
		key, recipientID)
	return err
}

func (r *PostgresMessageStore) ListSummaries(ctx context.Context, userID uuid.UUID) ([]conversation.Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (m.conversation_key)
			m.conversation_key,
			CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS peer_id,
			m.id, m.sender_id, m.recipient_id, m.body, m.image_url, m.status, m.created_at, m.delivered_at, m.read_at,
			(SELECT count(*) FROM messages u
			 WHERE u.conversation_key = m.conversation_key
			   AND u.recipient_id = $1 AND u.status <> 'read') AS unread
		FROM messages m
		WHERE m.sender_id = $1 OR m.recipient_id = $1
		ORDER BY m.conversation_key, m.created_at DESC, m.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []conversation.Summary
	for rows.Next() {
		var (
			s           conversation.Summary
			last        message.Message
			body, image sql.NullString
			deliveredAt sql.NullTime
			readAt      sql.NullTime
		)
		if err := rows.Scan(
			&s.Key, &s.PeerID,
			&last.ID, &last.SenderID, &last.RecipientID, &body, &image,
			&last.Status, &last.CreatedAt, &deliveredAt, &readAt,
			&s.UnreadCount,
		); err != nil {
			return nil, err
		}
		last.ConversationKey = s.Key
		last.Body = body.String
		last.ImageURL = image.String
		if deliveredAt.Valid {
			t := deliveredAt.Time
			last.DeliveredAt = &t
		}
		if readAt.Valid {
			t := readAt.Time
			last.ReadAt = &t
		}
		s.LastMessage = &last
		s.LastActivity = last.CreatedAt
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DISTINCT ON forces key order; the list surface wants recency order.
	sortSummariesByActivity(summaries)
	return summaries, nil
}

func (r *PostgresMessageStore) HasHistory(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE (sender_id = $1 AND recipient_id = $2)
			   OR (sender_id = $2 AND recipient_id = $1)
		)`, userA, userB).Scan(&exists)
	return exists, err
}

func sortSummariesByActivity(summaries []conversation.Summary) {
	// Insertion sort; conversation lists are small.
	for i := 1; i < len(summaries); i++ {
		for j := i; j > 0 && summaries[j].LastActivity.After(summaries[j-1].LastActivity); j-- {
			summaries[j], summaries[j-1] = summaries[j-1], summaries[j]
		}
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row *sql.Row) (message.Message, error) {
	m, err := scanMessageFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return message.Message{}, chat_errors.ErrNotFound
	}
	return m, err
}

func scanMessageRows(rows *sql.Rows) (message.Message, error) {
	return scanMessageFrom(rows)
}

func scanMessageFrom(row rowScanner) (message.Message, error) {
	var (
		m           message.Message
		body, image sql.NullString
		deliveredAt sql.NullTime
		readAt      sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.ConversationKey, &m.SenderID, &m.RecipientID,
		&body, &image, &m.Status, &m.CreatedAt, &deliveredAt, &readAt,
	)
	if err != nil {
		return message.Message{}, err
	}
	m.Body = body.String
	m.ImageURL = image.String
	if deliveredAt.Valid {
		t := deliveredAt.Time
		m.DeliveredAt = &t
	}
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}
	return m, nil
}
