package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"craftlink-chat/internal/domain/conversation"
	chat_errors "craftlink-chat/pkg/errors"
)

type PostgresUserDirectory struct {
	db DBTX
}

func NewUserDirectory(db DBTX) UserDirectory {
	return &PostgresUserDirectory{db: db}
}

func (r *PostgresUserDirectory) GetParticipant(ctx context.Context, id uuid.UUID) (conversation.Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, display_name, role, COALESCE(email, '')
		FROM users WHERE id = $1`, id)

	var p conversation.Participant
	err := row.Scan(&p.ID, &p.DisplayName, &p.Role, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return conversation.Participant{}, errNotFound()
	}
	if err != nil {
		return conversation.Participant{}, err
	}
	return p, nil
}

func errNotFound() error {
	return chat_errors.ErrNotFound
}
