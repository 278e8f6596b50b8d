package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"craftlink-chat/internal/domain/notification"
)

type PostgresPreferenceStore struct {
	db DBTX
}

func NewPreferenceStore(db DBTX) PreferenceStore {
	return &PostgresPreferenceStore{db: db}
}

// GetPreference joins notification_preferences with the user's email. A user
// without a preferences row gets the defaults (both channels enabled) so a
// missing settings write never silences notifications.
func (r *PostgresPreferenceStore) GetPreference(ctx context.Context, userID uuid.UUID) (notification.Preference, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.id,
		       COALESCE(p.push_enabled, TRUE),
		       COALESCE(p.email_enabled, TRUE),
		       COALESCE(p.push_token, ''),
		       COALESCE(u.email, ''),
		       COALESCE(p.updated_at, u.created_at)
		FROM users u
		LEFT JOIN notification_preferences p ON p.user_id = u.id
		WHERE u.id = $1`, userID)

	var pref notification.Preference
	err := row.Scan(&pref.UserID, &pref.PushEnabled, &pref.EmailEnabled,
		&pref.PushToken, &pref.EmailAddress, &pref.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return notification.Preference{}, errNotFound()
	}
	if err != nil {
		return notification.Preference{}, err
	}
	return pref, nil
}
