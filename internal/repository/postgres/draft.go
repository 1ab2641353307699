package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"govdoc/pkg/domain"
	"govdoc/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DraftRepository persists wizard drafts as JSON documents. The friendly
// order code is assigned by a sequence on first save and never changes.
type DraftRepository struct {
	db *sqlx.DB
}

func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

type draftRow struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	ServiceID       string          `db:"service_id"`
	Status          string          `db:"status"`
	FriendlyOrderID string          `db:"friendly_order_id"`
	Payload         json.RawMessage `db:"payload"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// SaveDraft upserts the full draft payload. The first insert reserves a
// friendly order code from order_code_seq; later saves keep the existing one.
func (r *DraftRepository) SaveDraft(ctx context.Context, session *domain.WizardSession) (string, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode draft payload")
	}

	query := `
		INSERT INTO order_schema.wizard_drafts (
			id, user_id, service_id, status, friendly_order_id, payload, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			'GD-' || to_char(now(), 'YYYY') || '-' || lpad(nextval('order_schema.order_code_seq')::text, 6, '0'),
			$5, $6, $7
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
		RETURNING friendly_order_id
	`

	now := time.Now()
	var friendly string
	err = r.db.QueryRowContext(ctx, query,
		session.ID, session.UserID, session.ServiceID, string(session.Status),
		payload, session.CreatedAt, now,
	).Scan(&friendly)
	if err != nil {
		return "", errors.Wrap(err, "failed to save draft")
	}

	return friendly, nil
}

// FindDraft loads a draft by id. The payload is the source of truth; the
// row's status and friendly code are reapplied on top in case the payload
// was written before submission.
func (r *DraftRepository) FindDraft(ctx context.Context, id uuid.UUID) (*domain.WizardSession, error) {
	query := `
		SELECT id, user_id, service_id, status, friendly_order_id, payload, created_at, updated_at
		FROM order_schema.wizard_drafts
		WHERE id = $1
	`

	var row draftRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load draft")
	}

	var session domain.WizardSession
	if err := json.Unmarshal(row.Payload, &session); err != nil {
		return nil, errors.Wrap(err, "failed to decode draft payload")
	}
	session.Status = domain.DraftStatus(row.Status)
	session.FriendlyOrderID = row.FriendlyOrderID

	return &session, nil
}

// ListDraftsByUser returns the user's drafts, newest first.
func (r *DraftRepository) ListDraftsByUser(ctx context.Context, userID uuid.UUID) ([]domain.WizardSession, error) {
	query := `
		SELECT id, user_id, service_id, status, friendly_order_id, payload, created_at, updated_at
		FROM order_schema.wizard_drafts
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	var rows []draftRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "failed to list drafts")
	}

	sessions := make([]domain.WizardSession, 0, len(rows))
	for _, row := range rows {
		var session domain.WizardSession
		if err := json.Unmarshal(row.Payload, &session); err != nil {
			return nil, errors.Wrap(err, "failed to decode draft payload")
		}
		session.Status = domain.DraftStatus(row.Status)
		session.FriendlyOrderID = row.FriendlyOrderID
		sessions = append(sessions, session)
	}

	return sessions, nil
}

// MarkSubmitted flips the draft into its terminal state.
func (r *DraftRepository) MarkSubmitted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE order_schema.wizard_drafts
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, string(domain.DraftStatusSubmitted), time.Now(), id)
	if err != nil {
		return errors.Wrap(err, "failed to mark draft submitted")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to mark draft submitted")
	}
	if affected == 0 {
		return fmt.Errorf("draft %s: %w", id, errors.ErrSessionNotFound)
	}

	return nil
}
