package repository

import (
	"context"
	"encoding/json"

	"github.com/factorylabs/be-process-reports/internal/apperrors"
	"github.com/factorylabs/be-process-reports/internal/database"
)

// ActivityLogRepository appends and reads the broad append-only audit trail.
// The engine never mutates or deletes entries; even submission deletion
// leaves its activity history in place.
type ActivityLogRepository struct {
	db *database.DB
}

// NewActivityLogRepository creates a new ActivityLogRepository.
func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Append inserts one entry. Callers treat failures as non-fatal: an approval
// that succeeds but fails to log is still a successful approval.
func (r *ActivityLogRepository) Append(ctx context.Context, entry *ActivityLog) error {
	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to marshal activity details")
		}
	}

	query := `
		INSERT INTO activity_logs (category, target_id, actor, action, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.Category,
		entry.TargetID,
		entry.Actor,
		entry.Action,
		detailsJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to append activity log")
	}
	return nil
}

// ListByTarget returns the activity trail for one submission oldest-first.
func (r *ActivityLogRepository) ListByTarget(ctx context.Context, category, targetID string) ([]*ActivityLog, error) {
	query := `
		SELECT id, category, target_id, actor, action, details, created_at
		FROM activity_logs
		WHERE category = $1 AND target_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, category, targetID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list activity log")
	}
	defer rows.Close()

	var entries []*ActivityLog
	for rows.Next() {
		e := &ActivityLog{}
		var detailsJSON []byte
		err := rows.Scan(&e.ID, &e.Category, &e.TargetID, &e.Actor, &e.Action, &detailsJSON, &e.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan activity log entry")
		}
		if detailsJSON != nil {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to unmarshal activity details")
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
