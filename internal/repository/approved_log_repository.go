package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/factorylabs/be-process-reports/internal/apperrors"
	"github.com/factorylabs/be-process-reports/internal/database"
)

// ApprovedLogRepository appends and reads the per-submission approval trail.
// Entries are append-only; the single deletion path is the Rejected-entry
// purge performed by the resubmission engine.
type ApprovedLogRepository struct {
	db *database.DB
}

// NewApprovedLogRepository creates a new ApprovedLogRepository.
func NewApprovedLogRepository(db *database.DB) *ApprovedLogRepository {
	return &ApprovedLogRepository{db: db}
}

// AppendTx inserts one approval-action record inside the caller's
// transaction. This is the only place approval comments are persisted.
func (r *ApprovedLogRepository) AppendTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, entry *ApprovedLog) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (submission_id, approver_user_id, level, action, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, cfg.ApprovedLogTable)

	err := tx.QueryRow(ctx, query,
		entry.SubmissionID,
		entry.ApproverUserID,
		entry.Level,
		entry.Action,
		entry.Comment,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to append approved log")
	}
	return nil
}

// PurgeRejectedTx deletes only Rejected-tagged entries for a submission so a
// fresh approval cycle starts without losing prior approved history.
func (r *ApprovedLogRepository) PurgeRejectedTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, submissionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE submission_id = $1 AND action = $2`, cfg.ApprovedLogTable)
	if _, err := tx.Exec(ctx, query, submissionID, StatusRejected); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to purge rejected log entries")
	}
	return nil
}

// DeleteBySubmissionTx removes all entries for a submission (delete cascade).
func (r *ApprovedLogRepository) DeleteBySubmissionTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, submissionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE submission_id = $1`, cfg.ApprovedLogTable)
	if _, err := tx.Exec(ctx, query, submissionID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to delete approved log entries")
	}
	return nil
}

// ListBySubmission returns the trail oldest-first.
func (r *ApprovedLogRepository) ListBySubmission(ctx context.Context, cfg CategoryConfig, submissionID string) ([]*ApprovedLog, error) {
	query := fmt.Sprintf(`
		SELECT id, submission_id, approver_user_id, level, action, comment, created_at
		FROM %s
		WHERE submission_id = $1
		ORDER BY created_at ASC
	`, cfg.ApprovedLogTable)

	rows, err := r.db.Query(ctx, query, submissionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list approved log")
	}
	defer rows.Close()

	var entries []*ApprovedLog
	for rows.Next() {
		e := &ApprovedLog{}
		err := rows.Scan(&e.ID, &e.SubmissionID, &e.ApproverUserID, &e.Level, &e.Action, &e.Comment, &e.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan approved log entry")
		}
		entries = append(entries, e)
	}
	return entries, nil
}
