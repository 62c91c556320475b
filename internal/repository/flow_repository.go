package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/factorylabs/be-process-reports/internal/apperrors"
	"github.com/factorylabs/be-process-reports/internal/database"
)

// FlowStepView is a flow step joined with approver display name and the
// latest comment recorded for its level, for the flow read endpoint.
type FlowStepView struct {
	ApprovalFlowStep
	ApproverName *string
	Comment      *string
}

// FlowRepository manages approval flow steps. Steps are created in a batch
// when a submission is (re)submitted and only ever deleted as a whole set;
// the pipeline's current step is computed, never stored.
type FlowRepository struct {
	db *database.DB
}

// NewFlowRepository creates a new FlowRepository.
func NewFlowRepository(db *database.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

// InsertStepsTx inserts a freshly generated flow inside the caller's
// transaction.
func (r *FlowRepository) InsertStepsTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, submissionID string, steps []*ApprovalFlowStep) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (submission_id, sequence, required_level, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, updated_at
	`, cfg.FlowsTable)

	for _, step := range steps {
		step.SubmissionID = submissionID
		err := tx.QueryRow(ctx, query,
			submissionID,
			step.Sequence,
			step.RequiredLevel,
			step.Status,
		).Scan(&step.ID, &step.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to insert flow step")
		}
	}
	return nil
}

// GetPendingStepTx returns the lowest-sequence Pending step for a submission,
// locked for the duration of the transaction so two concurrent approval
// actions cannot both advance it. Returns nil when no step is pending.
func (r *FlowRepository) GetPendingStepTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, submissionID string) (*ApprovalFlowStep, error) {
	query := fmt.Sprintf(`
		SELECT id, submission_id, sequence, required_level, status, approver_user_id, updated_at
		FROM %s
		WHERE submission_id = $1 AND status = $2
		ORDER BY sequence ASC
		LIMIT 1
		FOR UPDATE
	`, cfg.FlowsTable)

	step := &ApprovalFlowStep{}
	err := tx.QueryRow(ctx, query, submissionID, StatusPending).Scan(
		&step.ID,
		&step.SubmissionID,
		&step.Sequence,
		&step.RequiredLevel,
		&step.Status,
		&step.ApproverUserID,
		&step.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get pending step")
	}
	return step, nil
}

// UpdateStepTx records the outcome of an approval action on one step.
func (r *FlowRepository) UpdateStepTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, stepID, status, approverUserID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2,
		    approver_user_id = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`, cfg.FlowsTable)

	var returnedID string
	err := tx.QueryRow(ctx, query, stepID, status, approverUserID).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound("flow_step", stepID)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update flow step")
	}
	return nil
}

// CountPendingTx returns how many steps are still Pending for a submission.
func (r *FlowRepository) CountPendingTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, submissionID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE submission_id = $1 AND status = $2
	`, cfg.FlowsTable)

	var count int
	if err := tx.QueryRow(ctx, query, submissionID, StatusPending).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count pending steps")
	}
	return count, nil
}

// DeleteBySubmissionTx discards the entire flow. Resubmission never resets
// steps in place: a new submitter level can change the shape of the flow.
func (r *FlowRepository) DeleteBySubmissionTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, submissionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE submission_id = $1`, cfg.FlowsTable)
	if _, err := tx.Exec(ctx, query, submissionID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to delete flow steps")
	}
	return nil
}

// ListBySubmission returns all steps ordered by sequence, joined with the
// approver's display name and the latest comment recorded for each level.
func (r *FlowRepository) ListBySubmission(ctx context.Context, cfg CategoryConfig, submissionID string) ([]*FlowStepView, error) {
	query := fmt.Sprintf(`
		SELECT f.id, f.submission_id, f.sequence, f.required_level, f.status,
		       f.approver_user_id, f.updated_at,
		       u.display_name,
		       c.comment
		FROM %s f
		LEFT JOIN users u ON u.id = f.approver_user_id
		LEFT JOIN LATERAL (
			SELECT comment FROM %s al
			WHERE al.submission_id = f.submission_id
			  AND al.level = f.required_level
			ORDER BY al.created_at DESC
			LIMIT 1
		) c ON TRUE
		WHERE f.submission_id = $1
		ORDER BY f.sequence ASC
	`, cfg.FlowsTable, cfg.ApprovedLogTable)

	rows, err := r.db.Query(ctx, query, submissionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list flow steps")
	}
	defer rows.Close()

	var steps []*FlowStepView
	for rows.Next() {
		v := &FlowStepView{}
		err := rows.Scan(
			&v.ID,
			&v.SubmissionID,
			&v.Sequence,
			&v.RequiredLevel,
			&v.Status,
			&v.ApproverUserID,
			&v.UpdatedAt,
			&v.ApproverName,
			&v.Comment,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan flow step")
		}
		steps = append(steps, v)
	}
	return steps, nil
}
