package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/factorylabs/be-process-reports/internal/apperrors"
	"github.com/factorylabs/be-process-reports/internal/database"
	"github.com/factorylabs/be-process-reports/internal/formdata"
)

const submissionColumns = `id, version_set_id, form_type, lot_no, production_line,
	       submitted_by, status, submitted_at, form_data,
	       input_kg, output_kg, yield_percent, total_qty,
	       production_date, moisture, ncr_actual, pallet_data,
	       created_at, updated_at`

// SubmissionFilter narrows a submission listing.
type SubmissionFilter struct {
	Search      *string // matches lot_no or form_type
	Status      *string
	FormType    *string
	SubmittedBy *string
	FromDate    *string // inclusive, YYYY-MM-DD against submitted_at
	ToDate      *string
	Limit       int
	Offset      int
}

// SubmissionRepository handles submission rows for any category family.
type SubmissionRepository struct {
	db *database.DB
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(db *database.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// CreateTx inserts a submission inside the caller's transaction (shared with
// version-set resolution). A unique index on lot_no backs the pre-check; a
// concurrent duplicate surfaces as a conflict error here.
func (r *SubmissionRepository) CreateTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, sub *Submission) error {
	formJSON, palletJSON, err := marshalPayloads(sub)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (version_set_id, form_type, lot_no, production_line,
		                submitted_by, status, submitted_at, form_data,
		                input_kg, output_kg, yield_percent, total_qty,
		                production_date, moisture, ncr_actual, pallet_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`, cfg.SubmissionsTable)

	err = tx.QueryRow(ctx, query,
		sub.VersionSetID,
		sub.FormType,
		sub.LotNo,
		sub.ProductionLine,
		sub.SubmittedBy,
		sub.Status,
		sub.SubmittedAt,
		formJSON,
		sub.Metrics.InputKg,
		sub.Metrics.OutputKg,
		sub.Metrics.YieldPercent,
		sub.Metrics.TotalQty,
		sub.Metrics.ProductionDate,
		sub.Metrics.Moisture,
		sub.Metrics.NCRActual,
		palletJSON,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)

	if isUniqueViolation(err) {
		return apperrors.New(apperrors.ErrCodeConflict,
			fmt.Sprintf("lot number %q already exists", sub.LotNo))
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create submission")
	}
	return nil
}

// GetByID retrieves a submission.
func (r *SubmissionRepository) GetByID(ctx context.Context, cfg CategoryConfig, id string) (*Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, submissionColumns, cfg.SubmissionsTable)
	sub, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("submission", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get submission")
	}
	return sub, nil
}

// GetByIDTx retrieves a submission inside a transaction, locking the row so
// concurrent approval actions on the same submission serialize.
func (r *SubmissionRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, id string) (*Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, submissionColumns, cfg.SubmissionsTable)
	sub, err := scanSubmission(tx.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("submission", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get submission")
	}
	return sub, nil
}

// LotNoExists is the friendly duplicate pre-check before insert. The unique
// index remains the authoritative guard.
func (r *SubmissionRepository) LotNoExists(ctx context.Context, cfg CategoryConfig, lotNo string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE lot_no = $1)`, cfg.SubmissionsTable)
	var exists bool
	if err := r.db.QueryRow(ctx, query, lotNo).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to check lot number")
	}
	return exists, nil
}

// List retrieves submissions with filtering and pagination.
func (r *SubmissionRepository) List(ctx context.Context, cfg CategoryConfig, filter SubmissionFilter) ([]*Submission, int64, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE TRUE`, submissionColumns, cfg.SubmissionsTable)
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE TRUE`, cfg.SubmissionsTable)

	args := []any{}
	argCount := 1

	addCond := func(cond string, value any) {
		clause := fmt.Sprintf(cond, argCount)
		query += clause
		countQuery += clause
		args = append(args, value)
		argCount++
	}

	if filter.Search != nil {
		addCond(" AND (lot_no ILIKE $%[1]d OR form_type ILIKE $%[1]d)", "%"+*filter.Search+"%")
	}
	if filter.Status != nil {
		addCond(" AND status = $%d", *filter.Status)
	}
	if filter.FormType != nil {
		addCond(" AND form_type = $%d", *filter.FormType)
	}
	if filter.SubmittedBy != nil {
		addCond(" AND submitted_by = $%d", *filter.SubmittedBy)
	}
	if filter.FromDate != nil {
		addCond(" AND submitted_at >= $%d", *filter.FromDate)
	}
	if filter.ToDate != nil {
		addCond(" AND submitted_at < ($%d::date + 1)", *filter.ToDate)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count submissions")
	}

	query += fmt.Sprintf(" ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list submissions")
	}
	defer rows.Close()

	subs := make([]*Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan submission")
		}
		subs = append(subs, sub)
	}

	return subs, total, nil
}

// UpdateContentTx overwrites form data, metrics, status and submitted_at in
// one statement. Used by both the pre-approval edit and the resubmission
// engine inside their transactions.
func (r *SubmissionRepository) UpdateContentTx(
	ctx context.Context,
	tx pgx.Tx,
	cfg CategoryConfig,
	id, lotNo, status string,
	submittedAt time.Time,
	formData map[string]any,
	metrics formdata.Metrics,
) error {
	sub := &Submission{FormData: formData, Metrics: metrics}
	formJSON, palletJSON, err := marshalPayloads(sub)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET lot_no = $2,
		    status = $3,
		    submitted_at = $4,
		    form_data = $5,
		    input_kg = $6,
		    output_kg = $7,
		    yield_percent = $8,
		    total_qty = $9,
		    production_date = $10,
		    moisture = $11,
		    ncr_actual = $12,
		    pallet_data = $13,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`, cfg.SubmissionsTable)

	var returnedID string
	err = tx.QueryRow(ctx, query, id, lotNo, status, submittedAt, formJSON,
		metrics.InputKg, metrics.OutputKg, metrics.YieldPercent, metrics.TotalQty,
		metrics.ProductionDate, metrics.Moisture, metrics.NCRActual, palletJSON,
	).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound("submission", id)
	}
	if isUniqueViolation(err) {
		return apperrors.New(apperrors.ErrCodeConflict,
			fmt.Sprintf("lot number %q already exists", lotNo))
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update submission")
	}
	return nil
}

// UpdateStatusTx sets the aggregate submission status.
func (r *SubmissionRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, id, status string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`, cfg.SubmissionsTable)

	var returnedID string
	err := tx.QueryRow(ctx, query, id, status).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound("submission", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update submission status")
	}
	return nil
}

// DeleteTx removes a submission row. Flow and log rows are removed by the
// caller in the same transaction.
func (r *SubmissionRepository) DeleteTx(ctx context.Context, tx pgx.Tx, cfg CategoryConfig, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, cfg.SubmissionsTable)
	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to delete submission")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("submission", id)
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type submissionScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row submissionScanner) (*Submission, error) {
	sub := &Submission{}
	var formJSON, palletJSON []byte

	err := row.Scan(
		&sub.ID,
		&sub.VersionSetID,
		&sub.FormType,
		&sub.LotNo,
		&sub.ProductionLine,
		&sub.SubmittedBy,
		&sub.Status,
		&sub.SubmittedAt,
		&formJSON,
		&sub.Metrics.InputKg,
		&sub.Metrics.OutputKg,
		&sub.Metrics.YieldPercent,
		&sub.Metrics.TotalQty,
		&sub.Metrics.ProductionDate,
		&sub.Metrics.Moisture,
		&sub.Metrics.NCRActual,
		&palletJSON,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if formJSON != nil {
		if err := json.Unmarshal(formJSON, &sub.FormData); err != nil {
			return nil, fmt.Errorf("unmarshal form data: %w", err)
		}
	}
	if palletJSON != nil {
		if err := json.Unmarshal(palletJSON, &sub.Metrics.PalletData); err != nil {
			return nil, fmt.Errorf("unmarshal pallet data: %w", err)
		}
	}

	return sub, nil
}

func marshalPayloads(sub *Submission) (formJSON, palletJSON []byte, err error) {
	formJSON, err = json.Marshal(sub.FormData)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to marshal form data")
	}
	if sub.Metrics.PalletData != nil {
		palletJSON, err = json.Marshal(sub.Metrics.PalletData)
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to marshal pallet data")
		}
	}
	return formJSON, palletJSON, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
