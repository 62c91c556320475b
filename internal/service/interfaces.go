package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/factorylabs/be-process-reports/internal/formdata"
	"github.com/factorylabs/be-process-reports/internal/repository"
)

// The services depend on narrow store interfaces rather than the concrete
// repositories so the state machine can be tested against mocks.

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	InTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// SubmissionStore persists submission rows.
type SubmissionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, sub *repository.Submission) error
	GetByID(ctx context.Context, cfg repository.CategoryConfig, id string) (*repository.Submission, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, id string) (*repository.Submission, error)
	LotNoExists(ctx context.Context, cfg repository.CategoryConfig, lotNo string) (bool, error)
	List(ctx context.Context, cfg repository.CategoryConfig, filter repository.SubmissionFilter) ([]*repository.Submission, int64, error)
	UpdateContentTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, id, lotNo, status string, submittedAt time.Time, formData map[string]any, metrics formdata.Metrics) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, id, status string) error
	DeleteTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, id string) error
}

// FlowStore persists approval flow steps.
type FlowStore interface {
	InsertStepsTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string, steps []*repository.ApprovalFlowStep) error
	GetPendingStepTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) (*repository.ApprovalFlowStep, error)
	UpdateStepTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, stepID, status, approverUserID string) error
	CountPendingTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) (int, error)
	DeleteBySubmissionTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) error
	ListBySubmission(ctx context.Context, cfg repository.CategoryConfig, submissionID string) ([]*repository.FlowStepView, error)
}

// ApprovedLogStore persists the per-submission approval trail.
type ApprovedLogStore interface {
	AppendTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, entry *repository.ApprovedLog) error
	PurgeRejectedTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) error
	DeleteBySubmissionTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) error
	ListBySubmission(ctx context.Context, cfg repository.CategoryConfig, submissionID string) ([]*repository.ApprovedLog, error)
}

// ActivityLogStore persists the broad audit trail.
type ActivityLogStore interface {
	Append(ctx context.Context, entry *repository.ActivityLog) error
	ListByTarget(ctx context.Context, category, targetID string) ([]*repository.ActivityLog, error)
}

// UserStore resolves approval-level master data.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
}

// VersionSetStore resolves template version sets.
type VersionSetStore interface {
	ResolveTx(ctx context.Context, tx pgx.Tx, category string, templateIDs []int) (string, error)
	GetByID(ctx context.Context, id string) (*repository.TemplateVersionSet, error)
}

// RefreshNotifier emits best-effort refresh signals to live observers.
type RefreshNotifier interface {
	PublishRefresh(category, submissionID, action string)
}
