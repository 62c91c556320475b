package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/factorylabs/be-process-reports/internal/formdata"
	"github.com/factorylabs/be-process-reports/internal/repository"
)

// fakeTxRunner executes the transaction body directly with a nil tx; the
// store mocks ignore the tx argument.
type fakeTxRunner struct {
	beginErr error
}

func (f *fakeTxRunner) InTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(nil)
}

type MockSubmissionStore struct {
	mock.Mock
}

func (m *MockSubmissionStore) CreateTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, sub *repository.Submission) error {
	args := m.Called(ctx, tx, cfg, sub)
	return args.Error(0)
}

func (m *MockSubmissionStore) GetByID(ctx context.Context, cfg repository.CategoryConfig, id string) (*repository.Submission, error) {
	args := m.Called(ctx, cfg, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Submission), args.Error(1)
}

func (m *MockSubmissionStore) GetByIDTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, id string) (*repository.Submission, error) {
	args := m.Called(ctx, tx, cfg, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Submission), args.Error(1)
}

func (m *MockSubmissionStore) LotNoExists(ctx context.Context, cfg repository.CategoryConfig, lotNo string) (bool, error) {
	args := m.Called(ctx, cfg, lotNo)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubmissionStore) List(ctx context.Context, cfg repository.CategoryConfig, filter repository.SubmissionFilter) ([]*repository.Submission, int64, error) {
	args := m.Called(ctx, cfg, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*repository.Submission), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubmissionStore) UpdateContentTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, id, lotNo, status string, submittedAt time.Time, formData map[string]any, metrics formdata.Metrics) error {
	args := m.Called(ctx, tx, cfg, id, lotNo, status, submittedAt, formData, metrics)
	return args.Error(0)
}

func (m *MockSubmissionStore) UpdateStatusTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, id, status string) error {
	args := m.Called(ctx, tx, cfg, id, status)
	return args.Error(0)
}

func (m *MockSubmissionStore) DeleteTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, id string) error {
	args := m.Called(ctx, tx, cfg, id)
	return args.Error(0)
}

type MockFlowStore struct {
	mock.Mock
}

func (m *MockFlowStore) InsertStepsTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string, steps []*repository.ApprovalFlowStep) error {
	args := m.Called(ctx, tx, cfg, submissionID, steps)
	return args.Error(0)
}

func (m *MockFlowStore) GetPendingStepTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) (*repository.ApprovalFlowStep, error) {
	args := m.Called(ctx, tx, cfg, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ApprovalFlowStep), args.Error(1)
}

func (m *MockFlowStore) UpdateStepTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, stepID, status, approverUserID string) error {
	args := m.Called(ctx, tx, cfg, stepID, status, approverUserID)
	return args.Error(0)
}

func (m *MockFlowStore) CountPendingTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) (int, error) {
	args := m.Called(ctx, tx, cfg, submissionID)
	return args.Int(0), args.Error(1)
}

func (m *MockFlowStore) DeleteBySubmissionTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) error {
	args := m.Called(ctx, tx, cfg, submissionID)
	return args.Error(0)
}

func (m *MockFlowStore) ListBySubmission(ctx context.Context, cfg repository.CategoryConfig, submissionID string) ([]*repository.FlowStepView, error) {
	args := m.Called(ctx, cfg, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.FlowStepView), args.Error(1)
}

type MockApprovedLogStore struct {
	mock.Mock
}

func (m *MockApprovedLogStore) AppendTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, entry *repository.ApprovedLog) error {
	args := m.Called(ctx, tx, cfg, entry)
	return args.Error(0)
}

func (m *MockApprovedLogStore) PurgeRejectedTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) error {
	args := m.Called(ctx, tx, cfg, submissionID)
	return args.Error(0)
}

func (m *MockApprovedLogStore) DeleteBySubmissionTx(ctx context.Context, tx pgx.Tx, cfg repository.CategoryConfig, submissionID string) error {
	args := m.Called(ctx, tx, cfg, submissionID)
	return args.Error(0)
}

func (m *MockApprovedLogStore) ListBySubmission(ctx context.Context, cfg repository.CategoryConfig, submissionID string) ([]*repository.ApprovedLog, error) {
	args := m.Called(ctx, cfg, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.ApprovedLog), args.Error(1)
}

type MockActivityLogStore struct {
	mock.Mock
}

func (m *MockActivityLogStore) Append(ctx context.Context, entry *repository.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityLogStore) ListByTarget(ctx context.Context, category, targetID string) ([]*repository.ActivityLog, error) {
	args := m.Called(ctx, category, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.ActivityLog), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*repository.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

type MockVersionSetStore struct {
	mock.Mock
}

func (m *MockVersionSetStore) ResolveTx(ctx context.Context, tx pgx.Tx, category string, templateIDs []int) (string, error) {
	args := m.Called(ctx, tx, category, templateIDs)
	return args.String(0), args.Error(1)
}

func (m *MockVersionSetStore) GetByID(ctx context.Context, id string) (*repository.TemplateVersionSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TemplateVersionSet), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishRefresh(category, submissionID, action string) {
	m.Called(category, submissionID, action)
}
