package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/factorylabs/be-process-reports/internal/apperrors"
	"github.com/factorylabs/be-process-reports/internal/logger"
	"github.com/factorylabs/be-process-reports/internal/repository"
)

type submissionFixture struct {
	svc         *SubmissionService
	submissions *MockSubmissionStore
	flows       *MockFlowStore
	approvedLog *MockApprovedLogStore
	activityLog *MockActivityLogStore
	versionSets *MockVersionSetStore
	users       *MockUserStore
}

func newSubmissionFixture() *submissionFixture {
	f := &submissionFixture{
		submissions: &MockSubmissionStore{},
		flows:       &MockFlowStore{},
		approvedLog: &MockApprovedLogStore{},
		activityLog: &MockActivityLogStore{},
		versionSets: &MockVersionSetStore{},
		users:       &MockUserStore{},
	}
	f.svc = NewSubmissionService(
		&fakeTxRunner{}, f.submissions, f.flows, f.approvedLog, f.activityLog,
		f.versionSets, f.users, logger.New(logger.Config{Level: "error"}))
	return f
}

func validCreateRequest() *CreateSubmissionRequest {
	return &CreateSubmissionRequest{
		Category:    repository.CategoryStandard,
		FormType:    "daily-process",
		LotNo:       "LOT-001",
		TemplateIDs: []int{1, 2, 3},
		FormData:    map[string]any{"header": map[string]any{"inputKg": "120.5"}},
		SubmittedBy: "dave",
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateSubmissionRequest)
	}{
		{"missing form type", func(r *CreateSubmissionRequest) { r.FormType = "" }},
		{"missing lot number", func(r *CreateSubmissionRequest) { r.LotNo = "" }},
		{"empty template set", func(r *CreateSubmissionRequest) { r.TemplateIDs = nil }},
		{"missing submitter", func(r *CreateSubmissionRequest) { r.SubmittedBy = "" }},
		{"unknown category", func(r *CreateSubmissionRequest) { r.Category = "bogus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubmissionFixture()
			req := validCreateRequest()
			tt.mutate(req)

			_, err := f.svc.Create(context.Background(), req)

			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeValidation, apperrors.Code(err))
		})
	}
}

func TestCreate_DuplicateLotNoIsConflict(t *testing.T) {
	f := newSubmissionFixture()

	f.submissions.On("LotNoExists", mock.Anything, mock.Anything, "LOT-001").Return(true, nil)

	_, err := f.svc.Create(context.Background(), validCreateRequest())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.Code(err))
}

func TestCreate_ResolvesVersionSetAndGeneratesFlow(t *testing.T) {
	f := newSubmissionFixture()

	f.submissions.On("LotNoExists", mock.Anything, mock.Anything, "LOT-001").Return(false, nil)
	f.users.On("GetByID", mock.Anything, "dave").
		Return(&repository.User{ID: "dave", ApprovalLevel: 1}, nil)
	f.versionSets.On("ResolveTx", mock.Anything, mock.Anything, "standard", []int{1, 2, 3}).
		Return("vs-1", nil)
	f.submissions.On("CreateTx", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(sub *repository.Submission) bool {
			return sub.VersionSetID == "vs-1" &&
				sub.Status == repository.StatusPending &&
				sub.Metrics.InputKg == 120.5
		})).Run(func(args mock.Arguments) {
		args.Get(3).(*repository.Submission).ID = "sub-1"
	}).Return(nil)
	f.flows.On("InsertStepsTx", mock.Anything, mock.Anything, mock.Anything, "sub-1",
		mock.MatchedBy(func(steps []*repository.ApprovalFlowStep) bool {
			return len(steps) == 2 && steps[0].RequiredLevel == 2 && steps[1].RequiredLevel == 3
		})).Return(nil)
	f.activityLog.On("Append", mock.Anything, mock.Anything).Return(nil)

	sub, err := f.svc.Create(context.Background(), validCreateRequest())

	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, repository.StatusPending, sub.Status)
	f.flows.AssertExpectations(t)
}

func TestCreate_CeilingLevelSubmitterIsAutoApproved(t *testing.T) {
	f := newSubmissionFixture()

	f.submissions.On("LotNoExists", mock.Anything, mock.Anything, "LOT-001").Return(false, nil)
	f.users.On("GetByID", mock.Anything, "dave").
		Return(&repository.User{ID: "dave", ApprovalLevel: 3}, nil)
	f.versionSets.On("ResolveTx", mock.Anything, mock.Anything, "standard", []int{1, 2, 3}).
		Return("vs-1", nil)
	f.submissions.On("CreateTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)
	f.activityLog.On("Append", mock.Anything, mock.Anything).Return(nil)

	sub, err := f.svc.Create(context.Background(), validCreateRequest())

	require.NoError(t, err)
	assert.Equal(t, repository.StatusApproved, sub.Status)
	f.flows.AssertNotCalled(t, "InsertStepsTx",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_UnknownSubmitterPersistsWithoutFlow(t *testing.T) {
	f := newSubmissionFixture()

	f.submissions.On("LotNoExists", mock.Anything, mock.Anything, "LOT-001").Return(false, nil)
	f.users.On("GetByID", mock.Anything, "dave").
		Return(nil, apperrors.NotFound("user", "dave"))
	f.versionSets.On("ResolveTx", mock.Anything, mock.Anything, "standard", []int{1, 2, 3}).
		Return("vs-1", nil)
	f.submissions.On("CreateTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)
	f.activityLog.On("Append", mock.Anything, mock.Anything).Return(nil)

	sub, err := f.svc.Create(context.Background(), validCreateRequest())

	require.NoError(t, err)
	assert.Equal(t, repository.StatusPending, sub.Status)
	f.flows.AssertNotCalled(t, "InsertStepsTx",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_RejectsApprovedSubmission(t *testing.T) {
	f := newSubmissionFixture()

	f.submissions.On("GetByID", mock.Anything, mock.Anything, "sub-1").
		Return(&repository.Submission{
			ID:          "sub-1",
			LotNo:       "LOT-001",
			SubmittedBy: "dave",
			Status:      repository.StatusApproved,
		}, nil)

	err := f.svc.Update(context.Background(), &UpdateSubmissionRequest{
		Category:     repository.CategoryStandard,
		SubmissionID: "sub-1",
		LotNo:        "LOT-001",
		FormData:     map[string]any{"a": 1.0},
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.Code(err))
}

func TestUpdate_RejectsNonOwner(t *testing.T) {
	f := newSubmissionFixture()

	f.submissions.On("GetByID", mock.Anything, mock.Anything, "sub-1").
		Return(&repository.Submission{
			ID:          "sub-1",
			LotNo:       "LOT-001",
			SubmittedBy: "dave",
			Status:      repository.StatusPending,
		}, nil)

	err := f.svc.Update(context.Background(), &UpdateSubmissionRequest{
		Category:     repository.CategoryStandard,
		SubmissionID: "sub-1",
		LotNo:        "LOT-001",
		FormData:     map[string]any{"a": 1.0},
		Actor:        "mallory",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.Code(err))
}

func TestDelete_CascadesFlowAndLogs(t *testing.T) {
	f := newSubmissionFixture()

	f.submissions.On("GetByID", mock.Anything, mock.Anything, "sub-1").
		Return(&repository.Submission{ID: "sub-1", LotNo: "LOT-001"}, nil)
	f.flows.On("DeleteBySubmissionTx", mock.Anything, mock.Anything, mock.Anything, "sub-1").Return(nil)
	f.approvedLog.On("DeleteBySubmissionTx", mock.Anything, mock.Anything, mock.Anything, "sub-1").Return(nil)
	f.submissions.On("DeleteTx", mock.Anything, mock.Anything, mock.Anything, "sub-1").Return(nil)
	f.activityLog.On("Append", mock.Anything, mock.Anything).Return(nil)

	err := f.svc.Delete(context.Background(), repository.CategoryStandard, "sub-1", "dave")

	require.NoError(t, err)
	f.flows.AssertExpectations(t)
	f.approvedLog.AssertExpectations(t)
	f.submissions.AssertExpectations(t)
}
