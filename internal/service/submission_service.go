package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/factorylabs/be-process-reports/internal/apperrors"
	"github.com/factorylabs/be-process-reports/internal/formdata"
	"github.com/factorylabs/be-process-reports/internal/logger"
	"github.com/factorylabs/be-process-reports/internal/repository"
)

// SubmissionService handles submission lifecycle outside the approval state
// machine: creation with version-set resolution, reads, pre-approval edits
// and deletion.
type SubmissionService struct {
	tx          TxRunner
	submissions SubmissionStore
	flows       FlowStore
	approvedLog ApprovedLogStore
	activityLog ActivityLogStore
	versionSets VersionSetStore
	users       UserStore
	log         *logger.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	tx TxRunner,
	submissions SubmissionStore,
	flows FlowStore,
	approvedLog ApprovedLogStore,
	activityLog ActivityLogStore,
	versionSets VersionSetStore,
	users UserStore,
	log *logger.Logger,
) *SubmissionService {
	return &SubmissionService{
		tx:          tx,
		submissions: submissions,
		flows:       flows,
		approvedLog: approvedLog,
		activityLog: activityLog,
		versionSets: versionSets,
		users:       users,
		log:         log,
	}
}

// CreateSubmissionRequest creates a new submission.
type CreateSubmissionRequest struct {
	Category    string
	FormType    string
	LotNo       string
	TemplateIDs []int
	FormData    map[string]any
	SubmittedBy string
}

// UpdateSubmissionRequest is a pre-approval edit.
type UpdateSubmissionRequest struct {
	Category     string
	SubmissionID string
	LotNo        string
	FormData     map[string]any
	Actor        string
}

// ListSubmissionsRequest filters a submission listing.
type ListSubmissionsRequest struct {
	Category    string
	Page        int
	PageSize    int
	Search      *string
	Status      *string
	FormType    *string
	SubmittedBy *string
	FromDate    *string
	ToDate      *string
}

// SubmissionDetail is a submission together with its version-set blueprint.
type SubmissionDetail struct {
	Submission *repository.Submission
	VersionSet *repository.TemplateVersionSet
}

// ── Create ────────────────────────────────────────────────────────────────────

// Create validates the request, resolves the template version set and inserts
// the submission in one transaction, then generates the approval flow in a
// second transaction. The split is deliberate: if the flow insert fails the
// submitted form still exists, a degraded state preferred over losing data.
func (s *SubmissionService) Create(ctx context.Context, req *CreateSubmissionRequest) (*repository.Submission, error) {
	cfg, err := repository.CategoryFor(req.Category)
	if err != nil {
		return nil, err
	}
	if req.FormType == "" {
		return nil, apperrors.InvalidInput("form_type", "form type is required")
	}
	if req.LotNo == "" {
		return nil, apperrors.InvalidInput("lot_no", "lot number is required")
	}
	if len(req.TemplateIDs) == 0 {
		return nil, apperrors.InvalidInput("template_ids", "at least one template id is required")
	}
	if req.SubmittedBy == "" {
		return nil, apperrors.InvalidInput("submitted_by", "submitter is required")
	}

	exists, err := s.submissions.LotNoExists(ctx, cfg, req.LotNo)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.New(apperrors.ErrCodeConflict,
			fmt.Sprintf("lot number %q already exists", req.LotNo))
	}

	metrics := formdata.Extract(req.FormData)

	// Unknown submitter level is a recognized degraded state: the form is
	// persisted Pending without a flow rather than not at all.
	level := -1
	if u, err := s.users.GetByID(ctx, req.SubmittedBy); err == nil {
		level = u.ApprovalLevel
	} else if apperrors.Code(err) != apperrors.ErrCodeNotFound {
		return nil, err
	}

	status := repository.StatusPending
	if level >= repository.MaxApprovalLevel {
		status = repository.StatusApproved
	}

	sub := &repository.Submission{
		FormType:       req.FormType,
		LotNo:          req.LotNo,
		ProductionLine: metrics.ProductionLine,
		SubmittedBy:    req.SubmittedBy,
		Status:         status,
		SubmittedAt:    time.Now(),
		FormData:       req.FormData,
		Metrics:        metrics,
	}

	err = s.tx.InTransaction(ctx, func(tx pgx.Tx) error {
		versionSetID, err := s.versionSets.ResolveTx(ctx, tx, req.Category, req.TemplateIDs)
		if err != nil {
			return err
		}
		sub.VersionSetID = versionSetID
		return s.submissions.CreateTx(ctx, tx, cfg, sub)
	})
	if err != nil {
		return nil, err
	}

	// Flow generation runs in its own transaction so a failure here never
	// rolls back the committed submission.
	if status == repository.StatusPending && level >= 0 {
		flowErr := s.tx.InTransaction(ctx, func(tx pgx.Tx) error {
			return s.flows.InsertStepsTx(ctx, tx, cfg, sub.ID, GenerateFlow(level))
		})
		if flowErr != nil {
			s.log.Error().Err(flowErr).
				Str("submission_id", sub.ID).
				Msg("Flow generation failed; submission left without a flow")
		}
	} else if level < 0 {
		s.log.Warn().
			Str("submission_id", sub.ID).
			Str("submitted_by", req.SubmittedBy).
			Msg("Submitter level unknown; flow generation skipped")
	}

	s.log.Info().
		Str("submission_id", sub.ID).
		Str("category", req.Category).
		Str("lot_no", sub.LotNo).
		Str("status", sub.Status).
		Int("submitter_level", level).
		Msg("Submission created")

	s.appendActivity(ctx, &repository.ActivityLog{
		Category: req.Category,
		TargetID: sub.ID,
		Actor:    req.SubmittedBy,
		Action:   "create",
		Details:  map[string]any{"lot_no": sub.LotNo, "form_type": sub.FormType},
	})

	return sub, nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// Get returns a submission with its version-set blueprint.
func (s *SubmissionService) Get(ctx context.Context, category, id string) (*SubmissionDetail, error) {
	cfg, err := repository.CategoryFor(category)
	if err != nil {
		return nil, err
	}

	sub, err := s.submissions.GetByID(ctx, cfg, id)
	if err != nil {
		return nil, err
	}
	vs, err := s.versionSets.GetByID(ctx, sub.VersionSetID)
	if err != nil {
		return nil, err
	}

	return &SubmissionDetail{Submission: sub, VersionSet: vs}, nil
}

// List returns a filtered page of submissions and the unpaged total.
func (s *SubmissionService) List(ctx context.Context, req *ListSubmissionsRequest) ([]*repository.Submission, int64, error) {
	cfg, err := repository.CategoryFor(req.Category)
	if err != nil {
		return nil, 0, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	return s.submissions.List(ctx, cfg, repository.SubmissionFilter{
		Search:      req.Search,
		Status:      req.Status,
		FormType:    req.FormType,
		SubmittedBy: req.SubmittedBy,
		FromDate:    req.FromDate,
		ToDate:      req.ToDate,
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
	})
}

// GetActivity returns the activity trail for a submission.
func (s *SubmissionService) GetActivity(ctx context.Context, category, id string) ([]*repository.ActivityLog, error) {
	if _, err := repository.CategoryFor(category); err != nil {
		return nil, err
	}
	return s.activityLog.ListByTarget(ctx, category, id)
}

// ── Update ────────────────────────────────────────────────────────────────────

// Update applies a pre-approval edit: only Drafted or Pending submissions can
// be edited, and only by their submitter. Status and submitted_at are left
// unchanged; the change summary lands in the activity log.
func (s *SubmissionService) Update(ctx context.Context, req *UpdateSubmissionRequest) error {
	cfg, err := repository.CategoryFor(req.Category)
	if err != nil {
		return err
	}
	if req.LotNo == "" {
		return apperrors.InvalidInput("lot_no", "lot number is required")
	}
	if len(req.FormData) == 0 {
		return apperrors.InvalidInput("form_data", "form data is required")
	}

	sub, err := s.submissions.GetByID(ctx, cfg, req.SubmissionID)
	if err != nil {
		return err
	}
	if sub.Status != repository.StatusDrafted && sub.Status != repository.StatusPending {
		return apperrors.New(apperrors.ErrCodeConflict,
			fmt.Sprintf("cannot edit submission with status %q", sub.Status))
	}
	if req.Actor != "" && req.Actor != sub.SubmittedBy {
		return apperrors.Unauthorized("only the submitter can edit a submission before approval")
	}

	metrics := formdata.Extract(req.FormData)

	err = s.tx.InTransaction(ctx, func(tx pgx.Tx) error {
		return s.submissions.UpdateContentTx(ctx, tx, cfg, sub.ID, req.LotNo, sub.Status, sub.SubmittedAt, req.FormData, metrics)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("submission_id", sub.ID).
		Str("category", req.Category).
		Str("lot_no", req.LotNo).
		Msg("Submission updated")

	changes := formdata.Diff(sub.FormData, req.FormData)
	if sub.LotNo != req.LotNo {
		changes = append([]string{fmt.Sprintf("lotNo: %s -> %s", sub.LotNo, req.LotNo)}, changes...)
	}
	s.appendActivity(ctx, &repository.ActivityLog{
		Category: req.Category,
		TargetID: sub.ID,
		Actor:    sub.SubmittedBy,
		Action:   "update",
		Details:  map[string]any{"changes": changes},
	})

	return nil
}

// ── Delete ────────────────────────────────────────────────────────────────────

// Delete removes a submission and cascades to its flow and approval-log rows
// in one transaction. Activity history is retained.
func (s *SubmissionService) Delete(ctx context.Context, category, id, actor string) error {
	cfg, err := repository.CategoryFor(category)
	if err != nil {
		return err
	}

	sub, err := s.submissions.GetByID(ctx, cfg, id)
	if err != nil {
		return err
	}

	err = s.tx.InTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.flows.DeleteBySubmissionTx(ctx, tx, cfg, id); err != nil {
			return err
		}
		if err := s.approvedLog.DeleteBySubmissionTx(ctx, tx, cfg, id); err != nil {
			return err
		}
		return s.submissions.DeleteTx(ctx, tx, cfg, id)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("submission_id", id).
		Str("category", category).
		Str("lot_no", sub.LotNo).
		Msg("Submission deleted")

	s.appendActivity(ctx, &repository.ActivityLog{
		Category: category,
		TargetID: id,
		Actor:    actor,
		Action:   "delete",
		Details:  map[string]any{"lot_no": sub.LotNo},
	})

	return nil
}

// appendActivity writes an activity entry, logging a warning on failure.
func (s *SubmissionService) appendActivity(ctx context.Context, entry *repository.ActivityLog) {
	if err := s.activityLog.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("target_id", entry.TargetID).
			Str("action", entry.Action).
			Msg("Failed to write activity log entry")
	}
}
