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

// ApprovalService is the approval workflow state machine: it validates an
// actor against the current pending step, advances the flow, recomputes the
// submission's aggregate status and handles resubmission after rejection.
type ApprovalService struct {
	tx          TxRunner
	submissions SubmissionStore
	flows       FlowStore
	approvedLog ApprovedLogStore
	activityLog ActivityLogStore
	users       UserStore
	notifier    RefreshNotifier
	log         *logger.Logger
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(
	tx TxRunner,
	submissions SubmissionStore,
	flows FlowStore,
	approvedLog ApprovedLogStore,
	activityLog ActivityLogStore,
	users UserStore,
	notifier RefreshNotifier,
	log *logger.Logger,
) *ApprovalService {
	return &ApprovalService{
		tx:          tx,
		submissions: submissions,
		flows:       flows,
		approvedLog: approvedLog,
		activityLog: activityLog,
		users:       users,
		notifier:    notifier,
		log:         log,
	}
}

// ApprovalActionRequest is one approve/reject action on a submission.
type ApprovalActionRequest struct {
	Category       string
	SubmissionID   string
	Action         string // Approved | Rejected
	Comment        *string
	ApproverUserID string
}

// ResubmitRequest re-enters a Rejected/Drafted submission into the pipeline.
type ResubmitRequest struct {
	Category     string
	SubmissionID string
	FormData     map[string]any
}

// ── Approval action ───────────────────────────────────────────────────────────

// Act processes one approval action. The whole mutation (step update, log
// append, aggregate status recompute) runs in a single transaction; the
// submission and pending-step reads lock their rows so concurrent actions on
// one submission serialize instead of both advancing the same step.
func (s *ApprovalService) Act(ctx context.Context, req *ApprovalActionRequest) error {
	cfg, err := repository.CategoryFor(req.Category)
	if err != nil {
		return err
	}
	if req.Action != repository.StatusApproved && req.Action != repository.StatusRejected {
		return apperrors.InvalidInput("action",
			fmt.Sprintf("action must be %s or %s", repository.StatusApproved, repository.StatusRejected))
	}

	actor, err := s.users.GetByID(ctx, req.ApproverUserID)
	if err != nil {
		if apperrors.Code(err) == apperrors.ErrCodeNotFound {
			return apperrors.Unauthorized("approver is not a known user")
		}
		return err
	}

	err = s.tx.InTransaction(ctx, func(tx pgx.Tx) error {
		sub, err := s.submissions.GetByIDTx(ctx, tx, cfg, req.SubmissionID)
		if err != nil {
			return err
		}
		// Approved and Rejected are terminal. A rejection short-circuit
		// leaves steps after the rejected one Pending in the flow table;
		// those residual steps are not actionable.
		if sub.Status != repository.StatusPending {
			return apperrors.New(apperrors.ErrCodeNotFound, "submission is not awaiting approval")
		}

		step, err := s.flows.GetPendingStepTx(ctx, tx, cfg, req.SubmissionID)
		if err != nil {
			return err
		}
		if step == nil {
			return apperrors.New(apperrors.ErrCodeNotFound, "submission is not awaiting approval")
		}

		// Strict ordering: the actor must match the current step's level
		// exactly. Higher levels cannot skip ahead, lower ones cannot act.
		if actor.ApprovalLevel != step.RequiredLevel {
			return apperrors.Unauthorized(fmt.Sprintf(
				"step %d requires approval level %d, actor has level %d",
				step.Sequence, step.RequiredLevel, actor.ApprovalLevel))
		}

		if err := s.flows.UpdateStepTx(ctx, tx, cfg, step.ID, req.Action, actor.ID); err != nil {
			return err
		}

		if err := s.approvedLog.AppendTx(ctx, tx, cfg, &repository.ApprovedLog{
			SubmissionID:   req.SubmissionID,
			ApproverUserID: actor.ID,
			Level:          actor.ApprovalLevel,
			Action:         req.Action,
			Comment:        req.Comment,
		}); err != nil {
			return err
		}

		// Aggregate status: one rejection kills the whole chain; approval
		// completes the submission only when nothing is left pending.
		if req.Action == repository.StatusRejected {
			return s.submissions.UpdateStatusTx(ctx, tx, cfg, req.SubmissionID, repository.StatusRejected)
		}

		pending, err := s.flows.CountPendingTx(ctx, tx, cfg, req.SubmissionID)
		if err != nil {
			return err
		}
		if pending == 0 {
			return s.submissions.UpdateStatusTx(ctx, tx, cfg, req.SubmissionID, repository.StatusApproved)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("submission_id", req.SubmissionID).
		Str("category", req.Category).
		Str("action", req.Action).
		Str("approver", actor.ID).
		Int("level", actor.ApprovalLevel).
		Msg("Approval action processed")

	s.appendActivity(ctx, &repository.ActivityLog{
		Category: req.Category,
		TargetID: req.SubmissionID,
		Actor:    actor.ID,
		Action:   actionName(req.Action),
		Details:  map[string]any{"level": actor.ApprovalLevel, "comment": req.Comment},
	})
	s.notifier.PublishRefresh(req.Category, req.SubmissionID, actionName(req.Action))

	return nil
}

// ── Resubmission ──────────────────────────────────────────────────────────────

// Resubmit re-enters a Rejected or Drafted submission into the pipeline with
// edited form data. The prior flow is discarded entirely and regenerated:
// the submitter's level may have changed since the original submission, so an
// in-place reset could leave wrongly-leveled steps behind. Rejected log
// entries are purged; approved history survives.
func (s *ApprovalService) Resubmit(ctx context.Context, req *ResubmitRequest) error {
	cfg, err := repository.CategoryFor(req.Category)
	if err != nil {
		return err
	}
	if len(req.FormData) == 0 {
		return apperrors.InvalidInput("form_data", "form data is required")
	}

	metrics := formdata.Extract(req.FormData)
	now := time.Now()

	var (
		sub       *repository.Submission
		level     int
		newStatus string
	)
	// The submission row is read with a lock so a concurrent approval action
	// or second resubmit on the same submission serializes behind this one.
	err = s.tx.InTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		sub, err = s.submissions.GetByIDTx(ctx, tx, cfg, req.SubmissionID)
		if err != nil {
			return err
		}
		if sub.Status != repository.StatusRejected && sub.Status != repository.StatusDrafted {
			return apperrors.New(apperrors.ErrCodeConflict,
				fmt.Sprintf("cannot resubmit submission with status %q", sub.Status))
		}

		// Unknown submitter level leaves the submission Pending without a
		// flow, same degraded state the create path allows.
		level = -1
		if u, err := s.users.GetByID(ctx, sub.SubmittedBy); err == nil {
			level = u.ApprovalLevel
		} else if apperrors.Code(err) != apperrors.ErrCodeNotFound {
			return err
		}

		newStatus = repository.StatusPending
		if level >= repository.MaxApprovalLevel {
			newStatus = repository.StatusApproved
		}

		if err := s.submissions.UpdateContentTx(ctx, tx, cfg, sub.ID, sub.LotNo, newStatus, now, req.FormData, metrics); err != nil {
			return err
		}
		if err := s.flows.DeleteBySubmissionTx(ctx, tx, cfg, sub.ID); err != nil {
			return err
		}
		if newStatus == repository.StatusPending && level >= 0 {
			if err := s.flows.InsertStepsTx(ctx, tx, cfg, sub.ID, GenerateFlow(level)); err != nil {
				return err
			}
		}
		return s.approvedLog.PurgeRejectedTx(ctx, tx, cfg, sub.ID)
	})
	if err != nil {
		return err
	}

	if level < 0 {
		s.log.Warn().
			Str("submission_id", sub.ID).
			Str("submitted_by", sub.SubmittedBy).
			Msg("Submitter level unknown on resubmit; submission left without a flow")
	}

	s.log.Info().
		Str("submission_id", sub.ID).
		Str("category", req.Category).
		Str("new_status", newStatus).
		Int("submitter_level", level).
		Msg("Submission resubmitted")

	// Diff runs outside the transaction: read-only, and a diff failure must
	// never undo the resubmission itself.
	changes := formdata.Diff(sub.FormData, req.FormData)
	s.appendActivity(ctx, &repository.ActivityLog{
		Category: req.Category,
		TargetID: sub.ID,
		Actor:    sub.SubmittedBy,
		Action:   "resubmit",
		Details:  map[string]any{"changes": changes, "new_status": newStatus},
	})
	s.notifier.PublishRefresh(req.Category, sub.ID, "resubmit")

	return nil
}

// ── Flow read ─────────────────────────────────────────────────────────────────

// GetFlow returns the ordered step list for a submission with approver
// display names and recorded comments.
func (s *ApprovalService) GetFlow(ctx context.Context, category, submissionID string) ([]*repository.FlowStepView, error) {
	cfg, err := repository.CategoryFor(category)
	if err != nil {
		return nil, err
	}
	return s.flows.ListBySubmission(ctx, cfg, submissionID)
}

// ── internal helpers ──────────────────────────────────────────────────────────

// appendActivity writes an activity entry, logging a warning on failure. The
// primary operation has already committed; logging failures are non-fatal.
func (s *ApprovalService) appendActivity(ctx context.Context, entry *repository.ActivityLog) {
	if err := s.activityLog.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("target_id", entry.TargetID).
			Str("action", entry.Action).
			Msg("Failed to write activity log entry")
	}
}

func actionName(status string) string {
	if status == repository.StatusRejected {
		return "reject"
	}
	return "approve"
}
