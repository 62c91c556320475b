package repository

import (
	"time"

	"github.com/factorylabs/be-process-reports/internal/formdata"
)

// ── Submission lifecycle ──────────────────────────────────────────────────────

// Submission statuses.
const (
	StatusDrafted  = "Drafted"
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// MaxApprovalLevel is the terminal approval authority. A submitter at this
// level requires no approval steps at all.
const MaxApprovalLevel = 3

// TemplateVersionSet is an immutable, versioned bundle of form-template ids
// for one category. Within a category at most one set is latest; a changed
// template combination always produces a new set and flips the old flag off.
type TemplateVersionSet struct {
	ID          string
	Category    string
	Version     int
	IsLatest    bool
	TemplateIDs []int
	CreatedAt   time.Time
}

// Submission is one process-report form instance moving through the
// approval pipeline.
type Submission struct {
	ID             string
	VersionSetID   string
	FormType       string
	LotNo          string
	ProductionLine *string
	SubmittedBy    string
	Status         string
	SubmittedAt    time.Time
	FormData       map[string]any
	Metrics        formdata.Metrics
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ApprovalFlowStep is one required approval checkpoint for a submission.
// The pipeline's current step is always the lowest-sequence Pending step;
// it is computed, never stored.
type ApprovalFlowStep struct {
	ID             string
	SubmissionID   string
	Sequence       int
	RequiredLevel  int
	Status         string
	ApproverUserID *string
	UpdatedAt      time.Time
}

// ApprovedLog is one immutable approval-action record. Resubmission purges
// only Rejected-tagged entries so earlier approved history survives.
type ApprovedLog struct {
	ID             string
	SubmissionID   string
	ApproverUserID string
	Level          int
	Action         string
	Comment        *string
	CreatedAt      time.Time
}

// ActivityLog is one entry in the broad append-only audit trail. Details is
// free-form JSON, often a diff result.
type ActivityLog struct {
	ID        string
	Category  string
	TargetID  string
	Actor     string
	Action    string
	Details   map[string]any
	CreatedAt time.Time
}

// User is approval-level master data.
type User struct {
	ID            string
	DisplayName   string
	ApprovalLevel int
}
