package service

import "github.com/factorylabs/be-process-reports/internal/repository"

// GenerateFlow produces the ordered approval steps required for a submitter
// at the given level: one step per level strictly above the submitter's own,
// up to the fixed ceiling, each with a 1-based sequence. A submitter at the
// ceiling gets an empty flow; the caller marks the submission Approved
// directly and it never enters Pending.
func GenerateFlow(submitterLevel int) []*repository.ApprovalFlowStep {
	var steps []*repository.ApprovalFlowStep

	sequence := 1
	for level := submitterLevel + 1; level <= repository.MaxApprovalLevel; level++ {
		steps = append(steps, &repository.ApprovalFlowStep{
			Sequence:      sequence,
			RequiredLevel: level,
			Status:        repository.StatusPending,
		})
		sequence++
	}

	return steps
}
