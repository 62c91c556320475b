package repository

import (
	"fmt"

	"github.com/factorylabs/be-process-reports/internal/apperrors"
)

// CategoryConfig maps one submission family onto its storage tables. The two
// families share identical semantics; only the table names differ, so a
// single engine serves both.
type CategoryConfig struct {
	Name             string
	SubmissionsTable string
	FlowsTable       string
	ApprovedLogTable string
}

// Category names.
const (
	CategoryStandard = "standard"
	CategoryRecycle  = "recycle"
)

var categories = map[string]CategoryConfig{
	CategoryStandard: {
		Name:             CategoryStandard,
		SubmissionsTable: "submissions",
		FlowsTable:       "approval_flows",
		ApprovedLogTable: "approved_logs",
	},
	CategoryRecycle: {
		Name:             CategoryRecycle,
		SubmissionsTable: "recycle_submissions",
		FlowsTable:       "recycle_approval_flows",
		ApprovedLogTable: "recycle_approved_logs",
	},
}

// CategoryFor resolves a category name to its table mapping. Table names only
// ever come from this fixed registry, which is what makes fmt.Sprintf-built
// SQL in the repositories safe.
func CategoryFor(name string) (CategoryConfig, error) {
	cfg, ok := categories[name]
	if !ok {
		return CategoryConfig{}, apperrors.InvalidInput("category",
			fmt.Sprintf("unknown category %q", name))
	}
	return cfg, nil
}
