package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/factorylabs/be-process-reports/internal/apperrors"
	"github.com/factorylabs/be-process-reports/internal/database"
)

// VersionSetRepository manages immutable template version sets. Sets are
// never mutated or deleted; a changed template combination always produces a
// new set so historical submissions keep their structural integrity.
type VersionSetRepository struct {
	db *database.DB
}

// NewVersionSetRepository creates a new VersionSetRepository.
func NewVersionSetRepository(db *database.DB) *VersionSetRepository {
	return &VersionSetRepository{db: db}
}

// ResolveTx finds the version set for a category whose member templates
// exactly match templateIDs, or creates a new one, deprecating the previous
// latest. Runs inside the caller's transaction so a resolver failure aborts
// the submission insert that triggered it.
func (r *VersionSetRepository) ResolveTx(ctx context.Context, tx pgx.Tx, category string, templateIDs []int) (string, error) {
	if len(templateIDs) == 0 {
		return "", apperrors.InvalidInput("template_ids", "at least one template id is required")
	}

	latestID, latestVersion, err := r.latestTx(ctx, tx, category)
	if err != nil {
		return "", err
	}

	if latestID != "" {
		members, err := r.membersTx(ctx, tx, latestID)
		if err != nil {
			return "", err
		}
		if sameIDSet(members, templateIDs) {
			return latestID, nil
		}

		// Deprecate the current latest before inserting its successor.
		if _, err := tx.Exec(ctx,
			`UPDATE template_version_sets SET is_latest = FALSE WHERE id = $1`,
			latestID,
		); err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to deprecate version set")
		}
	}

	var newID string
	err = tx.QueryRow(ctx, `
		INSERT INTO template_version_sets (category, version, is_latest)
		VALUES ($1, $2, TRUE)
		RETURNING id
	`, category, latestVersion+1).Scan(&newID)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create version set")
	}

	for _, templateID := range templateIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO template_version_set_members (version_set_id, template_id)
			VALUES ($1, $2)
		`, newID, templateID); err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to insert version set member")
		}
	}

	return newID, nil
}

// GetByID returns a version set with its member template ids.
func (r *VersionSetRepository) GetByID(ctx context.Context, id string) (*TemplateVersionSet, error) {
	vs := &TemplateVersionSet{}
	err := r.db.QueryRow(ctx, `
		SELECT id, category, version, is_latest, created_at
		FROM template_version_sets
		WHERE id = $1
	`, id).Scan(&vs.ID, &vs.Category, &vs.Version, &vs.IsLatest, &vs.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("version_set", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get version set")
	}

	rows, err := r.db.Query(ctx, `
		SELECT template_id FROM template_version_set_members
		WHERE version_set_id = $1
		ORDER BY template_id
	`, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get version set members")
	}
	defer rows.Close()

	for rows.Next() {
		var templateID int
		if err := rows.Scan(&templateID); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan version set member")
		}
		vs.TemplateIDs = append(vs.TemplateIDs, templateID)
	}

	return vs, nil
}

// ── internal helpers ──────────────────────────────────────────────────────────

// latestTx returns the id and version of the category's latest set, or
// ("", 0) when the category has no sets yet.
func (r *VersionSetRepository) latestTx(ctx context.Context, tx pgx.Tx, category string) (string, int, error) {
	var id string
	var version int
	err := tx.QueryRow(ctx, `
		SELECT id, version FROM template_version_sets
		WHERE category = $1 AND is_latest = TRUE
	`, category).Scan(&id, &version)
	if err == pgx.ErrNoRows {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get latest version set")
	}
	return id, version, nil
}

func (r *VersionSetRepository) membersTx(ctx context.Context, tx pgx.Tx, versionSetID string) ([]int, error) {
	rows, err := tx.Query(ctx, `
		SELECT template_id FROM template_version_set_members
		WHERE version_set_id = $1
	`, versionSetID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get version set members")
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan version set member")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sameIDSet reports whether two id slices contain exactly the same set of
// values, order-independent.
func sameIDSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]bool, len(a))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			return false
		}
	}
	return true
}
