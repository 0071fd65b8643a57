// Competition persistence. Status writes used by the automatic updater are
// conditional on the status the caller read so that concurrent admin edits
// are never overwritten.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/snapscape/internal/model"
)

const competitionColumns = `id, title, theme, description, status, status_override, submission_limit,
        start_date, end_date, voting_end_date, created_at, updated_at`

// CompetitionRepo encapsulates all queries on the competitions table.
type CompetitionRepo struct {
	db *sql.DB
}

// NewCompetitionRepo constructs a CompetitionRepo with the given DB handle.
func NewCompetitionRepo(db *sql.DB) *CompetitionRepo {
	return &CompetitionRepo{db: db}
}

func scanCompetition(s scanner) (model.Competition, error) {
	var c model.Competition
	var status string
	err := s.Scan(&c.ID, &c.Title, &c.Theme, &c.Description, &status, &c.StatusOverride, &c.SubmissionLimit,
		&c.StartDate, &c.EndDate, &c.VotingEndDate, &c.CreatedAt, &c.UpdatedAt)
	c.Status = model.CompetitionStatus(status)
	return c, err
}

func collectCompetitions(rows *sql.Rows) ([]model.Competition, error) {
	defer rows.Close()
	out := []model.Competition{}
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a competition and reloads it to pick up DB defaults.
func (r *CompetitionRepo) Create(ctx context.Context, c *model.Competition) error {
	const q = `INSERT INTO competitions (title, theme, description, status, submission_limit, start_date, end_date, voting_end_date)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Title, c.Theme, c.Description, string(c.Status), c.SubmissionLimit,
		c.StartDate.UTC(), c.EndDate.UTC(), c.VotingEndDate.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = created
	return nil
}

// GetByID retrieves a competition. It returns ErrNotFound if there is no row.
func (r *CompetitionRepo) GetByID(ctx context.Context, id uint64) (model.Competition, error) {
	c, err := scanCompetition(r.db.QueryRowContext(ctx,
		"SELECT "+competitionColumns+" FROM competitions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// List returns competitions newest first. Drafts are included only when
// includeDrafts is set; a non-empty status narrows the result to that stage.
func (r *CompetitionRepo) List(ctx context.Context, status model.CompetitionStatus, includeDrafts bool) ([]model.Competition, error) {
	where := []string{}
	args := []any{}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, string(status))
	}
	if !includeDrafts {
		where = append(where, "status <> 'draft'")
	}
	q := "SELECT " + competitionColumns + " FROM competitions"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY start_date DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectCompetitions(rows)
}

// ListForStatusUpdate returns competitions the automatic updater may move:
// everything that is neither draft nor archived. Pinned competitions are
// included only when includeOverridden is set.
func (r *CompetitionRepo) ListForStatusUpdate(ctx context.Context, includeOverridden bool) ([]model.Competition, error) {
	q := "SELECT " + competitionColumns + " FROM competitions WHERE status NOT IN ('draft', 'archived')"
	if !includeOverridden {
		q += " AND status_override = 0"
	}
	q += " ORDER BY id ASC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return collectCompetitions(rows)
}

// UpdateStatus moves a competition from one status to another. It writes
// only when the row still holds from; otherwise ErrStaleStatus (or
// ErrNotFound for a missing row) is returned.
func (r *CompetitionRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.CompetitionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE competitions SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrStaleStatus
}

// SetStatus writes status and the override pin unconditionally. It is the
// admin path; lifecycle checks happen in the service layer.
func (r *CompetitionRepo) SetStatus(ctx context.Context, id uint64, status model.CompetitionStatus, override bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE competitions SET status = ?, status_override = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		string(status), override, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.GetByID(ctx, id)
	return err
}

// Update rewrites the editable fields of a competition.
func (r *CompetitionRepo) Update(ctx context.Context, c *model.Competition) error {
	const q = `UPDATE competitions
               SET title = ?, theme = ?, description = ?, submission_limit = ?,
                   start_date = ?, end_date = ?, voting_end_date = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, c.Title, c.Theme, c.Description, c.SubmissionLimit,
		c.StartDate.UTC(), c.EndDate.UTC(), c.VotingEndDate.UTC(), c.ID); err != nil {
		return err
	}
	updated, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = updated
	return nil
}

// Delete removes a competition without submissions. A competition that has
// submissions yields ErrConflict; callers archive it instead.
func (r *CompetitionRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM competitions WHERE id = ? FOR UPDATE`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var subs int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM photo_submissions WHERE competition_id = ?`, id).Scan(&subs); err != nil {
		return err
	}
	if subs > 0 {
		return ErrConflict
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM competitions WHERE id = ?`, id)
	return err
}

// ArchiveSubmissions flags every submission of a competition as archived.
func (r *CompetitionRepo) ArchiveSubmissions(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE photo_submissions SET archived = 1, updated_at = ? WHERE competition_id = ? AND archived = 0`,
		at.UTC(), id)
	return err
}
