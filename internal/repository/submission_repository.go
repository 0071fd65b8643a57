package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/snapscape/internal/model"
)

const submissionColumns = `s.id, s.user_id, s.competition_id, s.title, s.description, s.image_url, s.thumbnail_url,
        s.image_ref, s.status, s.average_rating, s.ratings_count, s.total_rating_sum, s.archived,
        s.created_at, s.updated_at`

// SubmissionRepo provides access to the photo_submissions table.
type SubmissionRepo struct {
	db *sql.DB
}

func NewSubmissionRepo(db *sql.DB) *SubmissionRepo { return &SubmissionRepo{db: db} }

func scanSubmission(s scanner, extra ...any) (model.PhotoSubmission, error) {
	var p model.PhotoSubmission
	var status string
	dest := []any{&p.ID, &p.UserID, &p.CompetitionID, &p.Title, &p.Description, &p.ImageURL, &p.ThumbnailURL,
		&p.ImageRef, &status, &p.AverageRating, &p.RatingsCount, &p.TotalRatingSum, &p.Archived,
		&p.CreatedAt, &p.UpdatedAt}
	err := s.Scan(append(dest, extra...)...)
	p.Status = model.SubmissionStatus(status)
	return p, err
}

// Create inserts a pending submission and reloads it.
func (r *SubmissionRepo) Create(ctx context.Context, p *model.PhotoSubmission) error {
	const q = `INSERT INTO photo_submissions (user_id, competition_id, title, description, image_url, thumbnail_url, image_ref, status)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.UserID, p.CompetitionID, p.Title, p.Description,
		p.ImageURL, p.ThumbnailURL, p.ImageRef, string(model.SubmissionPending))
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
	*p = created
	return nil
}

// GetByID retrieves a submission or ErrNotFound.
func (r *SubmissionRepo) GetByID(ctx context.Context, id uint64) (model.PhotoSubmission, error) {
	p, err := scanSubmission(r.db.QueryRowContext(ctx,
		"SELECT "+submissionColumns+" FROM photo_submissions s WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// ListApprovedWithAuthors returns the approved submissions of a competition
// joined with their authors' display names, oldest first.
func (r *SubmissionRepo) ListApprovedWithAuthors(ctx context.Context, competitionID uint64) ([]model.AuthoredSubmission, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+submissionColumns+`, u.name
         FROM photo_submissions s
         JOIN users u ON u.id = s.user_id
         WHERE s.competition_id = ? AND s.status = 'approved'
         ORDER BY s.id ASC`, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AuthoredSubmission{}
	for rows.Next() {
		var a model.AuthoredSubmission
		var name string
		p, err := scanSubmission(rows, &name)
		if err != nil {
			return nil, err
		}
		a.PhotoSubmission = p
		a.AuthorName = name
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByUser returns every submission of one user, newest first.
func (r *SubmissionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.PhotoSubmission, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+submissionColumns+" FROM photo_submissions s WHERE s.user_id = ? ORDER BY s.id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PhotoSubmission{}
	for rows.Next() {
		p, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountByUserAndCompetition counts a user's non-rejected entries.
func (r *SubmissionRepo) CountByUserAndCompetition(ctx context.Context, userID, competitionID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM photo_submissions WHERE user_id = ? AND competition_id = ? AND status <> 'rejected'`,
		userID, competitionID).Scan(&n)
	return n, err
}

// UpdateStatus sets the moderation status.
func (r *SubmissionRepo) UpdateStatus(ctx context.Context, id uint64, status model.SubmissionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE photo_submissions SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.GetByID(ctx, id)
	return err
}

// Delete removes a submission together with its ratings and result rows in
// one transaction. Stored images are the caller's responsibility.
func (r *SubmissionRepo) Delete(ctx context.Context, id uint64) (err error) {
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
	if _, err = tx.ExecContext(ctx, `DELETE FROM ratings WHERE photo_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM results WHERE photo_id = ?`, id); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, `DELETE FROM photo_submissions WHERE id = ?`, id); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNotFound
		return err
	}
	return nil
}
