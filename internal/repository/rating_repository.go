// Rating persistence. One rating per (user, photo) is enforced by the
// uq_ratings_user_photo unique key; votes are written with a single
// conditional upsert so two concurrent votes from the same user cannot both
// insert. Photo aggregates are rebuilt from the ratings rows in the same
// transaction as the vote.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/snapscape/internal/model"
)

// RatingRepo provides access to the ratings table and the derived aggregate
// columns on photo_submissions.
type RatingRepo struct {
	db *sql.DB
}

func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

// Upsert records score for (userID, photoID), overwriting any earlier score,
// and returns the photo's recomputed aggregate. The photo and competition
// rows are locked for the duration, so the vote is checked against the
// status that is current when it commits: ErrOwnPhoto, ErrPhotoNotApproved
// and ErrVotingClosed reject it without writing.
func (r *RatingRepo) Upsert(ctx context.Context, userID, photoID uint64, score int) (agg model.RatingAggregate, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return agg, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	const lock = `SELECT p.user_id, p.status, c.status
                  FROM photo_submissions p
                  JOIN competitions c ON c.id = p.competition_id
                  WHERE p.id = ? FOR UPDATE`
	var (
		authorID   uint64
		photoState model.SubmissionStatus
		compState  model.CompetitionStatus
	)
	err = tx.QueryRowContext(ctx, lock, photoID).Scan(&authorID, &photoState, &compState)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return agg, err
	}
	if err != nil {
		return agg, err
	}
	switch {
	case authorID == userID:
		err = ErrOwnPhoto
	case photoState != model.SubmissionApproved:
		err = ErrPhotoNotApproved
	case compState != model.StatusVoting:
		err = ErrVotingClosed
	}
	if err != nil {
		return agg, err
	}
	const upsert = `INSERT INTO ratings (photo_id, user_id, score) VALUES (?, ?, ?)
                    ON DUPLICATE KEY UPDATE score = VALUES(score), updated_at = UTC_TIMESTAMP()`
	if _, err = tx.ExecContext(ctx, upsert, photoID, userID, score); err != nil {
		return agg, err
	}
	agg, err = recomputeTx(ctx, tx, photoID)
	return agg, err
}

// recomputeTx rescans every rating of a photo and rewrites its aggregate
// columns. The cost is linear in the photo's rating count.
func recomputeTx(ctx context.Context, tx *sql.Tx, photoID uint64) (model.RatingAggregate, error) {
	var count, sum int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(score), 0) FROM ratings WHERE photo_id = ?`, photoID).Scan(&count, &sum); err != nil {
		return model.RatingAggregate{}, err
	}
	agg := model.NewRatingAggregate(count, sum)
	if _, err := tx.ExecContext(ctx,
		`UPDATE photo_submissions SET ratings_count = ?, total_rating_sum = ?, average_rating = ? WHERE id = ?`,
		agg.RatingsCount, agg.TotalRatingSum, agg.AverageRating, photoID); err != nil {
		return model.RatingAggregate{}, err
	}
	return agg, nil
}

// GetScore returns the user's current score for a photo or ErrNotFound.
func (r *RatingRepo) GetScore(ctx context.Context, userID, photoID uint64) (int, error) {
	var score int
	err := r.db.QueryRowContext(ctx,
		`SELECT score FROM ratings WHERE user_id = ? AND photo_id = ? ORDER BY id ASC LIMIT 1`,
		userID, photoID).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return score, err
}

// ListDuplicated returns every rating row whose (user, photo) pair occurs
// more than once, ordered by pair and then id.
func (r *RatingRepo) ListDuplicated(ctx context.Context) ([]model.Rating, error) {
	const q = `SELECT r.id, r.photo_id, r.user_id, r.score, r.created_at, r.updated_at
               FROM ratings r
               JOIN (SELECT user_id, photo_id FROM ratings GROUP BY user_id, photo_id HAVING COUNT(*) > 1) d
                 ON d.user_id = r.user_id AND d.photo_id = r.photo_id
               ORDER BY r.user_id, r.photo_id, r.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Rating
	for rows.Next() {
		var rt model.Rating
		if err := rows.Scan(&rt.ID, &rt.PhotoID, &rt.UserID, &rt.Score, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// DeleteAndRecompute removes the given rating ids and then recomputes the
// aggregates of the given photos, all in one transaction. It returns the
// number of deleted rows.
func (r *RatingRepo) DeleteAndRecompute(ctx context.Context, ratingIDs, photoIDs []uint64) (deleted int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	for _, id := range ratingIDs {
		var res sql.Result
		if res, err = tx.ExecContext(ctx, `DELETE FROM ratings WHERE id = ?`, id); err != nil {
			return deleted, err
		}
		n, _ := res.RowsAffected()
		deleted += n
	}
	for _, pid := range photoIDs {
		if _, err = recomputeTx(ctx, tx, pid); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// RecomputeAll rebuilds the aggregates of every photo in one statement and
// returns the number of rows whose values changed.
func (r *RatingRepo) RecomputeAll(ctx context.Context) (int64, error) {
	const q = `UPDATE photo_submissions p
               LEFT JOIN (SELECT photo_id, COUNT(*) AS cnt, SUM(score) AS total FROM ratings GROUP BY photo_id) agg
                 ON agg.photo_id = p.id
               SET p.ratings_count = COALESCE(agg.cnt, 0),
                   p.total_rating_sum = COALESCE(agg.total, 0),
                   p.average_rating = IF(COALESCE(agg.cnt, 0) = 0, 0, agg.total * 1e0 / agg.cnt)`
	res, err := r.db.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
