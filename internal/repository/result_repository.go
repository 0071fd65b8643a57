package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/snapscape/internal/model"
)

// ResultRepo stores finalized placements. Uniqueness on (competition,
// position) and (competition, photo) is enforced by the table's keys.
type ResultRepo struct {
	db *sql.DB
}

func NewResultRepo(db *sql.DB) *ResultRepo { return &ResultRepo{db: db} }

// Replace swaps the results of a competition for the given set in one
// transaction. A unique-key violation yields ErrDuplicate.
func (r *ResultRepo) Replace(ctx context.Context, competitionID uint64, results []model.Result) (err error) {
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
	if _, err = tx.ExecContext(ctx, `DELETE FROM results WHERE competition_id = ?`, competitionID); err != nil {
		return err
	}
	const ins = `INSERT INTO results (competition_id, user_id, photo_id, position, final_score) VALUES (?, ?, ?, ?, ?)`
	for _, res := range results {
		if _, err = tx.ExecContext(ctx, ins, competitionID, res.UserID, res.PhotoID, res.Position, res.FinalScore); err != nil {
			if isDuplicate(err) {
				err = ErrDuplicate
			}
			return err
		}
	}
	return nil
}

// ListByCompetition returns a competition's results by position.
func (r *ResultRepo) ListByCompetition(ctx context.Context, competitionID uint64) ([]model.Result, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, competition_id, user_id, photo_id, position, final_score, created_at
         FROM results WHERE competition_id = ? ORDER BY position ASC`, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Result{}
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.ID, &res.CompetitionID, &res.UserID, &res.PhotoID, &res.Position, &res.FinalScore, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
