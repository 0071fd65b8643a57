package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/utils"
)

const userColumns = `id, name, email, password_hash, role, is_verified, is_active,
        notify_on_review, notify_on_competition, created_at, updated_at`

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, role model.Role, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		strings.TrimSpace(name), NormalizeEmail(email), hash, string(role))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func scanUser(s scanner) (model.User, error) {
	var u model.User
	var role string
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.IsVerified, &u.IsActive,
		&u.NotifyOnReview, &u.NotifyOnCompetition, &u.CreatedAt, &u.UpdatedAt)
	u.Role = model.Role(role)
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// List returns users ordered by id for the admin console.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id ASC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListCompetitionSubscribers returns active users that opted in to
// competition announcements.
func (r *UserRepo) ListCompetitionSubscribers(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_active = 1 AND notify_on_competition = 1 ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateAdminFields changes role and/or the active flag. Nil values are left
// untouched.
func (r *UserRepo) UpdateAdminFields(ctx context.Context, id uint64, role *model.Role, active *bool) error {
	sets := []string{}
	args := []any{}
	if role != nil {
		sets = append(sets, "role = ?")
		args = append(args, string(*role))
	}
	if active != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *active)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

// UpdatePreferences stores the user's notification switches.
func (r *UserRepo) UpdatePreferences(ctx context.Context, id uint64, onReview, onCompetition bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET notify_on_review = ?, notify_on_competition = ? WHERE id = ?",
		onReview, onCompetition, id)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

// requireRow distinguishes "no such user" from "values unchanged" when an
// UPDATE reports zero affected rows.
func (r *UserRepo) requireRow(ctx context.Context, res sql.Result, id uint64) error {
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
