// Package service holds the SnapScape business rules: the competition
// lifecycle, voting, leaderboards, results, submissions and maintenance jobs.
// Handlers translate the sentinel errors below into HTTP status codes.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/snapscape/internal/repository"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
)

// notFound converts a repository miss into ErrNotFound and passes any other
// error through untouched.
func notFound(err error, what string, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}
