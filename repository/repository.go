// Package repository persists profiles, challenges, daily progress and
// notifications in Postgres through pgx.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrDuplicateActiveChallenge = errors.New("user already has an active challenge")
)

const activeChallengeIndex = "challenges_one_active_per_user"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
