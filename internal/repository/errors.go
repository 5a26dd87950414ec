package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

const uniqueViolation = "23505"

// mapErr turns driver errors into the domain taxonomy. onUnique replaces unique-index violations.
func mapErr(err error, onUnique error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if onUnique != nil && errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return onUnique
	}
	return err
}
