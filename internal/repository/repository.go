package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a looked up row does not exist.
var ErrNotFound = errors.New("record not found")

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
