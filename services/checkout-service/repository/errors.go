package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row or key.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition is returned when a status update would move an
	// order backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
