// Package repository declares the Record Store contracts. Services depend on
// these interfaces; internal/repository/sqlite provides the implementation.
package repository

import (
	"context"
	"time"

	"github.com/sakif/krankmeldung/internal/model"
)

// SickLeaveFilter selects the sick leaves of one user whose start date lies
// in [StartFrom, StartTo], both inclusive.
type SickLeaveFilter struct {
	UserID    string
	StartFrom time.Time
	StartTo   time.Time
}

type UserRepository interface {
	// CreateUser returns apperror.ErrConflict when the email is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type SickLeaveRepository interface {
	// CreateSickLeave stores the leave and all of its projects atomically.
	CreateSickLeave(ctx context.Context, leave *model.SickLeave) error
	// ListSickLeaves returns matches ordered by start date, newest first,
	// each with its projects in submission order.
	ListSickLeaves(ctx context.Context, filter SickLeaveFilter) ([]model.SickLeave, error)
}
