package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/krankmeldung/internal/apperror"
	"github.com/sakif/krankmeldung/internal/model"
	"github.com/sakif/krankmeldung/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository. Set err to
// simulate a database failure.
type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*model.User
	byEmail map[string]*model.User
	err     error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return apperror.Conflict("email", "Ein Benutzer mit dieser E-Mail-Adresse existiert bereits")
	}
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.byID[user.ID] = &copied
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	copied := *u
	return &copied, nil
}

// fakeSickLeaveRepo stores leaves in a slice and honours the filter the
// same way the SQLite implementation does.
type fakeSickLeaveRepo struct {
	leaves     []model.SickLeave
	lastFilter repository.SickLeaveFilter
	err        error
}

func (f *fakeSickLeaveRepo) CreateSickLeave(_ context.Context, leave *model.SickLeave) error {
	if f.err != nil {
		return f.err
	}
	leave.ID = xid.New().String()
	leave.CreatedAt = time.Now()
	leave.UpdatedAt = leave.CreatedAt
	for i := range leave.Projects {
		leave.Projects[i].ID = xid.New().String()
		leave.Projects[i].SickLeaveID = leave.ID
	}
	f.leaves = append(f.leaves, *leave)
	return nil
}

func (f *fakeSickLeaveRepo) ListSickLeaves(_ context.Context, filter repository.SickLeaveFilter) ([]model.SickLeave, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	out := []model.SickLeave{}
	for _, l := range f.leaves {
		if l.UserID != filter.UserID {
			continue
		}
		if l.StartDate.Before(filter.StartFrom) || l.StartDate.After(filter.StartTo) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
