package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/krankmeldung/internal/apperror"
	"github.com/sakif/krankmeldung/internal/auth"
	"github.com/sakif/krankmeldung/internal/model"
	"github.com/sakif/krankmeldung/internal/notify"
	"github.com/sakif/krankmeldung/internal/repository"
)

// Validation messages, in the order the checks run.
const (
	MsgRequiredFields   = "Startdatum, Enddatum und Kundeninformation sind erforderlich"
	MsgInvalidInfoType  = "Ungültige Kundeninformation"
	MsgProjectFields    = "Bitte füllen Sie alle Projekt-Felder aus."
	MsgSubstituteName   = "Bitte geben Sie den Namen der Vertretung an."
	MsgCustomerContact  = "Bitte geben Sie die Kontaktdaten des Kunden an."
	msgListFailed       = "Fehler beim Abrufen der Krankmeldungen"
	msgCreateLeaveError = "Fehler beim Erstellen der Krankmeldung"
)

// SickLeaveService is the sick-leave lifecycle: it validates drafts, stores
// them, lists the current year and renders the notification preview.
type SickLeaveService struct {
	repo     repository.SickLeaveRepository
	composer *notify.Composer
	logger   *slog.Logger
	now      func() time.Time
}

func NewSickLeaveService(repo repository.SickLeaveRepository, composer *notify.Composer, logger *slog.Logger) *SickLeaveService {
	return &SickLeaveService{
		repo:     repo,
		composer: composer,
		logger:   logger,
		now:      time.Now,
	}
}

// Validate runs the draft checks in order and returns the first failure as
// apperror.ErrValidation. endDate before startDate is accepted.
func Validate(draft model.SickLeaveDraft) error {
	if draft.StartDate.IsZero() || draft.EndDate.IsZero() || draft.CustomerInfoType == "" {
		return apperror.ValidationFailed("startDate", MsgRequiredFields)
	}
	if !draft.CustomerInfoType.Valid() {
		return apperror.ValidationFailed("customerInfoType", MsgInvalidInfoType)
	}

	if len(draft.Projects) == 0 {
		return apperror.ValidationFailed("projects", MsgProjectFields)
	}
	for _, p := range draft.Projects {
		if strings.TrimSpace(p.Customer) == "" || strings.TrimSpace(p.Project) == "" {
			return apperror.ValidationFailed("projects", MsgProjectFields)
		}
	}

	switch draft.CustomerInfoType {
	case model.CustomerInformed:
		if strings.TrimSpace(draft.SubstituteName) == "" {
			return apperror.ValidationFailed("substituteName", MsgSubstituteName)
		}
	case model.CustomerNotInformed:
		if strings.TrimSpace(draft.CustomerContact) == "" {
			return apperror.ValidationFailed("customerContact", MsgCustomerContact)
		}
	}
	return nil
}

// Create validates draft and stores it for the session user together with
// all of its projects.
func (s *SickLeaveService) Create(ctx context.Context, id *auth.Identity, draft model.SickLeaveDraft) (*model.SickLeave, error) {
	if id == nil || id.UserID == "" {
		return nil, apperror.Unauthorized(msgUnauthorized)
	}
	if err := Validate(draft); err != nil {
		return nil, err
	}
	draft = normalize(draft)

	leave := &model.SickLeave{
		UserID:           id.UserID,
		StartDate:        draft.StartDate,
		EndDate:          draft.EndDate,
		CustomerInfoType: draft.CustomerInfoType,
		SubstituteName:   draft.SubstituteName,
		CustomerContact:  draft.CustomerContact,
		Tasks:            draft.Tasks,
		CCRecipients:     append([]string{}, draft.CCRecipients...),
		Projects:         make([]model.Project, len(draft.Projects)),
	}
	for i, p := range draft.Projects {
		leave.Projects[i] = model.Project{Customer: p.Customer, Project: p.Project}
	}

	if err := s.repo.CreateSickLeave(ctx, leave); err != nil {
		s.logger.Error("failed to create sick leave",
			slog.String("userID", id.UserID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Storage(msgCreateLeaveError, err)
	}

	leave.Refresh(s.now())

	s.logger.Info("sick leave created",
		slog.String("id", leave.ID),
		slog.String("userID", leave.UserID),
		slog.Int("projects", len(leave.Projects)),
	)
	return leave, nil
}

// List returns the session user's sick leaves that start in the current
// calendar year, newest first, with status recomputed for now.
func (s *SickLeaveService) List(ctx context.Context, id *auth.Identity) ([]model.SickLeave, error) {
	if id == nil || id.UserID == "" {
		return nil, apperror.Unauthorized(msgUnauthorized)
	}

	now := s.now()
	from, to := yearBounds(now)

	leaves, err := s.repo.ListSickLeaves(ctx, repository.SickLeaveFilter{
		UserID:    id.UserID,
		StartFrom: from,
		StartTo:   to,
	})
	if err != nil {
		s.logger.Error("failed to list sick leaves",
			slog.String("userID", id.UserID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Storage(msgListFailed, err)
	}

	for i := range leaves {
		leaves[i].Refresh(now)
	}
	return leaves, nil
}

// Preview validates draft like Create and renders the notification for the
// session user without storing anything.
func (s *SickLeaveService) Preview(id *auth.Identity, draft model.SickLeaveDraft) (notify.EmailTemplate, error) {
	if id == nil || id.UserID == "" {
		return notify.EmailTemplate{}, apperror.Unauthorized(msgUnauthorized)
	}
	if err := Validate(draft); err != nil {
		return notify.EmailTemplate{}, err
	}
	return s.composer.Compose(normalize(draft), id.Name, id.Manager), nil
}

// yearBounds returns Jan 1 and Dec 31 of now's year in UTC.
func yearBounds(now time.Time) (time.Time, time.Time) {
	y := now.UTC().Year()
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// normalize is what Create stores and Preview renders: dates without time
// of day, and the one-line fields trimmed. Contact and tasks stay as typed.
func normalize(draft model.SickLeaveDraft) model.SickLeaveDraft {
	draft.StartDate = dateOnly(draft.StartDate)
	draft.EndDate = dateOnly(draft.EndDate)
	draft.SubstituteName = strings.TrimSpace(draft.SubstituteName)

	projects := make([]model.ProjectInput, len(draft.Projects))
	for i, p := range draft.Projects {
		projects[i] = model.ProjectInput{
			Customer: strings.TrimSpace(p.Customer),
			Project:  strings.TrimSpace(p.Project),
		}
	}
	draft.Projects = projects
	return draft
}

// dateOnly drops the time of day. The calendar date is read in t's own
// location and returned as UTC midnight.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
