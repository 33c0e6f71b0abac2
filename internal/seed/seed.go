// Package seed fills an empty database with demo users and sick leaves.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/krankmeldung/internal/apperror"
	"github.com/sakif/krankmeldung/internal/model"
	"github.com/sakif/krankmeldung/internal/service"
)

// Password is shared by all demo users.
const Password = "test123"

const manager = "manager@netlution.de"

type demoUser struct {
	name, email string
}

var (
	maxUser  = demoUser{"Max Mustermann", "max.mustermann@netlution.de"}
	annaUser = demoUser{"Anna Schmidt", "anna.schmidt@netlution.de"}
)

// Result counts what Run created.
type Result struct {
	Users      int
	SickLeaves int
}

// Run creates the demo users and their sick leaves, dated relative to now.
// Users that already exist are left alone and get no new sick leaves, so
// running it twice is harmless.
func Run(ctx context.Context, users *service.AuthService, leaves *service.SickLeaveService, now time.Time, logger *slog.Logger) (Result, error) {
	var res Result
	day := 24 * time.Hour

	created := make(map[string]*model.User)
	for _, u := range []demoUser{maxUser, annaUser} {
		user, err := users.Signup(ctx, service.SignupInput{
			Name:     u.name,
			Email:    u.email,
			Password: Password,
			Manager:  manager,
		})
		if errors.Is(err, apperror.ErrConflict) {
			logger.Info("demo user exists, skipping", slog.String("email", u.email))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed: creating %s: %w", u.email, err)
		}
		created[u.email] = user
		res.Users++
	}

	drafts := []struct {
		owner demoUser
		draft model.SickLeaveDraft
	}{
		{maxUser, model.SickLeaveDraft{
			StartDate:        now.Add(-7 * day),
			EndDate:          now.Add(-2 * day),
			CustomerInfoType: model.CustomerInformed,
			SubstituteName:   "Thomas Weber",
			Tasks:            "Code-Review für Website-Update, Kundenmeetings am Mittwoch",
			CCRecipients:     []string{"team@netlution.de"},
			Projects: []model.ProjectInput{
				{Customer: "Musterfirma GmbH", Project: "Website-Redesign"},
				{Customer: "TechStart AG", Project: "Mobile App Development"},
			},
		}},
		{annaUser, model.SickLeaveDraft{
			StartDate:        now,
			EndDate:          now.Add(3 * day),
			CustomerInfoType: model.CustomerNotInformed,
			CustomerContact:  "Herr Müller\nE-Mail: mueller@beispielkunde.de\nTelefon: +49 123 456789",
			Tasks:            "Server-Wartung durchführen, Backup-Scripts überprüfen",
			CCRecipients:     []string{"it@netlution.de", "projekt@netlution.de"},
			Projects: []model.ProjectInput{
				{Customer: "Beispielkunde e.K.", Project: "Server-Migration"},
			},
		}},
		{maxUser, model.SickLeaveDraft{
			StartDate:        now.Add(1 * day),
			EndDate:          now.Add(5 * day),
			CustomerInfoType: model.CustomerInformed,
			SubstituteName:   "Sarah Klein",
			Tasks:            "Datenbank-Migration abschließen, Performance-Tests durchführen",
			CCRecipients:     []string{},
			Projects: []model.ProjectInput{
				{Customer: "InnoTech Solutions", Project: "E-Commerce Platform"},
				{Customer: "GreenEnergy Corp", Project: "Monitoring Dashboard"},
			},
		}},
	}

	for _, d := range drafts {
		user, ok := created[d.owner.email]
		if !ok {
			continue
		}
		id := service.IdentityOf(user)
		if _, err := leaves.Create(ctx, &id, d.draft); err != nil {
			return res, fmt.Errorf("seed: creating sick leave for %s: %w", d.owner.email, err)
		}
		res.SickLeaves++
	}

	logger.Info("seed complete",
		slog.Int("users", res.Users),
		slog.Int("sickLeaves", res.SickLeaves),
	)
	return res, nil
}
