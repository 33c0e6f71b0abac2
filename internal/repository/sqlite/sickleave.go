package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/krankmeldung/internal/model"
	"github.com/sakif/krankmeldung/internal/repository"
)

var _ repository.SickLeaveRepository = (*DB)(nil)

// CreateSickLeave inserts the sick leave and its projects in one transaction.
//
// Either every row is committed or none is: a failing project insert rolls
// the leave row back too. IDs and timestamps are written back into leave.
func (db *DB) CreateSickLeave(ctx context.Context, leave *model.SickLeave) (err error) {
	now := time.Now()
	leave.ID = xid.New().String()
	leave.CreatedAt = now
	leave.UpdatedAt = now
	if leave.CCRecipients == nil {
		leave.CCRecipients = []string{}
	}

	cc, err := json.Marshal(leave.CCRecipients)
	if err != nil {
		return fmt.Errorf("sqlite: encoding cc recipients: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op returning ErrTxDone.
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sick_leaves (id, user_id, start_date, end_date, customer_info_type,
		     substitute_name, customer_contact, tasks, cc_recipients, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		leave.ID,
		leave.UserID,
		leave.StartDate.Format(dateLayout),
		leave.EndDate.Format(dateLayout),
		string(leave.CustomerInfoType),
		leave.SubstituteName,
		leave.CustomerContact,
		leave.Tasks,
		string(cc),
		leave.CreatedAt,
		leave.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting sick leave: %w", err)
	}

	for i := range leave.Projects {
		p := &leave.Projects[i]
		p.ID = xid.New().String()
		p.SickLeaveID = leave.ID

		_, err = tx.ExecContext(ctx,
			`INSERT INTO projects (id, sick_leave_id, position, customer, project)
			 VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.SickLeaveID, i, p.Customer, p.Project,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting project %d of sick leave %s: %w", i, leave.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing sick leave %s: %w", leave.ID, err)
	}

	return nil
}

// ListSickLeaves returns the leaves matching filter, newest start date first,
// each with its projects.
//
// One LEFT JOIN query fetches leaves and projects together; rows of the same
// leave are adjacent because of the ORDER BY, so they are grouped in a single
// pass. The stored data carries no status: callers derive it.
func (db *DB) ListSickLeaves(ctx context.Context, filter repository.SickLeaveFilter) ([]model.SickLeave, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT s.id, s.user_id, s.start_date, s.end_date, s.customer_info_type,
		        s.substitute_name, s.customer_contact, s.tasks, s.cc_recipients,
		        s.created_at, s.updated_at,
		        p.id, p.customer, p.project
		 FROM sick_leaves s
		 LEFT JOIN projects p ON p.sick_leave_id = s.id
		 WHERE s.user_id = ? AND s.start_date >= ? AND s.start_date <= ?
		 ORDER BY s.start_date DESC, s.created_at DESC, s.id, p.position`,
		filter.UserID,
		filter.StartFrom.Format(dateLayout),
		filter.StartTo.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing sick leaves: %w", err)
	}
	defer rows.Close()

	leaves := make([]model.SickLeave, 0)

	for rows.Next() {
		var (
			l                  model.SickLeave
			start, end, infoTy string
			cc                 string
			projectID          sql.NullString
			customer, project  sql.NullString
		)
		if err := rows.Scan(
			&l.ID, &l.UserID, &start, &end, &infoTy,
			&l.SubstituteName, &l.CustomerContact, &l.Tasks, &cc,
			&l.CreatedAt, &l.UpdatedAt,
			&projectID, &customer, &project,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning sick leave row: %w", err)
		}

		// Start a new leave unless this row continues the previous one.
		if n := len(leaves); n == 0 || leaves[n-1].ID != l.ID {
			if l.StartDate, err = time.Parse(dateLayout, start); err != nil {
				return nil, fmt.Errorf("sqlite: parsing start_date of %s: %w", l.ID, err)
			}
			if l.EndDate, err = time.Parse(dateLayout, end); err != nil {
				return nil, fmt.Errorf("sqlite: parsing end_date of %s: %w", l.ID, err)
			}
			l.CustomerInfoType = model.CustomerInfoType(infoTy)
			if err := json.Unmarshal([]byte(cc), &l.CCRecipients); err != nil {
				return nil, fmt.Errorf("sqlite: decoding cc recipients of %s: %w", l.ID, err)
			}
			if l.CCRecipients == nil {
				l.CCRecipients = []string{}
			}
			l.Projects = []model.Project{}
			leaves = append(leaves, l)
		}

		if projectID.Valid {
			cur := &leaves[len(leaves)-1]
			cur.Projects = append(cur.Projects, model.Project{
				ID:          projectID.String,
				SickLeaveID: cur.ID,
				Customer:    customer.String,
				Project:     project.String,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating sick leaves: %w", err)
	}

	return leaves, nil
}
