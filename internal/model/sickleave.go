package model

import (
	"math"
	"time"
)

// CustomerInfoType records whether the affected customer already knows about
// the absence.
type CustomerInfoType string

const (
	CustomerInformed    CustomerInfoType = "informed"
	CustomerNotInformed CustomerInfoType = "not_informed"
)

// Valid reports whether t is one of the known customer info types.
func (t CustomerInfoType) Valid() bool {
	return t == CustomerInformed || t == CustomerNotInformed
}

// Status is derived from the end date at read time. It is never stored.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// DeriveStatus returns StatusExpired iff endDate lies strictly before now.
func DeriveStatus(endDate, now time.Time) Status {
	if endDate.Before(now) {
		return StatusExpired
	}
	return StatusActive
}

// Project is an affected customer project. It only exists as part of its
// SickLeave.
type Project struct {
	ID          string `json:"id"`
	SickLeaveID string `json:"sickLeaveId"`
	Customer    string `json:"customer"`
	Project     string `json:"project"`
}

// SickLeave is a reported absence together with the projects it affects.
//
// StartDate and EndDate are calendar dates stored as UTC midnight.
// Status and DurationDays are computed by Refresh and are never persisted.
type SickLeave struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	StartDate        time.Time        `json:"startDate"`
	EndDate          time.Time        `json:"endDate"`
	Status           Status           `json:"status"`
	DurationDays     int              `json:"durationDays"`
	CustomerInfoType CustomerInfoType `json:"customerInfoType"`
	SubstituteName   string           `json:"substituteName"`
	CustomerContact  string           `json:"customerContact"`
	Tasks            string           `json:"tasks"`
	CCRecipients     []string         `json:"ccRecipients"`
	Projects         []Project        `json:"projects"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Refresh recomputes the derived fields for the given instant.
func (l *SickLeave) Refresh(now time.Time) {
	l.Status = DeriveStatus(l.EndDate, now)
	l.DurationDays = DurationDays(l.StartDate, l.EndDate)
}

// DurationDays counts calendar days from start to end, both inclusive.
// Reversed ranges are counted by their absolute distance.
func DurationDays(start, end time.Time) int {
	diff := math.Abs(end.Sub(start).Hours() / 24)
	return int(math.Ceil(diff)) + 1
}

// ProjectInput is one customer/project pair of a draft.
type ProjectInput struct {
	Customer string `json:"customer"`
	Project  string `json:"project"`
}

// SickLeaveDraft is a sick leave as submitted by a user, before it is stored.
// Both the lifecycle service and the notification composer consume it.
type SickLeaveDraft struct {
	StartDate        time.Time
	EndDate          time.Time
	CustomerInfoType CustomerInfoType
	SubstituteName   string
	CustomerContact  string
	Tasks            string
	CCRecipients     []string
	Projects         []ProjectInput
}
