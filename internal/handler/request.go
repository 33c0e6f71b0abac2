package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/sakif/krankmeldung/internal/model"
)

// sickLeaveRequest is the JSON body of POST /sick-leaves and
// POST /sick-leaves/preview.
type sickLeaveRequest struct {
	StartDate        date                 `json:"startDate"`
	EndDate          date                 `json:"endDate"`
	CustomerInfoType string               `json:"customerInfoType"`
	SubstituteName   string               `json:"substituteName"`
	CustomerContact  string               `json:"customerContact"`
	Tasks            string               `json:"tasks"`
	CCRecipients     recipientList        `json:"ccRecipients"`
	Projects         []model.ProjectInput `json:"projects"`
}

func (req sickLeaveRequest) draft() model.SickLeaveDraft {
	return model.SickLeaveDraft{
		StartDate:        time.Time(req.StartDate),
		EndDate:          time.Time(req.EndDate),
		CustomerInfoType: model.CustomerInfoType(req.CustomerInfoType),
		SubstituteName:   req.SubstituteName,
		CustomerContact:  req.CustomerContact,
		Tasks:            req.Tasks,
		CCRecipients:     []string(req.CCRecipients),
		Projects:         req.Projects,
	}
}

// date accepts "2006-01-02" or a full RFC 3339 timestamp. Empty strings and
// null decode to the zero time and are rejected later by validation.
type date time.Time

func (d *date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &invalidFieldError{field: "date", message: "Datum muss ein String sein"}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		*d = date(t)
		return nil
	}
	// A timestamp names the day in its own offset.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, day := t.Date()
		*d = date(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
		return nil
	}
	return &invalidFieldError{field: "date", message: "Ungültiges Datum: " + s}
}

// recipientList accepts a JSON array of strings or a single comma-separated
// string. Entries are trimmed and empty ones dropped; order and duplicates
// are kept.
type recipientList []string

func (l *recipientList) UnmarshalJSON(b []byte) error {
	var raw []string
	switch {
	case bytes.Equal(b, []byte("null")):
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return &invalidFieldError{field: "ccRecipients", message: "Ungültige CC-Empfänger"}
		}
		raw = strings.Split(s, ",")
	default:
		if err := json.Unmarshal(b, &raw); err != nil {
			return &invalidFieldError{field: "ccRecipients", message: "CC-Empfänger müssen eine Liste von E-Mail-Adressen sein"}
		}
	}

	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	*l = out
	return nil
}
