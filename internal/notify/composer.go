// Package notify renders the sick-leave notification email.
//
// Composing is a pure function of the draft, the sender's display name and
// the sender's manager address. Nothing is sent from the server; the result
// is handed to the user's mail client as a mailto link.
package notify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/krankmeldung/internal/model"
)

// DefaultInbox is the organisational address that receives every notification.
const DefaultInbox = "krankmeldung@netlution.de"

// DateLayout is the German day.month.year format used in subject and body.
const DateLayout = "02.01.2006"

const (
	greeting       = "Liebe Kolleginnen und Kollegen,"
	projectsHeader = "Während der Krankmeldung bin ich in folgenden Projekten eingesetzt:"
	tasksHeader    = "Es müssen Aufgaben im Projekt übernommen werden:"
	closing        = "Viele Grüße,"
)

// EmailTemplate is a composed notification. Recipients[0] is the To address,
// the remaining ones are Cc.
type EmailTemplate struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// To returns the primary recipient.
func (e EmailTemplate) To() string {
	if len(e.Recipients) == 0 {
		return ""
	}
	return e.Recipients[0]
}

// Cc returns every recipient after the first.
func (e EmailTemplate) Cc() []string {
	if len(e.Recipients) < 2 {
		return []string{}
	}
	return e.Recipients[1:]
}

// MailtoURL builds a mailto link carrying subject, body and Cc. Parameters
// keep the order subject, body, cc; spaces are encoded as %20 so mail clients
// do not show literal plus signs.
func (e EmailTemplate) MailtoURL() string {
	var b strings.Builder
	b.WriteString("mailto:")
	b.WriteString(e.To())
	b.WriteString("?subject=")
	b.WriteString(escape(e.Subject))
	b.WriteString("&body=")
	b.WriteString(escape(e.Body))
	if cc := e.Cc(); len(cc) > 0 {
		b.WriteString("&cc=")
		b.WriteString(escape(strings.Join(cc, ",")))
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Composer renders notifications addressed to a fixed organisational inbox.
type Composer struct {
	inbox string
}

// NewComposer returns a Composer for inbox, falling back to DefaultInbox.
func NewComposer(inbox string) *Composer {
	if inbox == "" {
		inbox = DefaultInbox
	}
	return &Composer{inbox: inbox}
}

// Inbox returns the organisational address.
func (c *Composer) Inbox() string { return c.inbox }

// Compose renders the email for draft on behalf of name. manager may be empty.
// Recipients are never deduplicated.
func (c *Composer) Compose(draft model.SickLeaveDraft, name, manager string) EmailTemplate {
	recipients := make([]string, 0, 2+len(draft.CCRecipients))
	recipients = append(recipients, c.inbox)
	if manager != "" {
		recipients = append(recipients, manager)
	}
	recipients = append(recipients, draft.CCRecipients...)

	return EmailTemplate{
		Recipients: recipients,
		Subject:    Subject(name, draft.StartDate, draft.EndDate),
		Body:       Body(draft, name),
	}
}

// Subject returns "Krankmeldung <name> - <start> bis <end>".
func Subject(name string, start, end time.Time) string {
	return fmt.Sprintf("Krankmeldung %s - %s bis %s", name, FormatDate(start), FormatDate(end))
}

// Body renders the plain-text body. Paragraphs are separated by a blank line;
// the tasks paragraph is left out when draft.Tasks is empty.
func Body(draft model.SickLeaveDraft, name string) string {
	projects := make([]string, len(draft.Projects))
	for i, p := range draft.Projects {
		projects[i] = p.Customer + " - " + p.Project
	}

	paragraphs := []string{
		greeting,
		fmt.Sprintf("Ich falle krankheitsbedingt von %s bis voraussichtlich %s aus.",
			FormatDate(draft.StartDate), FormatDate(draft.EndDate)),
		projectsHeader + "\n" + strings.Join(projects, "\n"),
		customerInfo(draft),
	}
	if draft.Tasks != "" {
		paragraphs = append(paragraphs, tasksHeader+"\n"+draft.Tasks)
	}
	paragraphs = append(paragraphs, closing+"\n"+name)

	return strings.Join(paragraphs, "\n\n")
}

func customerInfo(draft model.SickLeaveDraft) string {
	if draft.CustomerInfoType == model.CustomerInformed {
		return "Der Kunde wurde bereits durch mich über den Ausfall und die Dauer informiert. " +
			"Hier ist eine Vertretung durch " + draft.SubstituteName + " gegeben."
	}
	return "Der Kunde ist noch nicht informiert. Ich bitte euch, die Information an den Kunden weiterzugeben." +
		"\n\nKontaktdaten Kunde:\n" + draft.CustomerContact
}

// FormatDate formats t as DD.MM.YYYY in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

var subjectPattern = regexp.MustCompile(`^Krankmeldung (.*) - (\d{2}\.\d{2}\.\d{4}) bis (\d{2}\.\d{2}\.\d{4})$`)

// ParseSubject extracts the sender name and the date range from a subject
// produced by Subject.
func ParseSubject(subject string) (name string, start, end time.Time, err error) {
	m := subjectPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("notify: not a sick-leave subject: %q", subject)
	}
	if start, err = time.Parse(DateLayout, m[2]); err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("notify: parsing start date: %w", err)
	}
	if end, err = time.Parse(DateLayout, m[3]); err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("notify: parsing end date: %w", err)
	}
	return m[1], start, end, nil
}
