package reminders

import (
	"time"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
)

// startupResponse is the /rd/startup payload.
type startupResponse struct {
	Collections []collectionRecord `json:"Collections"`
	Reminders   []reminderRecord   `json:"Reminders"`
}

type collectionRecord struct {
	GUID  string `json:"guid"`
	Title string `json:"title"`
	Ctag  string `json:"ctag"`
}

type reminderRecord struct {
	GUID        string   `json:"guid"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PGuid       string   `json:"pGuid"`
	Priority    int      `json:"priority"`
	Tags        []string `json:"tags"`
	// DueDate is the service's composite date form:
	// [yyyymmdd, year, month, day, hour, minute(, second)].
	DueDate []int  `json:"dueDate"`
	Etag    string `json:"etag"`
}

// taskFields is the write shape for create/update/complete calls, in
// the current web-client format.
type taskFields struct {
	GUID                string   `json:"guid"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	PGuid               string   `json:"pGuid"`
	Etag                *string  `json:"etag"`
	Order               int      `json:"order"`
	Priority            int      `json:"priority"`
	Recurrence          *string  `json:"recurrence"`
	CreatedDate         []int    `json:"createdDate,omitempty"`
	CreatedDateExtended int64    `json:"createdDateExtended,omitempty"`
	LastModifiedDate    int64    `json:"lastModifiedDate"`
	DueDate             []int    `json:"dueDate,omitempty"`
	DueDateTz           string   `json:"dueDateTz,omitempty"`
	DueDateIsAllDay     bool     `json:"dueDateIsAllDay"`
	Tags                []string `json:"tags"`
	Completed           bool     `json:"completed"`
	CompletedDate       *int64   `json:"completedDate"`
	Alarms              []any    `json:"alarms"`
	HasSubtasks         bool     `json:"hasSubtasks"`
	HasAttachments      bool     `json:"hasAttachments"`
	IsShared            bool     `json:"isShared"`
	Flagged             bool     `json:"flagged"`
	SubtaskOrder        []any    `json:"subtaskOrder"`
	Attachments         []any    `json:"attachments"`
	LocationBasedAlerts bool     `json:"locationBasedAlerts"`
}

type taskEnvelope struct {
	Fields taskFields `json:"fields"`
}

// Batch operation types accepted by /rd/reminders/tasks/batch.
const (
	opUpdate   = "update"
	opComplete = "complete"
)

type batchOperation struct {
	Type string       `json:"type"`
	Data taskEnvelope `json:"data"`
}

type batchRequest struct {
	Operations []batchOperation `json:"operations"`
}

// encodeDate renders a time in the composite wire form.
func encodeDate(t time.Time) []int {
	t = t.UTC()
	return []int{
		t.Year()*10000 + int(t.Month())*100 + t.Day(),
		t.Year(),
		int(t.Month()),
		t.Day(),
		t.Hour(),
		t.Minute(),
		t.Second(),
	}
}

// decodeDate parses the composite wire form; entries beyond the
// minute are ignored. Malformed values yield nil.
func decodeDate(v []int) *time.Time {
	if len(v) < 6 {
		return nil
	}
	month := v[2]
	if month < 1 || month > 12 {
		return nil
	}
	t := time.Date(v[1], time.Month(month), v[3], v[4], v[5], 0, 0, time.UTC)
	return &t
}

func toDomain(rec reminderRecord, listTitle string) domain.Reminder {
	return domain.Reminder{
		GUID:        rec.GUID,
		Title:       rec.Title,
		Description: rec.Description,
		ListGUID:    rec.PGuid,
		ListTitle:   listTitle,
		Priority:    rec.Priority,
		Tags:        rec.Tags,
		DueDate:     decodeDate(rec.DueDate),
		Completed:   false,
		Etag:        rec.Etag,
	}
}
