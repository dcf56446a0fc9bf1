package entry

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/field"
)

// Profile is the display identity of a record owner.
type Profile struct {
	UserID     string `json:"user_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	PictureURL string `json:"picture_url,omitempty"`
}

// FullName joins first and last name, falling back to the user id.
func (p Profile) FullName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.UserID
	}
	return name
}

// Content is the stored value of one field for one record.
type Content struct {
	ID       int64
	RecordID int64
	FieldID  int64
	Slots    field.Slots
}

type contentJSON struct {
	ID       int64   `json:"id"`
	FieldID  int64   `json:"field_id"`
	Content  *string `json:"content"`
	Content1 *string `json:"content1,omitempty"`
	Content2 *string `json:"content2,omitempty"`
	Content3 *string `json:"content3,omitempty"`
	Content4 *string `json:"content4,omitempty"`
}

func (c Content) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentJSON{
		ID: c.ID, FieldID: c.FieldID,
		Content: c.Slots[0], Content1: c.Slots[1], Content2: c.Slots[2], Content3: c.Slots[3], Content4: c.Slots[4],
	})
}

// Record is one submitted entry of an instance.
type Record struct {
	ID         int64             `json:"id"`
	InstanceID int64             `json:"instance_id"`
	GroupID    int64             `json:"group_id"`
	UserID     string            `json:"user_id"`
	Approved   bool              `json:"approved"`
	CreatedAt  time.Time         `json:"created_at"`
	ModifiedAt time.Time         `json:"modified_at"`
	Owner      Profile           `json:"owner"`
	Contents   map[int64]Content `json:"contents"`
	Tags       []string          `json:"tags,omitempty"`
}

// Access returns the metadata the access policy decides on.
func (r *Record) Access() access.Entry {
	return access.Entry{OwnerID: r.UserID, GroupID: r.GroupID, Approved: r.Approved}
}

// Slots returns the stored row of a field, if any.
func (r *Record) Slots(fieldID int64) (field.Slots, bool) {
	c, ok := r.Contents[fieldID]
	return c.Slots, ok
}

// Submission is raw input keyed by field id.
type Submission map[int64]field.Input

// Notification is a message about one field.
type Notification struct {
	FieldName    string `json:"fieldname"`
	Notification string `json:"notification"`
}

// Report is the outcome of validating or submitting a record.
type Report struct {
	Validated            bool           `json:"validated"`
	GeneralNotifications []string       `json:"generalnotifications"`
	FieldNotifications   []Notification `json:"fieldnotifications"`
	NewEntryID           int64          `json:"newentryid"`
}

// NewReport builds a report from validation errors. Errors without a field name are
// general notifications.
func NewReport(errs field.ValidationErrors) *Report {
	r := &Report{
		Validated:            len(errs) == 0,
		GeneralNotifications: []string{},
		FieldNotifications:   []Notification{},
	}
	for _, e := range errs {
		if e.Field == "" {
			r.GeneralNotifications = append(r.GeneralNotifications, e.Err.Error())
			continue
		}
		r.FieldNotifications = append(r.FieldNotifications, Notification{FieldName: e.Field, Notification: e.Err.Error()})
	}
	return r
}

// AccessInfo summarises what an actor may do in an instance right now.
type AccessInfo struct {
	CanAddEntry      bool `json:"canaddentry"`
	CanManageEntries bool `json:"canmanageentries"`
	CanApprove       bool `json:"canapprove"`
	TimeAvailable    bool `json:"timeavailable"`
	InReadOnlyPeriod bool `json:"inreadonlyperiod"`
	NumEntries       int  `json:"numentries"`
	// EntriesLeftToAdd is nil when the actor has no limit.
	EntriesLeftToAdd *int `json:"entrieslefttoadd,omitempty"`
}
