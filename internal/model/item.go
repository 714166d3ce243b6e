package model

import "time"

// Status tells whether an item was lost or found.
type Status string

// Item statuses.
const (
	StatusLost  Status = "Lost"
	StatusFound Status = "Found"
)

// Valid reports whether s is one of the two known statuses.
func (s Status) Valid() bool {
	return s == StatusLost || s == StatusFound
}

// Item is a single lost or found posting.
type Item struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Status      Status    `json:"status" db:"status"`
	Image       *string   `json:"image,omitempty" db:"image"`
	Claimed     bool      `json:"claimed" db:"claimed"`
	DatePosted  time.Time `json:"date_posted" db:"date_posted"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	Version     int64     `json:"version" db:"version"`

	// Joined field (not always populated).
	OwnerUsername string `json:"owner_username,omitempty" db:"owner_username"`
}

// ImageKey returns the asset key of the item's image, or "" when it has none.
func (i *Item) ImageKey() string {
	if i == nil || i.Image == nil {
		return ""
	}
	return *i.Image
}

// ItemFields are the owner-editable text fields of an item.
type ItemFields struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Status      Status `json:"status" validate:"required,oneof=Lost Found"`
}

// ItemUpdate is a partial update. Nil fields are left untouched.
type ItemUpdate struct {
	Name        *string
	Description *string
	Status      *Status
	Image       *string
	Claimed     *bool

	// IfVersion, when set, makes the update conditional on the stored version.
	IfVersion *int64
}

// Empty reports whether the update changes nothing.
func (u ItemUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Status == nil && u.Image == nil && u.Claimed == nil
}
