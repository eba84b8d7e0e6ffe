package models

import "time"

// Profile is stored at users/{uid}. The cart and orders subtrees share the
// same node, so profile writes are always field merges.
type Profile struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Phone       string    `json:"phone"`
	CreatedAt   time.Time `json:"createdAt"`
	IsAdmin     bool      `json:"isAdmin"`
	Provider    string    `json:"provider"`
}

// Name returns the display name, falling back to the email address.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}
