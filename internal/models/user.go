package models

import "time"

// User represents the authenticated account as returned by the backend
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	ImageURL  string     `json:"imageUrl,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// DisplayName returns the user's full name, falling back to the email
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// UserPatch holds a partial update for a User. Nil fields are left untouched.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
	ImageURL  *string
	UpdatedAt *time.Time
}

// Apply returns a copy of u with the patch merged in
func (p UserPatch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.ImageURL != nil {
		u.ImageURL = *p.ImageURL
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		u.UpdatedAt = &t
	}
	return u
}
