// Package models holds the client-side view of server resources.
package models

import "time"

// User mirrors the public user document returned by the server. The
// password hash never leaves the server, so it has no field here.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName is what the prompt shows: the name when set, else the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
