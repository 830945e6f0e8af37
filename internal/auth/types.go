package auth

import "time"

// User is a registered account.
type User struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	AssignedMosque string    `json:"assignedMosque,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Identity returns the token identity for u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role, AssignedMosque: u.AssignedMosque}
}

// Registration is the input accepted by Service.Register.
type Registration struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}
