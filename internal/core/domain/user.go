package domain

import "errors"

const (
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrNoSession = errors.New("no active session")
var ErrForbidden = errors.New("access forbidden")

// UserProfile models the authenticated actor as returned by the login
// endpoint. It is owned by the session store and mirrored into the same
// storage tier as the active credential.
type UserProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// KnownRole reports whether role is one of the two roles the product serves.
func KnownRole(role string) bool {
	return role == RoleManager || role == RoleEmployee
}

// Identity is the acting identity a network operation was issued for.
// The zero value means anonymous. Results of in-flight requests are
// discarded when the session identity no longer matches the one the
// request was tagged with.
type Identity struct {
	UserID int
	Name   string
	Role   string
}

// IsZero reports whether the identity is anonymous.
func (i Identity) IsZero() bool {
	return i == Identity{}
}

// TeamMember is one row of a manager's team listing, with per-employee
// feedback counters computed server-side.
type TeamMember struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	PendingFeedbacks int    `json:"pending_feedbacks"`
	GivenFeedbacks   int    `json:"given_feedbacks"`
}
