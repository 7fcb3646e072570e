package entity

import "time"

// Role is the flat principal tag fixed at registration.
type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleWorker    Role = "worker"
)

// ParseRole returns the role for a known tag.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOrganizer, RoleWorker:
		return Role(s), true
	}
	return "", false
}

// KYC verification states. Only the initial state is written by this service.
const (
	KYCUnverified = "unverified"
	KYCPending    = "pending"
	KYCVerified   = "verified"
	KYCRejected   = "rejected"
)

// User represents an identity row in the `users` table.
// PasswordHash carries no json tag on purpose; use View/Public for responses.
type User struct {
	ID              string     `db:"id"`
	FullName        string     `db:"full_name"`
	Email           string     `db:"email"`
	Phone           string     `db:"phone"`
	PasswordHash    string     `db:"password_hash"`
	Role            Role       `db:"role"`
	IsActive        bool       `db:"is_active"`
	IsEmailVerified bool       `db:"is_email_verified"`
	KYCStatus       string     `db:"kyc_status"`
	ProfilePicture  *string    `db:"profile_picture"`
	TokenVersion    int64      `db:"token_version"`
	LastLoginAt     *time.Time `db:"last_login_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// PublicUser is the redacted identity returned by register and login.
type PublicUser struct {
	ID              string `json:"id"`
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Role            Role   `json:"role"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	KYCStatus       string `json:"kycStatus"`
	ProfilePicture  string `json:"profilePicture,omitempty"`
}

// UserView is the full identity minus credentials, returned by /auth/me.
type UserView struct {
	ID              string     `json:"id"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Role            Role       `json:"role"`
	IsActive        bool       `json:"isActive"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	KYCStatus       string     `json:"kycStatus"`
	ProfilePicture  *string    `json:"profilePicture"`
	LastLogin       *time.Time `json:"lastLogin"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	p := PublicUser{
		ID:              u.ID,
		FullName:        u.FullName,
		Email:           u.Email,
		Phone:           u.Phone,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		KYCStatus:       u.KYCStatus,
	}
	if u.ProfilePicture != nil {
		p.ProfilePicture = *u.ProfilePicture
	}
	return p
}

func (u *User) View() UserView {
	return UserView{
		ID:              u.ID,
		FullName:        u.FullName,
		Email:           u.Email,
		Phone:           u.Phone,
		Role:            u.Role,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		KYCStatus:       u.KYCStatus,
		ProfilePicture:  u.ProfilePicture,
		LastLogin:       u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
