package domain

import "time"

// UserRole enumerates the authorization levels an account can hold.
// There is exactly one privileged level; no hierarchy exists.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Valid reports whether the role is one of the enumerated values.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusBanned UserStatus = "banned"
)

// Valid reports whether the status is one of the enumerated values.
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusBanned
}

// Gender is an optional profile attribute.
type Gender int16

const (
	GenderUnknown Gender = 0
	GenderMale    Gender = 1
	GenderFemale  Gender = 2
)

// Account field limits enforced by the registrar and validators.
const (
	AccountMinLength    = 4
	AccountMaxLength    = 16
	PasswordMinLength   = 8
	PasswordMaxLength   = 20
	PlanetCodeMaxLength = 6
)

// Defaults applied when a record is created without explicit values.
const (
	DefaultAvatarURL = "/static/avatar/default.png"
	DefaultProfile   = "This user has not written a bio yet."
)

// User mirrors the persisted representation in the users table.
// PasswordHash is never exposed outside the persistence and auth layers.
type User struct {
	ID           int64
	Account      string
	PasswordHash string
	PlanetCode   string
	Name         string
	AvatarURL    string
	Profile      string
	Gender       Gender
	Phone        *string
	Email        *string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Deleted      bool
}

// Principal is the sanitized projection of a User held in session state
// and returned to clients. It carries no credential material.
type Principal struct {
	ID         int64      `json:"id"`
	Account    string     `json:"userAccount"`
	PlanetCode string     `json:"planetCode"`
	Name       string     `json:"userName"`
	AvatarURL  string     `json:"userAvatar"`
	Profile    string     `json:"userProfile"`
	Gender     Gender     `json:"userGender"`
	Phone      *string    `json:"userPhone,omitempty"`
	Email      *string    `json:"userEmail,omitempty"`
	Role       UserRole   `json:"userRole"`
	Status     UserStatus `json:"userStatus"`
	CreatedAt  time.Time  `json:"createTime"`
}

// Sanitize strips credential material and returns the public projection.
func (u User) Sanitize() Principal {
	return Principal{
		ID:         u.ID,
		Account:    u.Account,
		PlanetCode: u.PlanetCode,
		Name:       u.Name,
		AvatarURL:  u.AvatarURL,
		Profile:    u.Profile,
		Gender:     u.Gender,
		Phone:      u.Phone,
		Email:      u.Email,
		Role:       u.Role,
		Status:     u.Status,
		CreatedAt:  u.CreatedAt,
	}
}

// UserUpdate describes a partial update; nil fields are left untouched.
type UserUpdate struct {
	ID        int64
	Name      *string
	AvatarURL *string
	Profile   *string
	Gender    *Gender
	Phone     *string
	Email     *string
	Role      *UserRole
}

// UserFilter narrows admin listing queries. Zero values mean "no filter".
type UserFilter struct {
	ID              int64
	Account         string
	Name            string
	Profile         string
	Role            UserRole
	Gender          *Gender
	Phone           string
	Email           string
	Status          UserStatus
	PlanetCode      string
	CreatedAtStart  *time.Time
	CreatedAtEnd    *time.Time
	SortField       string
	SortAscending   bool
	SortFieldWasSet bool
}

// Page describes pagination bounds for listing queries.
type Page struct {
	Current int
	Size    int
}
