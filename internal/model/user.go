package model

import "time"

// Role is the authorization tag carried in a caller's token.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleHR       Role = "HR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleHR
}

// User is a registered identity. The password is stored as a keyed digest.
type User struct {
	Username       string    `json:"username" gorm:"primaryKey;size:100"`
	PasswordDigest []byte    `json:"-" gorm:"not null"` // Never expose in JSON
	DigestKey      []byte    `json:"-" gorm:"not null"`
	Role           Role      `json:"role" gorm:"type:varchar(20);not null;index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Requests []Request    `json:"-" gorm:"foreignKey:Username;references:Username"`
	Profile  *UserProfile `json:"-" gorm:"foreignKey:Username;references:Username"`
}

// UserProfile holds personal and bank details for a user.
type UserProfile struct {
	ID                uint      `json:"userId" gorm:"primaryKey"`
	Username          string    `json:"username" gorm:"uniqueIndex;size:100;not null"`
	FirstName         string    `json:"firstName" gorm:"size:100;not null"`
	LastName          string    `json:"lastName" gorm:"size:100;not null"`
	City              string    `json:"city" gorm:"size:100"`
	ContactNumber     string    `json:"contactNumber" gorm:"size:20"`
	BankAccountNumber string    `json:"bankAccountNumber" gorm:"size:34"`
	RoutingCode       string    `json:"routingCode" gorm:"size:20"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
