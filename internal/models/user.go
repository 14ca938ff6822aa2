// Package models contains data structures for the application's domain models.
package models

import "time"

// Role is the coarse authorization level stored on a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account that can author posts, like them and subscribe to other authors.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	DisplayName string    `gorm:"size:150" json:"display_name"`
	Avatar      string    `json:"avatar"`
	Role        Role      `gorm:"size:16;not null" json:"role"`
	IsStaff     bool      `gorm:"not null" json:"is_staff"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsAdmin is true when either the role or the staff flag grants admin rights.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsStaff
}

// Subscription is a directed edge: SubscriberID follows TargetID.
// The composite primary key serves forward lookups, the target index serves reverse ones.
type Subscription struct {
	SubscriberID uint      `gorm:"primaryKey;autoIncrement:false" json:"subscriber_id"`
	TargetID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"target_id"`
	CreatedAt    time.Time `json:"created_at"`
}
