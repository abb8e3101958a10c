package models

import "time"

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// User is keyed by a caller-chosen, case-sensitive user id rather than a
// surrogate key; the id is what project ownership and grants reference.
type User struct {
	UserID       string    `json:"userId" gorm:"column:user_id;type:varchar(100);primaryKey"`
	PasswordHash string    `json:"-" gorm:"type:text;not null"`
	DisplayName  string    `json:"displayName" gorm:"type:varchar(150);not null"`
	Role         UserRole  `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Projects []Project     `json:"-" gorm:"foreignKey:OwnerUserID;references:UserID"`
	Grants   []AccessGrant `json:"-" gorm:"foreignKey:GranteeUserID;references:UserID"`
}

func (User) TableName() string {
	return "users"
}
