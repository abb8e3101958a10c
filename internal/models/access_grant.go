package models

// AccessMode is the computed classification of an actor's relationship to a
// project. Only shared access is read-only.
type AccessMode string

const (
	AccessModeOwner  AccessMode = "owner"
	AccessModeAdmin  AccessMode = "admin"
	AccessModeShared AccessMode = "shared"
	AccessModeNone   AccessMode = "none"
)

func (m AccessMode) ReadOnly() bool {
	return m == AccessModeShared
}

// CanWrite reports whether the mode allows mutating the project or managing
// its grants.
func (m AccessMode) CanWrite() bool {
	return m == AccessModeOwner || m == AccessModeAdmin
}

type AccessLevel string

// The only grant level currently issued. The column exists so further
// levels can be introduced without a schema change.
const AccessLevelRead AccessLevel = "read"

type AccessGrant struct {
	BaseModel
	ProjectID       string      `json:"projectId" gorm:"column:project_id;type:varchar(32);not null;uniqueIndex:uq_project_access_project_user;index"`
	GranteeUserID   string      `json:"userId" gorm:"column:user_id;type:varchar(100);not null;uniqueIndex:uq_project_access_project_user;index"`
	AccessLevel     AccessLevel `json:"accessLevel" gorm:"column:access_level;type:varchar(20);not null;default:'read'"`
	GrantedByUserID string      `json:"grantedByUserId" gorm:"column:granted_by_user_id;type:varchar(100);not null"`

	Project   *Project `json:"-" gorm:"foreignKey:ProjectID;references:ID"`
	Grantee   *User    `json:"grantee,omitempty" gorm:"foreignKey:GranteeUserID;references:UserID"`
	GrantedBy *User    `json:"-" gorm:"foreignKey:GrantedByUserID;references:UserID"`

	GranteeDisplayName string `json:"granteeDisplayName,omitempty" gorm:"-"`
}

func (AccessGrant) TableName() string {
	return "project_access"
}
