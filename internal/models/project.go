package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Doc is the metadata of one uploaded attachment, kept as JSON on the
// project row; the bytes themselves live in object storage.
type Doc struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Key        string `json:"key,omitempty"`
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploadedAt"`
}

type DocList []Doc

func (l DocList) Value() (driver.Value, error) {
	if l == nil {
		l = DocList{}
	}
	return json.Marshal(l)
}

func (l *DocList) Scan(value interface{}) error {
	data, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*l = DocList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

type Project struct {
	ID           string     `json:"id" gorm:"type:varchar(32);primaryKey"`
	OwnerUserID  string     `json:"ownerUserId" gorm:"column:user_id;type:varchar(100);not null;index"`
	Title        string     `json:"title" gorm:"type:varchar(255);not null"`
	Description  string     `json:"description" gorm:"type:text;not null;default:''"`
	Status       string     `json:"status" gorm:"type:varchar(50);not null;default:'Upcoming'"`
	Priority     string     `json:"priority" gorm:"type:varchar(20);not null;default:'Medium'"`
	Progress     int        `json:"progress" gorm:"not null;default:0"`
	Tags         StringList `json:"tags" gorm:"type:text"`
	TechStack    StringList `json:"techStack" gorm:"column:tech_stack;type:text"`
	RepoLink     string     `json:"repoLink" gorm:"column:repo_link;type:text;not null;default:''"`
	DeployLink   string     `json:"deployLink" gorm:"column:deploy_link;type:text;not null;default:''"`
	DeployStatus string     `json:"deployStatus" gorm:"column:deploy_status;type:varchar(30);not null;default:'not-deployed'"`
	DeployLabel  string     `json:"deployLabel" gorm:"column:deploy_label;type:varchar(100);not null;default:''"`
	Docs         DocList    `json:"docs" gorm:"type:text"`
	Deadline     string     `json:"deadline" gorm:"type:varchar(10);not null;default:''"`
	Notes        string     `json:"notes" gorm:"type:text;not null;default:''"`
	Tasks        JSONField  `json:"tasks" gorm:"type:text"`
	ActivityLog  JSONField  `json:"activityLog" gorm:"column:activity_log;type:text"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	Owner  *User         `json:"-" gorm:"foreignKey:OwnerUserID;references:UserID"`
	Grants []AccessGrant `json:"-" gorm:"foreignKey:ProjectID;references:ID"`

	// Computed per request, never persisted.
	AccessMode AccessMode `json:"accessMode,omitempty" gorm:"-"`
	ReadOnly   bool       `json:"readOnly" gorm:"-"`
}

func (Project) TableName() string {
	return "projects"
}
