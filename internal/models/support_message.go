package models

type SupportMessage struct {
	BaseModel
	SenderUserID string `json:"senderUserId" gorm:"column:sender_user_id;type:varchar(100);not null;index"`
	MessageText  string `json:"messageText" gorm:"column:message_text;type:text;not null"`
	IsRead       bool   `json:"isRead" gorm:"column:is_read;not null;default:false"`

	Sender *User `json:"-" gorm:"foreignKey:SenderUserID;references:UserID"`

	SenderDisplayName string `json:"senderDisplayName,omitempty" gorm:"-"`
}

func (SupportMessage) TableName() string {
	return "support_messages"
}
