package models

import "time"

// AuditLog is an append-only entry. UserID carries no foreign key so entries
// outlive the users they reference.
type AuditLog struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"user_id"`
	Action    string    `gorm:"type:text;not null" json:"action"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog builds an entry for userID.
func NewAuditLog(userID uint64, action string) *AuditLog {
	return &AuditLog{UserID: userID, Action: action}
}
