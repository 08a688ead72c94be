package models

import "time"

type Stage struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	StageNumber int       `gorm:"uniqueIndex;not null" json:"stage_number"`
	StageName   string    `gorm:"type:varchar(255);not null" json:"stage_name"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Forms []Form `gorm:"foreignKey:StageID" json:"forms,omitempty"`
}
