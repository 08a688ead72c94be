package models

import "time"

// Record is the subject ("parent") that forms are filled in for.
type Record struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(255);index;not null" json:"name"`
	StageID   uint64    `gorm:"index;not null" json:"stage_id"`
	CreatedBy uint64    `gorm:"index;not null" json:"created_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Relations
	Stage     Stage      `gorm:"foreignKey:StageID" json:"stage,omitempty"`
	Responses []Response `gorm:"foreignKey:RecordID" json:"responses,omitempty"`
}
