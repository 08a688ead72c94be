package models

import "time"

type Response struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	RecordID  uint64    `gorm:"not null;uniqueIndex:idx_responses_record_form" json:"record_id"`
	FormID    uint64    `gorm:"not null;uniqueIndex:idx_responses_record_form;index" json:"form_id"`
	Answer    *string   `gorm:"type:text" json:"answer,omitempty"`
	FileURL   *string   `gorm:"type:text" json:"file_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Form Form `gorm:"foreignKey:FormID" json:"form,omitempty"`
}

// Display returns the answer, or the file location when no answer was given.
func (r *Response) Display() string {
	if r.Answer != nil && *r.Answer != "" {
		return *r.Answer
	}
	if r.FileURL != nil {
		return *r.FileURL
	}
	return ""
}
