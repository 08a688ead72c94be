package models

import "time"

type FormType string

const (
	FormTypeText     FormType = "text"
	FormTypeTextarea FormType = "textarea"
	FormTypeChoice   FormType = "choice"
	FormTypeFile     FormType = "file"
)

// Valid reports whether t is a supported question type.
func (t FormType) Valid() bool {
	switch t {
	case FormTypeText, FormTypeTextarea, FormTypeChoice, FormTypeFile:
		return true
	}
	return false
}

// Form is a single question belonging to a stage.
type Form struct {
	ID              uint64    `gorm:"primarykey" json:"id"`
	StageID         uint64    `gorm:"index;not null" json:"stage_id"`
	Question        string    `gorm:"type:text;not null" json:"question"`
	Type            FormType  `gorm:"type:varchar(20);not null" json:"type"`
	Options         []string  `gorm:"type:text;serializer:json" json:"options"`
	AllowFileUpload bool      `gorm:"not null;default:false" json:"allow_file_upload"`
	CreatedAt       time.Time `json:"created_at"`

	// Relations
	Stage Stage `gorm:"foreignKey:StageID" json:"stage,omitempty"`
}

// HasOption reports whether answer is one of the form's choices.
func (f *Form) HasOption(answer string) bool {
	for _, o := range f.Options {
		if o == answer {
			return true
		}
	}
	return false
}
