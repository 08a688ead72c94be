package dto

import (
	"fmt"
	"time"

	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/repository"
	"github.com/yukikurage/stage-intake/internal/utils"
)

// UserDTO represents a user on the admin dashboard
type UserDTO struct {
	ID        uint64
	Username  string
	Email     string
	Role      models.Role
	StageName string
}

// StageDTO represents a stage in lists and selects
type StageDTO struct {
	ID     uint64
	Number int
	Name   string
}

// FormDTO represents a question as rendered in a form
type FormDTO struct {
	ID              uint64
	StageLabel      string
	Question        string
	Type            string
	Options         []string
	AllowFileUpload bool
	AnswerField     string
	FileField       string
}

// RecordListItemDTO represents a record in list pages
type RecordListItemDTO struct {
	ID        uint64
	Name      string
	StageName string
	CreatedAt time.Time
}

// ResponseDTO represents one answered question
type ResponseDTO struct {
	Question string
	Answer   string
	FileURL  string
}

// RecordDetailDTO represents a record with its responses
type RecordDetailDTO struct {
	RecordListItemDTO
	Responses []ResponseDTO
}

// AuditLogDTO represents an audit entry with a display name for the actor
type AuditLogDTO struct {
	ID        uint64
	Actor     string
	Action    string
	CreatedAt time.Time
}

// PageDTO carries pagination links for list pages
type PageDTO struct {
	utils.PaginationResponse
	PrevPage int
	NextPage int
}

// ToUserDTO converts a user to DTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
	if user.Email != nil {
		dto.Email = *user.Email
	}
	if user.Stage != nil {
		dto.StageName = user.Stage.StageName
	}
	return dto
}

// ToUserDTOs converts users to DTOs
func ToUserDTOs(users []models.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, user := range users {
		dtos[i] = ToUserDTO(user)
	}
	return dtos
}

// ToStageDTOs converts stages to DTOs
func ToStageDTOs(stages []models.Stage) []StageDTO {
	dtos := make([]StageDTO, len(stages))
	for i, stage := range stages {
		dtos[i] = StageDTO{ID: stage.ID, Number: stage.StageNumber, Name: stage.StageName}
	}
	return dtos
}

// ToFormDTOs converts forms to DTOs with their submission field names
func ToFormDTOs(forms []models.Form) []FormDTO {
	dtos := make([]FormDTO, len(forms))
	for i, form := range forms {
		dtos[i] = FormDTO{
			ID:              form.ID,
			Question:        form.Question,
			Type:            string(form.Type),
			Options:         form.Options,
			AllowFileUpload: form.AllowFileUpload,
			AnswerField:     fmt.Sprintf("form_%d", form.ID),
			FileField:       fmt.Sprintf("file_%d", form.ID),
		}
		if form.Stage.ID != 0 {
			dtos[i].StageLabel = fmt.Sprintf("%d. %s", form.Stage.StageNumber, form.Stage.StageName)
		}
	}
	return dtos
}

// ToRecordListItemDTOs converts records to list DTOs
func ToRecordListItemDTOs(records []models.Record) []RecordListItemDTO {
	dtos := make([]RecordListItemDTO, len(records))
	for i, record := range records {
		dtos[i] = toRecordListItemDTO(record)
	}
	return dtos
}

func toRecordListItemDTO(record models.Record) RecordListItemDTO {
	return RecordListItemDTO{
		ID:        record.ID,
		Name:      record.Name,
		StageName: record.Stage.StageName,
		CreatedAt: record.CreatedAt,
	}
}

// ToRecordDetailDTO converts a loaded record to a detail DTO
func ToRecordDetailDTO(record models.Record) RecordDetailDTO {
	responses := make([]ResponseDTO, len(record.Responses))
	for i, response := range record.Responses {
		responses[i] = ResponseDTO{Question: response.Form.Question}
		if response.Answer != nil {
			responses[i].Answer = *response.Answer
		}
		if response.FileURL != nil {
			responses[i].FileURL = *response.FileURL
		}
	}
	return RecordDetailDTO{
		RecordListItemDTO: toRecordListItemDTO(record),
		Responses:         responses,
	}
}

// ToAuditLogDTOs converts audit rows, naming deleted users by id
func ToAuditLogDTOs(rows []repository.AuditLogRow) []AuditLogDTO {
	dtos := make([]AuditLogDTO, len(rows))
	for i, row := range rows {
		actor := fmt.Sprintf("(deleted user #%d)", row.UserID)
		if row.Username != nil {
			actor = *row.Username
		}
		dtos[i] = AuditLogDTO{
			ID:        row.ID,
			Actor:     actor,
			Action:    row.Action,
			CreatedAt: row.CreatedAt,
		}
	}
	return dtos
}

// NewPageDTO builds pagination links
func NewPageDTO(params utils.PaginationParams, total int64) PageDTO {
	page := PageDTO{
		PaginationResponse: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	}
	if params.Page > 1 {
		page.PrevPage = params.Page - 1
	}
	if int64(params.Page*params.Limit) < total {
		page.NextPage = params.Page + 1
	}
	return page
}
