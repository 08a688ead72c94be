package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/yukikurage/stage-intake/internal/mailer"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/repository"
	"github.com/yukikurage/stage-intake/internal/storage"
)

var (
	ErrRecordNameRequired = errors.New("record name is required")
	ErrNoStageAccess      = errors.New("user is not assigned to a stage")
	ErrInvalidChoice      = errors.New("answer is not one of the options")
	ErrFileTooLarge       = errors.New("uploaded file is too large")
)

// InvalidChoiceError names the question whose answer was rejected.
type InvalidChoiceError struct {
	Question string
}

func (e *InvalidChoiceError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidChoice, e.Question)
}

// Is matches ErrInvalidChoice.
func (e *InvalidChoiceError) Is(target error) bool {
	return target == ErrInvalidChoice
}

// FileInput is an uploaded file that is only opened when its form accepts uploads.
type FileInput struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// SubmitInput holds a staff submission keyed by form ID.
type SubmitInput struct {
	RecordName string
	Answers    map[uint64]string
	Files      map[uint64]FileInput
}

// SubmissionOptions bounds uploads.
type SubmissionOptions struct {
	MaxUploadBytes int64
	UploadTimeout  time.Duration
}

// SubmissionService stores records and responses for staff.
type SubmissionService struct {
	stageRepo  repository.StageRepository
	formRepo   repository.FormRepository
	recordRepo repository.RecordRepository
	files      storage.FileStore
	mailer     mailer.Mailer
	opts       SubmissionOptions
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	stageRepo repository.StageRepository,
	formRepo repository.FormRepository,
	recordRepo repository.RecordRepository,
	files storage.FileStore,
	m mailer.Mailer,
	opts SubmissionOptions,
) *SubmissionService {
	return &SubmissionService{
		stageRepo:  stageRepo,
		formRepo:   formRepo,
		recordRepo: recordRepo,
		files:      files,
		mailer:     m,
		opts:       opts,
	}
}

// StageForms returns the stage the user is scoped to and its questions.
func (s *SubmissionService) StageForms(ctx context.Context, user *models.User) (*models.Stage, []models.Form, error) {
	if user.StageAccess == nil {
		return nil, nil, ErrNoStageAccess
	}
	stage, err := s.stageRepo.FindByID(ctx, *user.StageAccess)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find stage: %w", err)
	}
	forms, err := s.formRepo.ListByStage(ctx, stage.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list forms: %w", err)
	}
	return stage, forms, nil
}

// Submit validates the answers for the user's stage, uploads accepted files
// and stores the record with its responses in one transaction.
func (s *SubmissionService) Submit(ctx context.Context, user *models.User, input SubmitInput) (*models.Record, error) {
	name := strings.TrimSpace(input.RecordName)
	if name == "" {
		return nil, ErrRecordNameRequired
	}
	if user.StageAccess == nil || !CanAccessStage(user, *user.StageAccess) {
		return nil, ErrNoStageAccess
	}
	stageID := *user.StageAccess

	forms, err := s.formRepo.ListByStage(ctx, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}

	// Validate everything before any file leaves the process.
	answers := make(map[uint64]string, len(forms))
	uploads := make(map[uint64]FileInput)
	for _, form := range forms {
		answer := strings.TrimSpace(input.Answers[form.ID])
		if answer != "" && form.Type == models.FormTypeChoice && !form.HasOption(answer) {
			return nil, &InvalidChoiceError{Question: form.Question}
		}
		answers[form.ID] = answer

		file, ok := input.Files[form.ID]
		if !ok || !form.AllowFileUpload || file.Open == nil {
			continue
		}
		if s.opts.MaxUploadBytes > 0 && file.Size > s.opts.MaxUploadBytes {
			return nil, ErrFileTooLarge
		}
		uploads[form.ID] = file
	}

	fileURLs, err := s.uploadFiles(ctx, forms, uploads)
	if err != nil {
		return nil, err
	}

	responses := make([]models.Response, 0, len(forms))
	for _, form := range forms {
		var response models.Response
		if answer := answers[form.ID]; answer != "" {
			response.Answer = &answer
		}
		if url, ok := fileURLs[form.ID]; ok {
			response.FileURL = &url
		}
		if response.Answer == nil && response.FileURL == nil {
			continue
		}
		response.FormID = form.ID
		responses = append(responses, response)
	}

	record := &models.Record{
		Name:      name,
		StageID:   stageID,
		CreatedBy: user.ID,
	}
	entry := models.NewAuditLog(user.ID, "Submitted record: "+name)
	if err := s.recordRepo.CreateWithResponses(ctx, record, responses, entry); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	s.sendConfirmation(ctx, user, record)
	return record, nil
}

func (s *SubmissionService) uploadFiles(ctx context.Context, forms []models.Form, uploads map[uint64]FileInput) (map[uint64]string, error) {
	urls := make(map[uint64]string, len(uploads))
	if len(uploads) == 0 {
		return urls, nil
	}

	if s.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.UploadTimeout)
		defer cancel()
	}

	for _, form := range forms {
		file, ok := uploads[form.ID]
		if !ok {
			continue
		}
		url, err := s.saveFile(ctx, file)
		if errors.Is(err, storage.ErrEmptyFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store file for %q: %w", form.Question, err)
		}
		urls[form.ID] = url
	}
	return urls, nil
}

func (s *SubmissionService) saveFile(ctx context.Context, file FileInput) (string, error) {
	body, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", file.Filename, err)
	}
	defer body.Close()

	return s.files.Save(ctx, storage.Upload{
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Body:        body,
	})
}

func (s *SubmissionService) sendConfirmation(ctx context.Context, user *models.User, record *models.Record) {
	to, ok := ContactAddress(user)
	if !ok {
		return
	}

	err := s.mailer.Send(ctx, mailer.Message{
		To:      to,
		Subject: "Record received: " + record.Name,
		Body: fmt.Sprintf("Your submission for %s was stored as record #%d at %s.\n",
			record.Name, record.ID, record.CreatedAt.UTC().Format(time.RFC1123)),
	})
	if err != nil && !errors.Is(err, mailer.ErrMailDisabled) {
		log.Printf("Failed to send confirmation for record %d to %s: %v", record.ID, to, err)
	}
}
