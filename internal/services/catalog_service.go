package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrStageNotFound      = errors.New("stage not found")
	ErrInvalidStageNumber = errors.New("stage number must be at least 1")
	ErrStageNameRequired  = errors.New("stage name is required")
	ErrStageNumberTaken   = errors.New("stage number already exists")
	ErrStageInUse         = errors.New("stage is still in use")
	ErrQuestionRequired   = errors.New("question is required")
	ErrInvalidFormType    = errors.New("invalid form type")
	ErrOptionsRequired    = errors.New("choice questions need at least one option")
)

// CatalogService manages stages and their questions.
type CatalogService struct {
	stageRepo repository.StageRepository
	formRepo  repository.FormRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(stageRepo repository.StageRepository, formRepo repository.FormRepository) *CatalogService {
	return &CatalogService{
		stageRepo: stageRepo,
		formRepo:  formRepo,
	}
}

// CreateStageInput represents the fields of the add-stage form.
type CreateStageInput struct {
	Number int
	Name   string
}

// CreateStage adds a stage with a unique positive number.
func (s *CatalogService) CreateStage(ctx context.Context, actorID uint64, input CreateStageInput) (*models.Stage, error) {
	if input.Number < 1 {
		return nil, ErrInvalidStageNumber
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrStageNameRequired
	}

	if _, err := s.stageRepo.FindByNumber(ctx, input.Number); err == nil {
		return nil, ErrStageNumberTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check stage number: %w", err)
	}

	stage := &models.Stage{StageNumber: input.Number, StageName: name}
	if err := s.stageRepo.Create(ctx, stage, models.NewAuditLog(actorID, "Added stage: "+name)); err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}
	return stage, nil
}

// DeleteStage removes a stage and its questions. Stages with records or
// scoped staff are kept.
func (s *CatalogService) DeleteStage(ctx context.Context, actorID, stageID uint64) error {
	entry := models.NewAuditLog(actorID, fmt.Sprintf("Deleted stage ID: %d", stageID))
	if err := s.stageRepo.Delete(ctx, stageID, entry); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrStageNotFound
		case errors.Is(err, repository.ErrStageInUse):
			return ErrStageInUse
		default:
			return fmt.Errorf("failed to delete stage: %w", err)
		}
	}
	return nil
}

// ListStages returns stages in stage-number order.
func (s *CatalogService) ListStages(ctx context.Context) ([]models.Stage, error) {
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	return stages, nil
}

// GetStage retrieves a stage by ID.
func (s *CatalogService) GetStage(ctx context.Context, stageID uint64) (*models.Stage, error) {
	stage, err := s.stageRepo.FindByID(ctx, stageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to find stage: %w", err)
	}
	return stage, nil
}

// CreateFormInput represents the fields of the add-form form.
type CreateFormInput struct {
	StageID         uint64
	Question        string
	Type            models.FormType
	Options         []string
	AllowFileUpload bool
}

// CreateForm adds a question to a stage.
func (s *CatalogService) CreateForm(ctx context.Context, actorID uint64, input CreateFormInput) (*models.Form, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrQuestionRequired
	}
	if !input.Type.Valid() {
		return nil, ErrInvalidFormType
	}

	var options []string
	if input.Type == models.FormTypeChoice {
		options = dedupeOptions(input.Options)
		if len(options) == 0 {
			return nil, ErrOptionsRequired
		}
	}

	if _, err := s.GetStage(ctx, input.StageID); err != nil {
		return nil, err
	}

	form := &models.Form{
		StageID:         input.StageID,
		Question:        question,
		Type:            input.Type,
		Options:         options,
		AllowFileUpload: input.AllowFileUpload || input.Type == models.FormTypeFile,
	}
	if err := s.formRepo.Create(ctx, form, models.NewAuditLog(actorID, "Added form: "+question)); err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}
	return form, nil
}

// ListForms returns every question grouped by stage number.
func (s *CatalogService) ListForms(ctx context.Context) ([]models.Form, error) {
	forms, err := s.formRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	return forms, nil
}

// ParseOptions splits the options textarea. One option per line; a single
// line may instead hold comma-separated options.
func ParseOptions(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	parts := strings.Split(raw, "\n")
	if len(parts) == 1 {
		parts = strings.Split(raw, ",")
	}
	return dedupeOptions(parts)
}

func dedupeOptions(options []string) []string {
	seen := make(map[string]struct{}, len(options))
	out := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out
}
