package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stage-intake/internal/constants"
	"github.com/yukikurage/stage-intake/internal/dto"
	apierrors "github.com/yukikurage/stage-intake/internal/errors"
	"github.com/yukikurage/stage-intake/internal/metrics"
	"github.com/yukikurage/stage-intake/internal/middleware"
	"github.com/yukikurage/stage-intake/internal/services"
)

const (
	answerFieldPrefix = "form_"
	fileFieldPrefix   = "file_"

	// multipartMemory is kept in memory; larger parts spill to temp files
	multipartMemory = 8 << 20
)

// Notices shown after a staff submission
const (
	NoticeSubmitted        = "Form submitted successfully"
	NoticeRecordNameNeeded = "Record name is required"
	NoticeFileTooLarge     = "File is too large"
)

// StaffHandler serves the staff data-entry page.
type StaffHandler struct {
	submissions *services.SubmissionService
	metrics     *metrics.Metrics
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(submissions *services.SubmissionService, m *metrics.Metrics) *StaffHandler {
	return &StaffHandler{
		submissions: submissions,
		metrics:     m,
	}
}

// Dashboard shows the forms of the caller's stage. Asking for any other
// stage sends the caller back to their own.
func (h *StaffHandler) Dashboard(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, constants.RouteLogin)
		return
	}

	if raw := c.Query("stage_id"); raw != "" {
		stageID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || !services.CanAccessStage(user, stageID) {
			c.Redirect(http.StatusFound, user.HomeRoute())
			return
		}
	}

	stage, forms, err := h.submissions.StageForms(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, services.ErrNoStageAccess) {
			apierrors.Forbidden(c, "Your account is not assigned to a stage")
			return
		}
		apierrors.InternalError(c, err)
		return
	}

	render(c, "staff.html", stage.StageName, gin.H{
		"Stage": stage,
		"Forms": dto.ToFormDTOs(forms),
	})
}

// Submit stores a record with the posted answers and files.
func (h *StaffHandler) Submit(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, constants.RouteLogin)
		return
	}

	input, err := bindSubmission(c)
	if err != nil {
		apierrors.BadRequest(c, "The submitted form could not be read")
		return
	}
	if c.Request.MultipartForm != nil {
		defer c.Request.MultipartForm.RemoveAll()
	}

	if _, err := h.submissions.Submit(c.Request.Context(), user, input); err != nil {
		respondSubmitError(c, err)
		return
	}
	h.metrics.RecordSubmitted()

	apierrors.RedirectWithFlash(c, constants.RouteStaff, NoticeSubmitted)
}

// bindSubmission collects form_<id> answers and file_<id> uploads from a
// multipart or urlencoded body.
func bindSubmission(c *gin.Context) (services.SubmitInput, error) {
	input := services.SubmitInput{
		Answers: make(map[uint64]string),
		Files:   make(map[uint64]services.FileInput),
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
			return input, err
		}
	} else if err := c.Request.ParseForm(); err != nil {
		return input, err
	}

	input.RecordName = c.Request.PostForm.Get("record_name")
	if input.RecordName == "" {
		input.RecordName = c.Request.PostForm.Get("parent_name")
	}

	for key, values := range c.Request.PostForm {
		formID, ok := fieldID(key, answerFieldPrefix)
		if !ok || len(values) == 0 {
			continue
		}
		input.Answers[formID] = values[0]
	}

	if c.Request.MultipartForm == nil {
		return input, nil
	}
	for key, headers := range c.Request.MultipartForm.File {
		formID, ok := fieldID(key, fileFieldPrefix)
		if !ok || len(headers) == 0 {
			continue
		}
		header := headers[0]
		// Browsers send an empty part when no file was chosen.
		if header.Filename == "" || header.Size == 0 {
			continue
		}
		input.Files[formID] = fileInput(header)
	}
	return input, nil
}

func fileInput(header *multipart.FileHeader) services.FileInput {
	return services.FileInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

func fieldID(key, prefix string) (uint64, bool) {
	if !strings.HasPrefix(key, prefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(key, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func respondSubmitError(c *gin.Context, err error) {
	var invalidChoice *services.InvalidChoiceError
	switch {
	case errors.Is(err, services.ErrRecordNameRequired):
		apierrors.RedirectWithFlash(c, constants.RouteStaff, NoticeRecordNameNeeded)
	case errors.As(err, &invalidChoice):
		apierrors.RedirectWithFlash(c, constants.RouteStaff, "Invalid choice for "+invalidChoice.Question)
	case errors.Is(err, services.ErrFileTooLarge):
		apierrors.RedirectWithFlash(c, constants.RouteStaff, NoticeFileTooLarge)
	case errors.Is(err, services.ErrNoStageAccess):
		apierrors.Forbidden(c, "Your account is not assigned to a stage")
	default:
		apierrors.InternalError(c, err)
	}
}
