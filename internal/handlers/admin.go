package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stage-intake/internal/constants"
	"github.com/yukikurage/stage-intake/internal/dto"
	apierrors "github.com/yukikurage/stage-intake/internal/errors"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/services"
)

// AdminHandler handles the user, stage and form management pages.
type AdminHandler struct {
	users   *services.UserService
	catalog *services.CatalogService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users *services.UserService, catalog *services.CatalogService) *AdminHandler {
	return &AdminHandler{
		users:   users,
		catalog: catalog,
	}
}

// Dashboard lists users and stages.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}
	stages, err := h.catalog.ListStages(c.Request.Context())
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}

	render(c, "admin.html", "Admin", gin.H{
		"Users":  dto.ToUserDTOs(users),
		"Stages": dto.ToStageDTOs(stages),
	})
}

// AddUser creates a user from the add-user form.
func (h *AdminHandler) AddUser(c *gin.Context) {
	actorID, ok := currentUserOrLogin(c)
	if !ok {
		return
	}

	input := services.CreateUserInput{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		Role:     models.Role(strings.ToLower(strings.TrimSpace(c.PostForm("role")))),
	}
	if raw := strings.TrimSpace(c.PostForm("stage_access")); raw != "" {
		stageID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.RedirectWithFlash(c, constants.RouteAdmin, "Invalid stage")
			return
		}
		input.StageID = &stageID
	}

	user, err := h.users.CreateUser(c.Request.Context(), actorID, input)
	if err != nil {
		respondAdminError(c, constants.RouteAdmin, err)
		return
	}

	apierrors.RedirectWithFlash(c, constants.RouteAdmin, fmt.Sprintf("User %s added", user.Username))
}

// DeleteUser removes a user other than the caller.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID, ok := currentUserOrLogin(c)
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), actorID, userID); err != nil {
		respondAdminError(c, constants.RouteAdmin, err)
		return
	}

	apierrors.RedirectWithFlash(c, constants.RouteAdmin, "User deleted")
}

// AddStage creates a stage from the add-stage form.
func (h *AdminHandler) AddStage(c *gin.Context) {
	actorID, ok := currentUserOrLogin(c)
	if !ok {
		return
	}

	number, err := strconv.Atoi(strings.TrimSpace(c.PostForm("stage_number")))
	if err != nil {
		apierrors.RedirectWithFlash(c, constants.RouteAdmin, "Invalid stage number")
		return
	}

	stage, err := h.catalog.CreateStage(c.Request.Context(), actorID, services.CreateStageInput{
		Number: number,
		Name:   c.PostForm("stage_name"),
	})
	if err != nil {
		respondAdminError(c, constants.RouteAdmin, err)
		return
	}

	apierrors.RedirectWithFlash(c, constants.RouteAdmin, fmt.Sprintf("Stage %d added", stage.StageNumber))
}

// DeleteStage removes a stage that no record or user depends on.
func (h *AdminHandler) DeleteStage(c *gin.Context) {
	actorID, ok := currentUserOrLogin(c)
	if !ok {
		return
	}
	stageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteStage(c.Request.Context(), actorID, stageID); err != nil {
		respondAdminError(c, constants.RouteAdmin, err)
		return
	}

	apierrors.RedirectWithFlash(c, constants.RouteAdmin, "Stage deleted")
}

// FormsPage lists every question and the add-question form.
func (h *AdminHandler) FormsPage(c *gin.Context) {
	forms, err := h.catalog.ListForms(c.Request.Context())
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}
	stages, err := h.catalog.ListStages(c.Request.Context())
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}

	render(c, "forms.html", "Forms", gin.H{
		"Forms":  dto.ToFormDTOs(forms),
		"Stages": dto.ToStageDTOs(stages),
	})
}

// AddForm creates a question from the add-question form.
func (h *AdminHandler) AddForm(c *gin.Context) {
	actorID, ok := currentUserOrLogin(c)
	if !ok {
		return
	}

	stageID, err := strconv.ParseUint(strings.TrimSpace(c.PostForm("stage_id")), 10, 64)
	if err != nil {
		apierrors.RedirectWithFlash(c, constants.RouteForms, "Invalid stage")
		return
	}

	_, err = h.catalog.CreateForm(c.Request.Context(), actorID, services.CreateFormInput{
		StageID:         stageID,
		Question:        c.PostForm("question"),
		Type:            models.FormType(strings.TrimSpace(c.PostForm("form_type"))),
		Options:         services.ParseOptions(c.PostForm("options")),
		AllowFileUpload: c.PostForm("allow_file_upload") != "",
	})
	if err != nil {
		respondAdminError(c, constants.RouteForms, err)
		return
	}

	apierrors.RedirectWithFlash(c, constants.RouteForms, "Form added")
}

// respondAdminError turns validation failures into a notice on back and
// everything else into a server error.
func respondAdminError(c *gin.Context, back string, err error) {
	switch {
	case errors.Is(err, services.ErrUsernameRequired),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrStageRequired),
		errors.Is(err, services.ErrCannotDeleteYourself),
		errors.Is(err, services.ErrInvalidStageNumber),
		errors.Is(err, services.ErrStageNameRequired),
		errors.Is(err, services.ErrStageNumberTaken),
		errors.Is(err, services.ErrQuestionRequired),
		errors.Is(err, services.ErrInvalidFormType),
		errors.Is(err, services.ErrOptionsRequired),
		errors.Is(err, services.ErrStageInUse),
		errors.Is(err, services.ErrStageNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.RedirectWithFlash(c, back, capitalize(err.Error()))
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.RedirectWithFlash(c, back, passwordTooShortNotice())
	default:
		apierrors.InternalError(c, err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
