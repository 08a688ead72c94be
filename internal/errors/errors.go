package errors

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// ErrorTemplate is the template rendered for every error page.
const ErrorTemplate = "error.html"

// PageError is the data passed to the error template.
type PageError struct {
	Status  int
	Title   string
	Message string
}

// Predefined pages
var (
	ErrForbidden     = PageError{Status: http.StatusForbidden, Title: "Forbidden", Message: "Access denied"}
	ErrNotFound      = PageError{Status: http.StatusNotFound, Title: "Not found", Message: "The page you requested does not exist"}
	ErrInvalidInput  = PageError{Status: http.StatusBadRequest, Title: "Bad request", Message: "The request could not be understood"}
	ErrInternalError = PageError{Status: http.StatusInternalServerError, Title: "Server error", Message: "Something went wrong. Please try again later."}
)

// RespondWithError renders the error page and aborts the chain.
func RespondWithError(c *gin.Context, page PageError) {
	c.HTML(page.Status, ErrorTemplate, gin.H{"Error": page})
	c.Abort()
}

func withMessage(page PageError, message string) PageError {
	if message != "" {
		page.Message = message
	}
	return page
}

// NotFound sends a 404 page
func NotFound(c *gin.Context, message string) {
	RespondWithError(c, withMessage(ErrNotFound, message))
}

// BadRequest sends a 400 page
func BadRequest(c *gin.Context, message string) {
	RespondWithError(c, withMessage(ErrInvalidInput, message))
}

// Forbidden sends a 403 page
func Forbidden(c *gin.Context, message string) {
	RespondWithError(c, withMessage(ErrForbidden, message))
}

// InternalError logs err and sends a generic 500 page.
func InternalError(c *gin.Context, err error) {
	if err != nil {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	RespondWithError(c, ErrInternalError)
}

// Flash queues a one-time notice for the next rendered page.
func Flash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		log.Printf("Failed to save flash message: %v", err)
	}
}

// RedirectWithFlash queues message and redirects with 302 Found.
func RedirectWithFlash(c *gin.Context, location, message string) {
	Flash(c, message)
	c.Redirect(http.StatusFound, location)
}

// Flashes drains queued notices.
func Flashes(c *gin.Context) []string {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(); err != nil {
		log.Printf("Failed to clear flash messages: %v", err)
	}

	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}
