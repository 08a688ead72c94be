package handlers

import (
	"errors"
	"os"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/stage-intake/internal/errors"
)

// FileResolver maps a stored key to a local path.
type FileResolver interface {
	Path(key string) (string, error)
}

// UploadHandler serves files kept by the local file store.
type UploadHandler struct {
	files FileResolver
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(files FileResolver) *UploadHandler {
	return &UploadHandler{files: files}
}

// Serve sends the file named by the key path parameter.
func (h *UploadHandler) Serve(c *gin.Context) {
	path, err := h.files.Path(c.Param("key"))
	if err != nil {
		apierrors.NotFound(c, "File not found")
		return
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			apierrors.NotFound(c, "File not found")
			return
		}
		apierrors.InternalError(c, err)
		return
	}

	c.Header("X-Content-Type-Options", "nosniff")
	c.File(path)
}
