package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stage-intake/internal/storage"
	"github.com/yukikurage/stage-intake/internal/testutil"
	"github.com/yukikurage/stage-intake/internal/web"
)

func TestUploadHandler_Serve(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := storage.NewLocalStore(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	location, err := store.Save(context.Background(), storage.Upload{
		Filename: "letter.txt",
		Body:     strings.NewReader("letter body"),
	})
	require.NoError(t, err)

	r := gin.New()
	tmpl, err := web.Templates()
	require.NoError(t, err)
	r.SetHTMLTemplate(tmpl)
	r.GET("/uploads/*key", NewUploadHandler(store).Serve)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "letter body", w.Body.String())
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	for _, path := range []string{"/uploads/../../etc/passwd", "/uploads/not-a-key.txt", "/uploads/00000000-0000-0000-0000-000000000000.txt"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestHealthHandler_Check(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	handler := NewHealthHandler(db)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.Check(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy","database":"ok"}`, w.Body.String())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.Check(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
