package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stage-intake/internal/constants"
	"github.com/yukikurage/stage-intake/internal/mailer"
	"github.com/yukikurage/stage-intake/internal/metrics"
	"github.com/yukikurage/stage-intake/internal/middleware"
	"github.com/yukikurage/stage-intake/internal/repository"
	"github.com/yukikurage/stage-intake/internal/services"
	"github.com/yukikurage/stage-intake/internal/testutil"
	"github.com/yukikurage/stage-intake/internal/web"
	"gorm.io/gorm"
)

const testBaseURL = "http://intake.test"

type handlerTestEnv struct {
	db     *gorm.DB
	mail   *testutil.FakeMailer
	files  *testutil.FakeFileStore
	auth   *services.AuthService
	router *gin.Engine
}

func setupHandlerTestEnv(t *testing.T, m mailer.Mailer) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	userRepo := repository.NewUserRepository(db)
	stageRepo := repository.NewStageRepository(db)
	formRepo := repository.NewFormRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	env := &handlerTestEnv{
		db:    db,
		mail:  &testutil.FakeMailer{},
		files: &testutil.FakeFileStore{},
	}
	if m == nil {
		m = env.mail
	}

	env.auth = services.NewAuthService(userRepo, repository.NewResetTokenRepository(db), auditRepo, m, services.AuthOptions{
		BaseURL:  testBaseURL,
		TokenTTL: time.Hour,
	})
	catalog := services.NewCatalogService(stageRepo, formRepo)
	submissions := services.NewSubmissionService(stageRepo, formRepo, recordRepo, env.files, m, services.SubmissionOptions{
		MaxUploadBytes: 1024,
		UploadTimeout:  time.Second,
	})
	collector := metrics.New(prometheus.NewRegistry())

	authHandler := NewAuthHandler(env.auth, collector)
	adminHandler := NewAdminHandler(services.NewUserService(userRepo, stageRepo), catalog)
	recordHandler := NewRecordHandler(services.NewReportService(recordRepo), catalog, collector)
	auditHandler := NewAuditHandler(services.NewAuditService(auditRepo))
	staffHandler := NewStaffHandler(submissions, collector)

	r := gin.New()
	tmpl, err := web.Templates()
	require.NoError(t, err)
	r.SetHTMLTemplate(tmpl)
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("0123456789abcdef0123456789abcdef"))))

	r.GET("/login", authHandler.LoginPage)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.GET("/reset_password", authHandler.ResetRequestPage)
	r.POST("/reset_password", authHandler.RequestReset)
	r.GET("/reset_password/:token", authHandler.ResetPage)
	r.POST("/reset_password/:token", authHandler.ResetPassword)

	authed := r.Group("")
	authed.Use(middleware.RequireAuth(env.auth))
	authed.GET("/admin", adminHandler.Dashboard)
	authed.POST("/admin/add_user", adminHandler.AddUser)
	authed.POST("/admin/delete_user/:id", adminHandler.DeleteUser)
	authed.POST("/admin/add_stage", adminHandler.AddStage)
	authed.POST("/admin/delete_stage/:id", adminHandler.DeleteStage)
	authed.GET("/admin/forms", adminHandler.FormsPage)
	authed.POST("/admin/add_form", adminHandler.AddForm)
	authed.GET("/admin/parents", recordHandler.Parents)
	authed.GET("/admin/parent/:ref", recordHandler.Parent)
	authed.GET("/admin/reports", recordHandler.Reports)
	authed.GET("/admin/reports/export.csv", recordHandler.ExportCSV)
	authed.GET("/admin/generate_report", recordHandler.ReportLookup)
	authed.GET("/admin/generate_pdf/:ref", recordHandler.GeneratePDF)
	authed.GET("/admin/logs", auditHandler.Logs)
	authed.GET("/staff", staffHandler.Dashboard)
	authed.POST("/staff/submit_form", staffHandler.Submit)

	env.router = r
	return env
}

// browser keeps the session cookie between requests.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, handler http.Handler) *browser {
	return &browser{t: t, handler: handler, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", testBaseURL)
	return b.do(req)
}

func (b *browser) postMultipart(path string, fields map[string]string, files map[string]string) *httptest.ResponseRecorder {
	b.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(b.t, mw.WriteField(name, value))
	}
	for name, content := range files {
		part, err := mw.CreateFormFile(name, name+".txt")
		require.NoError(b.t, err)
		_, err = part.Write([]byte(content))
		require.NoError(b.t, err)
	}
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Origin", testBaseURL)
	return b.do(req)
}

// follow asserts a 302 to location and returns the page found there.
func (b *browser) follow(w *httptest.ResponseRecorder, location string) string {
	b.t.Helper()
	require.Equal(b.t, http.StatusFound, w.Code)
	require.Equal(b.t, location, w.Header().Get("Location"))
	page := b.get(location)
	require.Equal(b.t, http.StatusOK, page.Code)
	return page.Body.String()
}

func (b *browser) login(username, password string) *httptest.ResponseRecorder {
	return b.postForm("/login", url.Values{"username": {username}, "password": {password}})
}

func idPath(prefix string, id uint64) string {
	return prefix + strconv.FormatUint(id, 10)
}
