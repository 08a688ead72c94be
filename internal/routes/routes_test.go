package routes

import (
	"context"
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
	"github.com/yukikurage/stage-intake/internal/config"
	"github.com/yukikurage/stage-intake/internal/constants"
	"github.com/yukikurage/stage-intake/internal/handlers"
	"github.com/yukikurage/stage-intake/internal/metrics"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/repository"
	"github.com/yukikurage/stage-intake/internal/services"
	"github.com/yukikurage/stage-intake/internal/storage"
	"github.com/yukikurage/stage-intake/internal/testutil"
	"github.com/yukikurage/stage-intake/internal/web"
	"gorm.io/gorm"
)

const baseURL = "http://intake.test"

func setupRouter(t *testing.T, files storage.FileStore) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	userRepo := repository.NewUserRepository(db)
	stageRepo := repository.NewStageRepository(db)
	formRepo := repository.NewFormRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	mail := &testutil.FakeMailer{}

	authService := services.NewAuthService(userRepo, repository.NewResetTokenRepository(db), auditRepo, mail, services.AuthOptions{
		BaseURL:  baseURL,
		TokenTTL: time.Hour,
	})
	catalog := services.NewCatalogService(stageRepo, formRepo)
	submissions := services.NewSubmissionService(stageRepo, formRepo, recordRepo, files, mail, services.SubmissionOptions{
		MaxUploadBytes: 1 << 20,
		UploadTimeout:  time.Second,
	})
	collector := metrics.New(prometheus.NewRegistry())

	h := Handlers{
		Auth:    handlers.NewAuthHandler(authService, collector),
		Admin:   handlers.NewAdminHandler(services.NewUserService(userRepo, stageRepo), catalog),
		Records: handlers.NewRecordHandler(services.NewReportService(recordRepo), catalog, collector),
		Audit:   handlers.NewAuditHandler(services.NewAuditService(auditRepo)),
		Staff:   handlers.NewStaffHandler(submissions, collector),
		Health:  handlers.NewHealthHandler(db),
	}
	if local, ok := files.(*storage.LocalStore); ok {
		h.Uploads = handlers.NewUploadHandler(local)
	}

	r := gin.New()
	tmpl, err := web.Templates()
	require.NoError(t, err)
	r.SetHTMLTemplate(tmpl)
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("0123456789abcdef0123456789abcdef"))))

	Setup(r, h, authService, &config.Config{BaseURL: baseURL}, collector)
	return r, db
}

type session struct {
	t       *testing.T
	r       http.Handler
	cookies []*http.Cookie
}

func (s *session) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

func (s *session) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *session) post(path string, values url.Values, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return s.do(req)
}

func loggedIn(t *testing.T, r http.Handler, username string) *session {
	t.Helper()
	s := &session{t: t, r: r}
	w := s.post("/login", url.Values{"username": {username}, "password": {"supersecret"}}, baseURL)
	require.Equal(t, http.StatusFound, w.Code)
	require.NotEqual(t, "/login", w.Header().Get("Location"))
	return s
}

func requireRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, location, w.Header().Get("Location"))
}

func TestSetup_PublicRoutes(t *testing.T) {
	r, _ := setupRouter(t, &testutil.FakeFileStore{})
	anon := &session{t: t, r: r}

	requireRedirect(t, anon.get("/"), "/login")
	require.Equal(t, http.StatusOK, anon.get("/login").Code)
	require.Equal(t, http.StatusOK, anon.get("/reset_password").Code)
	require.Equal(t, http.StatusOK, anon.get("/health").Code)

	w := anon.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/admin", "/admin/forms", "/admin/parents", "/admin/logs", "/admin/report", "/staff"} {
		requireRedirect(t, anon.get(path), "/login")
	}
}

func TestSetup_RoleSeparation(t *testing.T) {
	r, db := setupRouter(t, &testutil.FakeFileStore{})
	stage := testutil.CreateStage(t, db, 1, "Intake")
	testutil.CreateUser(t, db, "admin", "supersecret", models.RoleAdmin, nil)
	testutil.CreateUser(t, db, "staffer", "supersecret", models.RoleStaff, &stage.ID)

	staff := loggedIn(t, r, "staffer")
	for _, path := range []string{"/admin", "/admin/parents", "/admin/generate_pdf/1", "/admin/reports/export.csv"} {
		requireRedirect(t, staff.get(path), "/staff")
	}
	require.Equal(t, http.StatusOK, staff.get("/staff").Code)

	admin := loggedIn(t, r, "admin")
	requireRedirect(t, admin.get("/staff"), "/admin")
	requireRedirect(t, admin.post("/submit_form", url.Values{"record_name": {"x"}}, baseURL), "/admin")
	require.Equal(t, http.StatusOK, admin.get("/admin").Code)
	require.Equal(t, http.StatusOK, admin.get("/admin/report").Code)
}

func TestSetup_CSRF(t *testing.T) {
	r, db := setupRouter(t, &testutil.FakeFileStore{})
	admin := testutil.CreateUser(t, db, "admin", "supersecret", models.RoleAdmin, nil)
	s := loggedIn(t, r, "admin")
	before := testutil.CountAudit(t, db, admin.ID)

	form := url.Values{"stage_number": {"1"}, "stage_name": {"Intake"}}
	require.Equal(t, http.StatusForbidden, s.post("/admin/add_stage", form, "").Code)
	require.Equal(t, http.StatusForbidden, s.post("/admin/add_stage", form, "http://evil.test").Code)
	require.Equal(t, before, testutil.CountAudit(t, db, admin.ID))

	requireRedirect(t, s.post("/admin/add_stage", form, baseURL), "/admin")
	require.Equal(t, before+1, testutil.CountAudit(t, db, admin.ID))

	// A plain link cannot delete anything.
	other := testutil.CreateUser(t, db, "other", "supersecret", models.RoleAdmin, nil)
	require.Equal(t, http.StatusNotFound, s.get("/admin/delete_user/"+strconv.FormatUint(other.ID, 10)).Code)
	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", other.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
	require.Equal(t, before+1, testutil.CountAudit(t, db, admin.ID))
}

func TestSetup_SubmitAlias(t *testing.T) {
	r, db := setupRouter(t, &testutil.FakeFileStore{})
	stage := testutil.CreateStage(t, db, 1, "Intake")
	form := testutil.CreateForm(t, db, stage.ID, "Notes", models.FormTypeText, false)
	testutil.CreateUser(t, db, "staffer", "supersecret", models.RoleStaff, &stage.ID)

	s := loggedIn(t, r, "staffer")
	w := s.post("/submit_form", url.Values{
		"record_name": {"Jane Doe"},
		"form_" + strconv.FormatUint(form.ID, 10): {"hello"},
	}, baseURL)
	requireRedirect(t, w, "/staff")

	var record models.Record
	require.NoError(t, db.Preload("Responses").First(&record).Error)
	require.Equal(t, "Jane Doe", record.Name)
	require.Len(t, record.Responses, 1)
	require.Equal(t, "hello", *record.Responses[0].Answer)
}

func TestSetup_Uploads(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "/uploads/")
	require.NoError(t, err)
	r, db := setupRouter(t, store)
	stage := testutil.CreateStage(t, db, 1, "Intake")
	testutil.CreateUser(t, db, "admin", "supersecret", models.RoleAdmin, nil)
	testutil.CreateUser(t, db, "staffer", "supersecret", models.RoleStaff, &stage.ID)

	location, err := store.Save(context.Background(), storage.Upload{Filename: "a.txt", Body: strings.NewReader("content")})
	require.NoError(t, err)

	requireRedirect(t, loggedIn(t, r, "staffer").get(location), "/staff")

	w := loggedIn(t, r, "admin").get(location)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "content", w.Body.String())
}

func TestSetup_NoUploadRouteForRemoteStore(t *testing.T) {
	r, db := setupRouter(t, &testutil.FakeFileStore{})
	testutil.CreateUser(t, db, "admin", "supersecret", models.RoleAdmin, nil)

	w := loggedIn(t, r, "admin").get("/uploads/00000000-0000-0000-0000-000000000000.txt")
	require.Equal(t, http.StatusNotFound, w.Code)
}
