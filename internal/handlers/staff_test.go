package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/testutil"
	"gorm.io/gorm"
)

type staffFixture struct {
	env    *handlerTestEnv
	b      *browser
	staff  *models.User
	stage  *models.Stage
	other  *models.Stage
	yesNo  *models.Form
	letter *models.Form
}

func setupStaffFixture(t *testing.T) *staffFixture {
	t.Helper()
	env := setupHandlerTestEnv(t, nil)

	stage := testutil.CreateStage(t, env.db, 1, "Intake")
	other := testutil.CreateStage(t, env.db, 2, "Review")
	yesNo := testutil.CreateForm(t, env.db, stage.ID, "Consent given", models.FormTypeChoice, false, "yes", "no")
	letter := testutil.CreateForm(t, env.db, stage.ID, "Referral letter", models.FormTypeFile, true)
	testutil.CreateForm(t, env.db, other.ID, "Reviewer notes", models.FormTypeTextarea, false)

	staff := testutil.CreateUser(t, env.db, "staff@example.com", "supersecret", models.RoleStaff, &stage.ID)
	b := newBrowser(t, env.router)
	b.follow(b.login("staff@example.com", "supersecret"), "/staff")

	return &staffFixture{env: env, b: b, staff: staff, stage: stage, other: other, yesNo: yesNo, letter: letter}
}

func field(prefix string, id uint64) string {
	return prefix + strconv.FormatUint(id, 10)
}

func TestStaffHandler_Dashboard(t *testing.T) {
	f := setupStaffFixture(t)

	w := f.b.get("/staff")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "Consent given")
	require.Contains(t, body, `name="`+field(answerFieldPrefix, f.yesNo.ID)+`"`)
	require.Contains(t, body, `name="`+field(fileFieldPrefix, f.letter.ID)+`"`)
	require.NotContains(t, body, "Reviewer notes")

	// Another stage is never shown.
	w = f.b.get(idPath("/staff?stage_id=", f.other.ID))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/staff", w.Header().Get("Location"))
}

func TestStaffHandler_DashboardWithoutStage(t *testing.T) {
	env := setupHandlerTestEnv(t, nil)
	testutil.CreateUser(t, env.db, "loose", "supersecret", models.RoleStaff, nil)

	b := newBrowser(t, env.router)
	b.login("loose", "supersecret")
	w := b.get("/staff")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestStaffHandler_SubmitMultipart(t *testing.T) {
	f := setupStaffFixture(t)

	w := f.b.postMultipart("/staff/submit_form", map[string]string{
		"record_name":                         "Jane Doe",
		field(answerFieldPrefix, f.yesNo.ID):  "yes",
		field(answerFieldPrefix, f.letter.ID): "",
		"form_abc":                            "ignored",
	}, map[string]string{
		field(fileFieldPrefix, f.letter.ID): "letter body",
	})
	body := f.b.follow(w, "/staff")
	require.Contains(t, body, NoticeSubmitted)

	var record models.Record
	require.NoError(t, f.env.db.Preload("Responses", func(db *gorm.DB) *gorm.DB {
		return db.Order("responses.id ASC")
	}).First(&record).Error)
	require.Equal(t, "Jane Doe", record.Name)
	require.Equal(t, f.stage.ID, record.StageID)
	require.Equal(t, f.staff.ID, record.CreatedBy)
	require.Len(t, record.Responses, 2)

	require.Equal(t, f.yesNo.ID, record.Responses[0].FormID)
	require.Equal(t, "yes", *record.Responses[0].Answer)
	require.Nil(t, record.Responses[0].FileURL)

	require.Equal(t, f.letter.ID, record.Responses[1].FormID)
	require.Nil(t, record.Responses[1].Answer)
	require.NotNil(t, record.Responses[1].FileURL)
	require.Equal(t, "https://files.test/"+field(fileFieldPrefix, f.letter.ID)+".txt", *record.Responses[1].FileURL)

	require.Contains(t, testutil.AuditActions(t, f.env.db), "Submitted record: Jane Doe")

	// The username is an address, so a confirmation goes out.
	sent := f.env.mail.Messages()
	require.Len(t, sent, 1)
	require.Equal(t, "staff@example.com", sent[0].To)
}

func TestStaffHandler_SubmitIgnoresFilesForClosedForms(t *testing.T) {
	f := setupStaffFixture(t)

	w := f.b.postMultipart("/staff/submit_form", map[string]string{
		"parent_name":                        "John Roe",
		field(answerFieldPrefix, f.yesNo.ID): "no",
	}, map[string]string{
		field(fileFieldPrefix, f.yesNo.ID): "not accepted here",
	})
	f.b.follow(w, "/staff")

	require.Zero(t, f.env.files.Count())
	var responses []models.Response
	require.NoError(t, f.env.db.Find(&responses).Error)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].FileURL)
}

func TestStaffHandler_SubmitURLEncoded(t *testing.T) {
	f := setupStaffFixture(t)

	body := f.b.follow(f.b.postForm("/staff/submit_form", url.Values{
		"record_name":                        {"Plain Form"},
		field(answerFieldPrefix, f.yesNo.ID): {"yes"},
	}), "/staff")
	require.Contains(t, body, NoticeSubmitted)

	var count int64
	require.NoError(t, f.env.db.Model(&models.Response{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestStaffHandler_SubmitValidation(t *testing.T) {
	f := setupStaffFixture(t)

	body := f.b.follow(f.b.postForm("/staff/submit_form", url.Values{
		field(answerFieldPrefix, f.yesNo.ID): {"yes"},
	}), "/staff")
	require.Contains(t, body, NoticeRecordNameNeeded)

	body = f.b.follow(f.b.postForm("/staff/submit_form", url.Values{
		"record_name":                        {"Jane Doe"},
		field(answerFieldPrefix, f.yesNo.ID): {"maybe"},
	}), "/staff")
	require.Contains(t, body, "Invalid choice for Consent given")

	w := f.b.postMultipart("/staff/submit_form", map[string]string{
		"record_name": "Jane Doe",
	}, map[string]string{
		field(fileFieldPrefix, f.letter.ID): strings.Repeat("x", 2048),
	})
	body = f.b.follow(w, "/staff")
	require.Contains(t, body, NoticeFileTooLarge)

	var count int64
	require.NoError(t, f.env.db.Model(&models.Record{}).Count(&count).Error)
	require.Zero(t, count)
	require.Zero(t, f.env.files.Count())
}

func TestFieldID(t *testing.T) {
	tests := []struct {
		key  string
		id   uint64
		want bool
	}{
		{"form_12", 12, true},
		{"file_3", 0, false},
		{"form_", 0, false},
		{"form_-1", 0, false},
		{"record_name", 0, false},
	}
	for _, tt := range tests {
		id, ok := fieldID(tt.key, answerFieldPrefix)
		require.Equal(t, tt.want, ok, tt.key)
		require.Equal(t, tt.id, id, tt.key)
	}
}
