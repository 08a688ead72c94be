package handlers

import (
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/testutil"
)

func adminBrowser(t *testing.T, env *handlerTestEnv) (*browser, *models.User) {
	t.Helper()
	admin := testutil.CreateUser(t, env.db, "admin", "supersecret", models.RoleAdmin, nil)
	b := newBrowser(t, env.router)
	b.follow(b.login("admin", "supersecret"), "/admin")
	return b, admin
}

func TestAdminHandler_AddAndDeleteUser(t *testing.T) {
	env := setupHandlerTestEnv(t, nil)
	b, admin := adminBrowser(t, env)
	stage := testutil.CreateStage(t, env.db, 1, "Intake")
	before := testutil.CountAudit(t, env.db, admin.ID)

	body := b.follow(b.postForm("/admin/add_user", url.Values{
		"username":     {"newstaff"},
		"email":        {"NewStaff@Example.com"},
		"password":     {"supersecret"},
		"role":         {"staff"},
		"stage_access": {strconv.FormatUint(stage.ID, 10)},
	}), "/admin")
	require.Contains(t, body, "User newstaff added")
	require.Contains(t, body, "newstaff@example.com")
	require.Equal(t, before+1, testutil.CountAudit(t, env.db, admin.ID))

	var created models.User
	require.NoError(t, env.db.Where("username = ?", "newstaff").First(&created).Error)
	require.NotNil(t, created.StageAccess)
	require.Equal(t, stage.ID, *created.StageAccess)

	body = b.follow(b.postForm(idPath("/admin/delete_user/", created.ID), nil), "/admin")
	require.Contains(t, body, "User deleted")
	require.NotContains(t, body, "newstaff@example.com")
	require.Equal(t, before+2, testutil.CountAudit(t, env.db, admin.ID))
}

func TestAdminHandler_UserValidation(t *testing.T) {
	env := setupHandlerTestEnv(t, nil)
	b, admin := adminBrowser(t, env)
	before := testutil.CountAudit(t, env.db, admin.ID)

	tests := []struct {
		name   string
		form   url.Values
		notice string
	}{
		{
			name:   "short password",
			form:   url.Values{"username": {"x"}, "password": {"short"}, "role": {"admin"}},
			notice: "Password must be at least 8 characters",
		},
		{
			name:   "staff without stage",
			form:   url.Values{"username": {"x"}, "password": {"supersecret"}, "role": {"staff"}},
			notice: "Staff users must be assigned a stage",
		},
		{
			name:   "duplicate username",
			form:   url.Values{"username": {"admin"}, "password": {"supersecret"}, "role": {"admin"}},
			notice: "Username already exists",
		},
		{
			name:   "unknown role",
			form:   url.Values{"username": {"x"}, "password": {"supersecret"}, "role": {"owner"}},
			notice: "Role must be admin or staff",
		},
		{
			name:   "bad stage",
			form:   url.Values{"username": {"x"}, "password": {"supersecret"}, "role": {"staff"}, "stage_access": {"abc"}},
			notice: "Invalid stage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := b.follow(b.postForm("/admin/add_user", tt.form), "/admin")
			require.Contains(t, body, tt.notice)
		})
	}

	body := b.follow(b.postForm(idPath("/admin/delete_user/", admin.ID), nil), "/admin")
	require.Contains(t, body, "Cannot delete yourself")

	require.Equal(t, before, testutil.CountAudit(t, env.db, admin.ID))
}

func TestAdminHandler_Stages(t *testing.T) {
	env := setupHandlerTestEnv(t, nil)
	b, admin := adminBrowser(t, env)
	before := testutil.CountAudit(t, env.db, admin.ID)

	body := b.follow(b.postForm("/admin/add_stage", url.Values{"stage_number": {"0"}, "stage_name": {"Zero"}}), "/admin")
	require.Contains(t, body, "Stage number must be at least 1")

	body = b.follow(b.postForm("/admin/add_stage", url.Values{"stage_number": {"two"}, "stage_name": {"Two"}}), "/admin")
	require.Contains(t, body, "Invalid stage number")
	require.Equal(t, before, testutil.CountAudit(t, env.db, admin.ID))

	body = b.follow(b.postForm("/admin/add_stage", url.Values{"stage_number": {"2"}, "stage_name": {"Screening"}}), "/admin")
	require.Contains(t, body, "Stage 2 added")
	require.Contains(t, body, "Screening")
	require.Equal(t, before+1, testutil.CountAudit(t, env.db, admin.ID))

	body = b.follow(b.postForm("/admin/add_stage", url.Values{"stage_number": {"2"}, "stage_name": {"Again"}}), "/admin")
	require.Contains(t, body, "Stage number already exists")

	var stage models.Stage
	require.NoError(t, env.db.Where("stage_number = ?", 2).First(&stage).Error)

	scoped := testutil.CreateUser(t, env.db, "scoped", "supersecret", models.RoleStaff, &stage.ID)
	body = b.follow(b.postForm(idPath("/admin/delete_stage/", stage.ID), nil), "/admin")
	require.Contains(t, body, "Stage is still in use")

	require.NoError(t, env.db.Delete(scoped).Error)
	body = b.follow(b.postForm(idPath("/admin/delete_stage/", stage.ID), nil), "/admin")
	require.Contains(t, body, "Stage deleted")
	require.Equal(t, before+2, testutil.CountAudit(t, env.db, admin.ID))

	body = b.follow(b.postForm(idPath("/admin/delete_stage/", stage.ID), nil), "/admin")
	require.Contains(t, body, "Stage not found")
}

func TestAdminHandler_Forms(t *testing.T) {
	env := setupHandlerTestEnv(t, nil)
	b, admin := adminBrowser(t, env)
	stage := testutil.CreateStage(t, env.db, 1, "Intake")
	stageID := strconv.FormatUint(stage.ID, 10)

	body := b.follow(b.postForm("/admin/add_form", url.Values{
		"stage_id":  {stageID},
		"question":  {"Preferred contact"},
		"form_type": {"choice"},
		"options":   {"Phone\nEmail\nPhone"},
	}), "/admin/forms")
	require.Contains(t, body, "Form added")
	require.Contains(t, body, "Preferred contact")
	require.Contains(t, body, "Phone, Email")

	body = b.follow(b.postForm("/admin/add_form", url.Values{
		"stage_id":  {stageID},
		"question":  {"Pick one"},
		"form_type": {"choice"},
	}), "/admin/forms")
	require.Contains(t, body, "Choice questions need at least one option")

	body = b.follow(b.postForm("/admin/add_form", url.Values{
		"stage_id":  {"999"},
		"question":  {"Orphan"},
		"form_type": {"text"},
	}), "/admin/forms")
	require.Contains(t, body, "Stage not found")

	body = b.follow(b.postForm("/admin/add_form", url.Values{
		"stage_id":          {stageID},
		"question":          {"Referral letter"},
		"form_type":         {"text"},
		"allow_file_upload": {"1"},
	}), "/admin/forms")
	require.Contains(t, body, "Referral letter")

	var forms []models.Form
	require.NoError(t, env.db.Order("id ASC").Find(&forms).Error)
	require.Len(t, forms, 2)
	require.Equal(t, []string{"Phone", "Email"}, forms[0].Options)
	require.True(t, forms[1].AllowFileUpload)

	require.Equal(t, int64(3), testutil.CountAudit(t, env.db, admin.ID))
}
