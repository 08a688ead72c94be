// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stage-intake/internal/database"
	"github.com/yukikurage/stage-intake/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// NewDB returns a migrated in-memory sqlite database private to the test.
// A named shared-cache database keeps every pooled connection on the same data.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// CreateStage inserts a stage.
func CreateStage(t *testing.T, db *gorm.DB, number int, name string) *models.Stage {
	t.Helper()
	stage := &models.Stage{StageNumber: number, StageName: name}
	require.NoError(t, db.Create(stage).Error)
	return stage
}

// CreateUser inserts a user whose password is the given plain text.
func CreateUser(t *testing.T, db *gorm.DB, username, password string, role models.Role, stageID *uint64) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		StageAccess:  stageID,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateForm inserts a question on a stage.
func CreateForm(t *testing.T, db *gorm.DB, stageID uint64, question string, formType models.FormType, allowUpload bool, options ...string) *models.Form {
	t.Helper()
	form := &models.Form{
		StageID:         stageID,
		Question:        question,
		Type:            formType,
		Options:         options,
		AllowFileUpload: allowUpload,
	}
	require.NoError(t, db.Create(form).Error)
	return form
}

// CountAudit returns the number of audit entries attributed to userID.
func CountAudit(t *testing.T, db *gorm.DB, userID uint64) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

// AuditActions returns every audit action in insertion order.
func AuditActions(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var actions []string
	require.NoError(t, db.Model(&models.AuditLog{}).Order("id ASC").Pluck("action", &actions).Error)
	return actions
}
