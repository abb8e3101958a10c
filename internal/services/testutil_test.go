package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/project-nexus/backend/internal/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed opening in-memory database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting raw database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.AccessGrant{},
		&models.SupportMessage{},
	); err != nil {
		t.Fatalf("failed migrating test schema: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, userID, displayName string, role models.UserRole) models.User {
	t.Helper()

	user := models.User{
		UserID:       userID,
		PasswordHash: "scrypt$00$00",
		DisplayName:  displayName,
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed creating user %q: %v", userID, err)
	}
	return user
}

func createTestProject(t *testing.T, db *gorm.DB, id, ownerUserID, title string, createdAt time.Time) models.Project {
	t.Helper()

	project := models.Project{
		ID:          id,
		OwnerUserID: ownerUserID,
		Title:       title,
		Status:      "Upcoming",
		Priority:    "Medium",
		Docs:        models.DocList{},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("failed creating project %q: %v", id, err)
	}
	return project
}

func createTestGrant(t *testing.T, db *gorm.DB, projectID, granteeUserID, grantedBy string) models.AccessGrant {
	t.Helper()

	grant := models.AccessGrant{
		ProjectID:       projectID,
		GranteeUserID:   granteeUserID,
		AccessLevel:     models.AccessLevelRead,
		GrantedByUserID: grantedBy,
	}
	if err := db.Create(&grant).Error; err != nil {
		t.Fatalf("failed creating grant for %q on %q: %v", granteeUserID, projectID, err)
	}
	return grant
}

func actorFor(user models.User) models.AuthContext {
	return models.AuthContext{
		UserID:      user.UserID,
		Role:        user.Role,
		DisplayName: user.DisplayName,
	}
}

func projectIDs(projects []models.Project) []string {
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids
}
