package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/project-nexus/backend/internal/config"
	"github.com/project-nexus/backend/internal/models"
	"github.com/project-nexus/backend/pkg/logger"
	"github.com/project-nexus/backend/pkg/utils"
	"gorm.io/gorm"
)

// Runner evolves the schema exactly once per process. Concurrent callers of
// EnsureMigrated share a single in-flight execution; a successful run is
// memoized for the process lifetime, while a failed run clears the memo so
// a later request can retry instead of being locked out.
type Runner struct {
	mu       sync.Mutex
	inflight *migration
	run      func(ctx context.Context) error
}

type migration struct {
	done chan struct{}
	err  error
}

func NewRunner(db *gorm.DB, legacy config.LegacyOwnerConfig) *Runner {
	return &Runner{
		run: func(ctx context.Context) error {
			return migrate(ctx, db, legacy)
		},
	}
}

// NewRunnerFunc exists for callers that supply their own migration step.
func NewRunnerFunc(run func(ctx context.Context) error) *Runner {
	return &Runner{run: run}
}

func (r *Runner) EnsureMigrated(ctx context.Context) error {
	r.mu.Lock()
	m := r.inflight
	if m == nil {
		m = &migration{done: make(chan struct{})}
		r.inflight = m
		go func() {
			// The migration itself is not tied to any single request's
			// lifetime; waiting callers may still bail out individually.
			m.err = r.run(context.Background())
			if m.err != nil {
				r.mu.Lock()
				r.inflight = nil
				r.mu.Unlock()
			}
			close(m.done)
		}()
	}
	r.mu.Unlock()

	select {
	case <-m.done:
		return m.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// migrate runs every schema-evolution step in one transaction. Column
// backfills happen before NOT NULL tightening, and foreign keys are added
// last, so existing rows never violate a constraint mid-migration.
func migrate(ctx context.Context, db *gorm.DB, legacy config.LegacyOwnerConfig) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&models.User{}); err != nil {
			return err
		}

		if err := tx.Exec(
			"UPDATE users SET display_name = user_id WHERE display_name IS NULL OR display_name = ''",
		).Error; err != nil {
			return err
		}

		isPostgres := tx.Dialector.Name() == "postgres"

		// A pre-auth deployment may have a projects table with no owner
		// column. Add it nullable, backfill, then tighten.
		if isPostgres && tx.Migrator().HasTable("projects") {
			if err := tx.Exec(
				"ALTER TABLE projects ADD COLUMN IF NOT EXISTS user_id varchar(100)",
			).Error; err != nil {
				return err
			}
			if err := backfillOwnership(tx, legacy); err != nil {
				return err
			}
			if err := tx.Exec(
				"ALTER TABLE projects ALTER COLUMN user_id SET NOT NULL",
			).Error; err != nil {
				return err
			}
		}

		if err := tx.AutoMigrate(
			&models.Project{},
			&models.AccessGrant{},
			&models.SupportMessage{},
		); err != nil {
			return err
		}

		if isPostgres {
			return addConstraints(tx)
		}
		return nil
	})
	if err != nil {
		logger.Error("db_migration_failed", err, nil)
		return err
	}

	logger.Info("db_migrations_ensured", nil)
	return nil
}

// backfillOwnership assigns projects with a missing or orphaned owner to the
// configured legacy owner, creating that user as an admin if needed.
func backfillOwnership(tx *gorm.DB, legacy config.LegacyOwnerConfig) error {
	var orphans int64
	err := tx.Raw(
		`SELECT COUNT(*) FROM projects p
		 WHERE p.user_id IS NULL OR BTRIM(p.user_id) = ''
		    OR NOT EXISTS (SELECT 1 FROM users u WHERE u.user_id = p.user_id)`,
	).Scan(&orphans).Error
	if err != nil {
		return err
	}
	if orphans == 0 {
		return nil
	}

	ownerID := legacy.UserID
	if ownerID == "" {
		ownerID = "legacy.owner"
	}
	displayName := legacy.DisplayName
	if displayName == "" {
		displayName = ownerID
	}

	var existing int64
	if err := tx.Model(&models.User{}).Where("user_id = ?", ownerID).Count(&existing).Error; err != nil {
		return err
	}
	if existing == 0 {
		password := legacy.Password
		if password == "" {
			password = randomPassword()
			logger.Warn("legacy_owner_password_generated", map[string]interface{}{
				"user_id": ownerID,
			})
		}
		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		owner := models.User{
			UserID:       ownerID,
			PasswordHash: hash,
			DisplayName:  displayName,
			Role:         models.UserRoleAdmin,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
	}

	res := tx.Exec(
		`UPDATE projects p SET user_id = ?
		 WHERE p.user_id IS NULL OR BTRIM(p.user_id) = ''
		    OR NOT EXISTS (SELECT 1 FROM users u WHERE u.user_id = p.user_id)`,
		ownerID,
	)
	if res.Error != nil {
		return res.Error
	}

	logger.Info("ownership_backfilled", map[string]interface{}{
		"owner_user_id": ownerID,
		"projects":      res.RowsAffected,
	})
	return nil
}

func addConstraints(tx *gorm.DB) error {
	statements := []string{
		`ALTER TABLE projects DROP CONSTRAINT IF EXISTS projects_user_id_fkey`,
		`ALTER TABLE projects
		 ADD CONSTRAINT projects_user_id_fkey
		 FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE`,
		`CREATE INDEX IF NOT EXISTS idx_projects_user_id ON projects(user_id)`,
		`DO $$
		 BEGIN
		   IF NOT EXISTS (
		     SELECT 1 FROM pg_constraint WHERE conname = 'project_access_level_check'
		   ) THEN
		     ALTER TABLE project_access
		     ADD CONSTRAINT project_access_level_check
		     CHECK (access_level IN ('read'));
		   END IF;
		 END $$`,
		`ALTER TABLE project_access DROP CONSTRAINT IF EXISTS project_access_project_id_fkey`,
		`ALTER TABLE project_access
		 ADD CONSTRAINT project_access_project_id_fkey
		 FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE`,
		`ALTER TABLE project_access DROP CONSTRAINT IF EXISTS project_access_user_id_fkey`,
		`ALTER TABLE project_access
		 ADD CONSTRAINT project_access_user_id_fkey
		 FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE`,
	}

	for _, stmt := range statements {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func randomPassword() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
