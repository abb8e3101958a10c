package services

import (
	"context"
	"errors"

	"github.com/project-nexus/backend/internal/models"
	"gorm.io/gorm"
)

// Access is the outcome of classifying an actor against a project.
type Access struct {
	Mode     models.AccessMode
	ReadOnly bool
}

// Classify computes the actor's access to a project owned by ownerUserID.
// Priority is strict: admin role overrides ownership, ownership overrides a
// grant, a grant yields read-only shared access, otherwise none.
func Classify(actor models.AuthContext, ownerUserID string, hasGrant bool) Access {
	var mode models.AccessMode
	switch {
	case actor.IsAdmin():
		mode = models.AccessModeAdmin
	case ownerUserID == actor.UserID:
		mode = models.AccessModeOwner
	case hasGrant:
		mode = models.AccessModeShared
	default:
		mode = models.AccessModeNone
	}
	return Access{Mode: mode, ReadOnly: mode.ReadOnly()}
}

type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// ClassifyProject loads the project and the actor's grant (when one could
// matter) and classifies. A missing project and an invisible project are
// indistinguishable to the caller: both come back as not found.
func (s *AccessService) ClassifyProject(ctx context.Context, actor models.AuthContext, projectID string) (*models.Project, Access, error) {
	var project models.Project
	if err := s.DB.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Access{}, NotFoundError("project not found")
		}
		return nil, Access{}, err
	}

	hasGrant := false
	if !actor.IsAdmin() && project.OwnerUserID != actor.UserID {
		var count int64
		err := s.DB.WithContext(ctx).Model(&models.AccessGrant{}).
			Where("project_id = ? AND user_id = ?", projectID, actor.UserID).
			Count(&count).Error
		if err != nil {
			return nil, Access{}, err
		}
		hasGrant = count > 0
	}

	access := Classify(actor, project.OwnerUserID, hasGrant)
	project.AccessMode = access.Mode
	project.ReadOnly = access.ReadOnly
	return &project, access, nil
}

// RequireWritable classifies and rejects actors that cannot mutate the
// project. None hides existence as not found; shared is an explicit
// read-only rejection.
func (s *AccessService) RequireWritable(ctx context.Context, actor models.AuthContext, projectID string) (*models.Project, error) {
	project, access, err := s.ClassifyProject(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	switch {
	case access.Mode == models.AccessModeNone:
		return nil, NotFoundError("project not found")
	case !access.Mode.CanWrite():
		return nil, ForbiddenError("read-only access: project cannot be modified")
	}
	return project, nil
}
