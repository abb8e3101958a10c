package services

import (
	"context"
	"errors"
	"strings"

	"github.com/project-nexus/backend/internal/models"
	"gorm.io/gorm"
)

// GrantService manages explicit read-only access grants. Every operation is
// gated by the delegation rule: only the project owner or an admin may
// create, list, or revoke grants; a shared actor cannot extend sharing.
type GrantService struct {
	DB     *gorm.DB
	Access *AccessService
}

func NewGrantService(db *gorm.DB, access *AccessService) *GrantService {
	return &GrantService{DB: db, Access: access}
}

func (s *GrantService) requireManager(ctx context.Context, actor models.AuthContext, projectID string) (*models.Project, error) {
	project, access, err := s.Access.ClassifyProject(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	switch {
	case access.Mode == models.AccessModeNone:
		return nil, NotFoundError("project not found")
	case !access.Mode.CanWrite():
		return nil, ForbiddenError("only the project owner or an admin can manage access")
	}
	return project, nil
}

// Create issues a read grant to granteeUserID. Granting to the owner or to
// a user who already holds a grant is a conflict, not a silent no-op, so
// client bugs surface. Unknown grantees fail before any row is written.
func (s *GrantService) Create(ctx context.Context, actor models.AuthContext, projectID, granteeUserID string) (*models.AccessGrant, error) {
	granteeUserID = strings.TrimSpace(granteeUserID)
	if granteeUserID == "" {
		return nil, ValidationError("userId is required")
	}

	project, err := s.requireManager(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	var grantee models.User
	if err := s.DB.WithContext(ctx).First(&grantee, "user_id = ?", granteeUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("user not found")
		}
		return nil, err
	}

	if grantee.UserID == project.OwnerUserID {
		return nil, ConflictError("project owner already has full access")
	}

	var existing int64
	err = s.DB.WithContext(ctx).Model(&models.AccessGrant{}).
		Where("project_id = ? AND user_id = ?", projectID, granteeUserID).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ConflictError("user already has access to this project")
	}

	grant := models.AccessGrant{
		ProjectID:       projectID,
		GranteeUserID:   grantee.UserID,
		AccessLevel:     models.AccessLevelRead,
		GrantedByUserID: actor.UserID,
	}
	if err := s.DB.WithContext(ctx).Create(&grant).Error; err != nil {
		return nil, err
	}

	grant.GranteeDisplayName = grantee.DisplayName
	return &grant, nil
}

type grantRow struct {
	models.AccessGrant
	DisplayName string `gorm:"column:grantee_display_name"`
}

// List returns the grants on a project, most recent first, with grantee
// display names resolved in the same query.
func (s *GrantService) List(ctx context.Context, actor models.AuthContext, projectID string) ([]models.AccessGrant, error) {
	if _, err := s.requireManager(ctx, actor, projectID); err != nil {
		return nil, err
	}

	var rows []grantRow
	err := s.DB.WithContext(ctx).
		Table("project_access").
		Select("project_access.*, users.display_name AS grantee_display_name").
		Joins("JOIN users ON users.user_id = project_access.user_id").
		Where("project_access.project_id = ?", projectID).
		Order("project_access.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	grants := make([]models.AccessGrant, 0, len(rows))
	for _, row := range rows {
		g := row.AccessGrant
		g.GranteeDisplayName = row.DisplayName
		grants = append(grants, g)
	}
	return grants, nil
}

// Revoke deletes the grant for (projectID, granteeUserID). A grant that is
// already gone is not found, with nothing mutated.
func (s *GrantService) Revoke(ctx context.Context, actor models.AuthContext, projectID, granteeUserID string) error {
	if _, err := s.requireManager(ctx, actor, projectID); err != nil {
		return err
	}

	res := s.DB.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, granteeUserID).
		Delete(&models.AccessGrant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFoundError("access grant not found")
	}
	return nil
}

// UserMatch is one row of the sharing-dialog user search.
type UserMatch struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	HasAccess   bool   `json:"hasAccess"`
}

// searchPageSize bounds the prefix search; the sharing UI only ever shows a
// handful of suggestions.
const searchPageSize = 10

// SearchUsers performs a bounded, case-insensitive prefix search over
// registered users. The project owner is excluded; users who already hold a
// grant are kept but flagged so the caller can render an "already shared"
// state.
func (s *GrantService) SearchUsers(ctx context.Context, actor models.AuthContext, projectID, query string) ([]UserMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ValidationError("search query is required")
	}

	project, err := s.requireManager(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	prefix := strings.ToLower(query) + "%"

	var users []models.User
	err = s.DB.WithContext(ctx).
		Where("user_id != ?", project.OwnerUserID).
		Where("LOWER(user_id) LIKE ? OR LOWER(display_name) LIKE ?", prefix, prefix).
		Order("user_id").
		Limit(searchPageSize).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	matches := make([]UserMatch, 0, len(users))
	if len(users) == 0 {
		return matches, nil
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.UserID)
	}

	var granted []string
	err = s.DB.WithContext(ctx).Model(&models.AccessGrant{}).
		Where("project_id = ? AND user_id IN ?", projectID, ids).
		Pluck("user_id", &granted).Error
	if err != nil {
		return nil, err
	}

	hasAccess := make(map[string]bool, len(granted))
	for _, id := range granted {
		hasAccess[id] = true
	}

	for _, u := range users {
		matches = append(matches, UserMatch{
			UserID:      u.UserID,
			DisplayName: u.DisplayName,
			HasAccess:   hasAccess[u.UserID],
		})
	}
	return matches, nil
}
