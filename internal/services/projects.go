package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/project-nexus/backend/internal/models"
	"github.com/project-nexus/backend/pkg/logger"
	"gorm.io/gorm"
)

// AttachmentRemover is the storage collaborator notified when a project is
// deleted so its uploaded files do not linger.
type AttachmentRemover interface {
	RemoveProjectFiles(ctx context.Context, projectID string) error
}

type ProjectService struct {
	DB          *gorm.DB
	Access      *AccessService
	Attachments AttachmentRemover
}

func NewProjectService(db *gorm.DB, access *AccessService, attachments AttachmentRemover) *ProjectService {
	return &ProjectService{DB: db, Access: access, Attachments: attachments}
}

// accessModeSelect computes the access classification in the same round trip
// as the data fetch. Ordering mirrors Classify: role, then ownership, then
// grant.
const accessModeSelect = `projects.*, CASE
	WHEN ? THEN 'admin'
	WHEN projects.user_id = ? THEN 'owner'
	WHEN pa.user_id IS NOT NULL THEN 'shared'
	ELSE 'none'
END AS computed_access_mode`

type projectRow struct {
	models.Project
	ComputedAccessMode string `gorm:"column:computed_access_mode"`
}

func (r projectRow) toProject() models.Project {
	p := r.Project
	p.AccessMode = models.AccessMode(r.ComputedAccessMode)
	p.ReadOnly = p.AccessMode.ReadOnly()
	return p
}

func (s *ProjectService) scopedQuery(ctx context.Context, actor models.AuthContext) *gorm.DB {
	return s.DB.WithContext(ctx).
		Table("projects").
		Select(accessModeSelect, actor.IsAdmin(), actor.UserID).
		Joins("LEFT JOIN project_access pa ON pa.project_id = projects.id AND pa.user_id = ?", actor.UserID)
}

// List returns the projects the actor may see, newest first. A single
// parameterized predicate encodes all three caller contexts: admin global
// view (all=true), admin scoped view, and non-admin owned-or-shared view.
func (s *ProjectService) List(ctx context.Context, actor models.AuthContext, all bool) ([]models.Project, error) {
	isGlobal := actor.IsAdmin() && all

	var rows []projectRow
	err := s.scopedQuery(ctx, actor).
		Where("? OR projects.user_id = ? OR pa.user_id IS NOT NULL", isGlobal, actor.UserID).
		Order("projects.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.toProject())
	}
	return projects, nil
}

// ListShared returns only the projects the actor holds a grant on.
func (s *ProjectService) ListShared(ctx context.Context, actor models.AuthContext) ([]models.Project, error) {
	var rows []projectRow
	err := s.scopedQuery(ctx, actor).
		Where("pa.user_id IS NOT NULL").
		Order("projects.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.toProject())
	}
	return projects, nil
}

// Get fetches one project with its classification. Projects the actor
// cannot see are reported as not found, never as forbidden.
func (s *ProjectService) Get(ctx context.Context, actor models.AuthContext, id string) (*models.Project, error) {
	var rows []projectRow
	err := s.scopedQuery(ctx, actor).
		Where("projects.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NotFoundError("project not found")
	}

	project := rows[0].toProject()
	if project.AccessMode == models.AccessModeNone {
		return nil, NotFoundError("project not found")
	}
	return &project, nil
}

type ProjectInput struct {
	ID           string            `json:"id"`
	OwnerUserID  string            `json:"ownerUserId"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Status       string            `json:"status"`
	Priority     string            `json:"priority"`
	Progress     int               `json:"progress"`
	Tags         models.StringList `json:"tags"`
	TechStack    models.StringList `json:"techStack"`
	RepoLink     string            `json:"repoLink"`
	DeployLink   string            `json:"deployLink"`
	DeployStatus string            `json:"deployStatus"`
	DeployLabel  string            `json:"deployLabel"`
	Deadline     string            `json:"deadline"`
	Notes        string            `json:"notes"`
	Tasks        models.JSONField  `json:"tasks"`
	ActivityLog  models.JSONField  `json:"activityLog"`
}

func (in *ProjectInput) applyDefaults() {
	if in.Status == "" {
		in.Status = "Upcoming"
	}
	if in.Priority == "" {
		in.Priority = "Medium"
	}
	if in.DeployStatus == "" {
		in.DeployStatus = "not-deployed"
	}
	if in.Tags == nil {
		in.Tags = models.StringList{}
	}
	if in.TechStack == nil {
		in.TechStack = models.StringList{}
	}
	if len(in.Tasks) == 0 {
		in.Tasks = models.JSONField("[]")
	}
	if len(in.ActivityLog) == 0 {
		in.ActivityLog = models.JSONField("[]")
	}
}

func newProjectID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// Create inserts a project owned by the actor. An admin may assign another
// registered user as owner; anyone else always becomes the owner regardless
// of what the request claimed.
func (s *ProjectService) Create(ctx context.Context, actor models.AuthContext, in ProjectInput) (*models.Project, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ValidationError("title is required")
	}

	owner := actor.UserID
	if actor.IsAdmin() && in.OwnerUserID != "" {
		var count int64
		err := s.DB.WithContext(ctx).Model(&models.User{}).
			Where("user_id = ?", in.OwnerUserID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, NotFoundError("owner user not found")
		}
		owner = in.OwnerUserID
	}

	in.applyDefaults()

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = newProjectID()
	}
	if len(id) > 32 {
		return nil, ValidationError("project id is too long")
	}

	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ConflictError("project id already exists")
	}

	project := models.Project{
		ID:           id,
		OwnerUserID:  owner,
		Title:        in.Title,
		Description:  in.Description,
		Status:       in.Status,
		Priority:     in.Priority,
		Progress:     in.Progress,
		Tags:         in.Tags,
		TechStack:    in.TechStack,
		RepoLink:     in.RepoLink,
		DeployLink:   in.DeployLink,
		DeployStatus: in.DeployStatus,
		DeployLabel:  in.DeployLabel,
		Docs:         models.DocList{},
		Deadline:     in.Deadline,
		Notes:        in.Notes,
		Tasks:        in.Tasks,
		ActivityLog:  in.ActivityLog,
	}

	if err := s.DB.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}

	access := Classify(actor, project.OwnerUserID, false)
	project.AccessMode = access.Mode
	project.ReadOnly = access.ReadOnly
	return &project, nil
}

// Update applies a full replace of the mutable fields. The ownership/admin
// predicate is folded into the UPDATE itself: a revoked or read-only actor
// matches zero rows and gets not found, with no window between check and
// write. Ownership is never touched here.
func (s *ProjectService) Update(ctx context.Context, actor models.AuthContext, id string, in ProjectInput) (*models.Project, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ValidationError("title is required")
	}

	in.applyDefaults()

	updates := map[string]interface{}{
		"title":         in.Title,
		"description":   in.Description,
		"status":        in.Status,
		"priority":      in.Priority,
		"progress":      in.Progress,
		"tags":          in.Tags,
		"tech_stack":    in.TechStack,
		"repo_link":     in.RepoLink,
		"deploy_link":   in.DeployLink,
		"deploy_status": in.DeployStatus,
		"deploy_label":  in.DeployLabel,
		"deadline":      in.Deadline,
		"notes":         in.Notes,
		"tasks":         in.Tasks,
		"activity_log":  in.ActivityLog,
		"updated_at":    time.Now(),
	}

	res := s.DB.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND (? OR user_id = ?)", id, actor.IsAdmin(), actor.UserID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, NotFoundError("project not found")
	}

	return s.Get(ctx, actor, id)
}

// Delete removes the project and its grants in one transaction, again with
// the access predicate embedded in the delete statement. The attachment
// collaborator is notified after commit; a storage failure is logged, not
// surfaced, since the record is already gone.
func (s *ProjectService) Delete(ctx context.Context, actor models.AuthContext, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND (? OR user_id = ?)", id, actor.IsAdmin(), actor.UserID).
			Delete(&models.Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFoundError("project not found")
		}
		return tx.Where("project_id = ?", id).Delete(&models.AccessGrant{}).Error
	})
	if err != nil {
		return err
	}

	if s.Attachments != nil {
		if err := s.Attachments.RemoveProjectFiles(ctx, id); err != nil {
			logger.Error("project_attachments_cleanup_failed", err, map[string]interface{}{
				"project_id": id,
			})
		}
	}
	return nil
}

// AppendDocs attaches uploaded file metadata to the project. Write access
// is enforced by RequireWritable before the caller stores any bytes, and
// again by the scoped UPDATE here.
func (s *ProjectService) AppendDocs(ctx context.Context, actor models.AuthContext, id string, docs []models.Doc) (*models.Project, error) {
	project, err := s.Access.RequireWritable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	merged := append(project.Docs, docs...)
	res := s.DB.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND (? OR user_id = ?)", id, actor.IsAdmin(), actor.UserID).
		Updates(map[string]interface{}{"docs": merged, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, NotFoundError("project not found")
	}

	return s.Get(ctx, actor, id)
}

// RemoveDoc detaches one uploaded file and returns its metadata so the
// caller can delete the stored object.
func (s *ProjectService) RemoveDoc(ctx context.Context, actor models.AuthContext, id, docID string) (*models.Doc, error) {
	project, err := s.Access.RequireWritable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var removed *models.Doc
	remaining := make(models.DocList, 0, len(project.Docs))
	for _, doc := range project.Docs {
		if doc.ID == docID && removed == nil {
			d := doc
			removed = &d
			continue
		}
		remaining = append(remaining, doc)
	}
	if removed == nil {
		return nil, NotFoundError("document not found")
	}

	res := s.DB.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND (? OR user_id = ?)", id, actor.IsAdmin(), actor.UserID).
		Updates(map[string]interface{}{"docs": remaining, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, NotFoundError("project not found")
	}

	return removed, nil
}
