package service

import (
	"context"

	"github.com/cydxin/presence-sdk/models"
)

// ProjectDirectory lists the members of a project.
type ProjectDirectory interface {
	MembersOf(ctx context.Context, projectID string) ([]string, error)
}

// ProjectService answers membership questions from the project_member table.
// It backs both directions: hub.ProjectLookup at authentication time and
// ProjectDirectory for project-wide dispatch.
type ProjectService struct {
	*Service
}

var _ ProjectDirectory = (*ProjectService)(nil)

func NewProjectService(s *Service) *ProjectService {
	return &ProjectService{Service: s}
}

// ProjectsForUser returns the project ids userID belongs to, sorted.
func (s *ProjectService) ProjectsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("user_id = ?", userID).
		Order("project_id").
		Pluck("project_id", &ids).Error
	return ids, err
}

// MembersOf returns the user ids of projectID, sorted.
func (s *ProjectService) MembersOf(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ?", projectID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (s *ProjectService) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&n).Error
	return n > 0, err
}

// AddMember is idempotent.
func (s *ProjectService) AddMember(ctx context.Context, projectID, userID, role string) error {
	ok, err := s.IsMember(ctx, projectID, userID)
	if err != nil || ok {
		return err
	}
	return s.DB.WithContext(ctx).Create(&models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}).Error
}
