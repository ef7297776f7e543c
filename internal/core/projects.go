package core

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/andresthedesigner/videodaddychat/internal/blob"
	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

type ProjectService struct {
	store store.Store
	blobs blob.Store
	log   logging.Logger
}

func NewProjectService(s store.Store, blobs blob.Store, log logging.Logger) *ProjectService {
	return &ProjectService{store: s, blobs: blobs, log: log}
}

func (s *ProjectService) List(ctx context.Context, userID string) ([]store.Project, error) {
	return s.store.ListProjects(ctx, userID)
}

// Get returns a project owned by userID. A project owned by someone else is
// common.ErrorForbidden, unlike chats, which hide instead.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*store.Project, error) {
	if _, err := uuid.Parse(projectID); err != nil {
		return nil, common.NewValidationError("Invalid project ID")
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, common.ErrorForbidden
	}
	return p, nil
}

func (s *ProjectService) Create(ctx context.Context, userID, name string) (*store.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.NewValidationError("Project name is required")
	}
	p := &store.Project{UserID: userID, Name: name}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Rename(ctx context.Context, userID, projectID, name string) (*store.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.NewValidationError("Project name is required")
	}
	p, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.store.RenameProject(ctx, projectID, name); err != nil {
		return nil, err
	}
	p.Name = name
	return p, nil
}

// Delete removes the project and every chat in it, with their messages,
// attachments and stored blobs.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return err
	}
	storageIDs, err := s.store.DeleteProject(ctx, projectID)
	if err != nil {
		return err
	}
	deleteBlobs(ctx, s.blobs, s.log, storageIDs)
	s.log.Info(ctx, "project deleted", "project_id", projectID, "attachments", len(storageIDs))
	return nil
}
