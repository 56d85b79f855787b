package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/revisia/revisia-backend/internal/pkg/errors"
	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/repos"
	"github.com/revisia/revisia-backend/internal/types"
)

type FolderService interface {
	Create(ctx context.Context, userID uuid.UUID, name, color string) (*types.Folder, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.Folder, error)
	Rename(ctx context.Context, userID, folderID uuid.UUID, name string) (*types.Folder, error)
	Delete(ctx context.Context, userID, folderID uuid.UUID) error
}

type folderService struct {
	db         *gorm.DB
	log        *logger.Logger
	folderRepo repos.FolderRepo
}

func NewFolderService(db *gorm.DB, log *logger.Logger, folderRepo repos.FolderRepo) FolderService {
	return &folderService{db: db, log: log.With("service", "FolderService"), folderRepo: folderRepo}
}

func (s *folderService) Create(ctx context.Context, userID uuid.UUID, name, color string) (*types.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name required", pkgerrors.ErrInvalidArgument)
	}
	return s.folderRepo.Create(ctx, nil, &types.Folder{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Color:  color,
	})
}

func (s *folderService) List(ctx context.Context, userID uuid.UUID) ([]*types.Folder, error) {
	return s.folderRepo.ListByUser(ctx, nil, userID)
}

func (s *folderService) Rename(ctx context.Context, userID, folderID uuid.UUID, name string) (*types.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name required", pkgerrors.ErrInvalidArgument)
	}
	if err := s.folderRepo.Update(ctx, nil, folderID, userID, map[string]interface{}{"name": name}); err != nil {
		return nil, err
	}
	folder, err := s.folderRepo.GetByID(ctx, nil, folderID, userID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, fmt.Errorf("%w: folder %s", pkgerrors.ErrNotFound, folderID)
	}
	return folder, nil
}

func (s *folderService) Delete(ctx context.Context, userID, folderID uuid.UUID) error {
	return s.folderRepo.Delete(ctx, nil, folderID, userID)
}
