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

type SyntheseCreateInput struct {
	Title                string     `json:"title"`
	OriginalContent      string     `json:"original_content"`
	SummaryContent       string     `json:"summary_content"`
	SpecificInstructions string     `json:"specific_instructions"`
	FolderID             *uuid.UUID `json:"folder_id,omitempty"`
}

type SyntheseUpdateInput struct {
	Title                *string    `json:"title,omitempty"`
	SummaryContent       *string    `json:"summary_content,omitempty"`
	SpecificInstructions *string    `json:"specific_instructions,omitempty"`
	FolderID             *uuid.UUID `json:"folder_id,omitempty"`
}

type SyntheseService interface {
	Create(ctx context.Context, userID uuid.UUID, input SyntheseCreateInput) (*types.Synthese, error)
	Get(ctx context.Context, userID, syntheseID uuid.UUID) (*types.Synthese, error)
	List(ctx context.Context, userID uuid.UUID, folderID *uuid.UUID) ([]*types.Synthese, error)
	Update(ctx context.Context, userID, syntheseID uuid.UUID, input SyntheseUpdateInput) (*types.Synthese, error)
	Delete(ctx context.Context, userID, syntheseID uuid.UUID) error
}

type syntheseService struct {
	db           *gorm.DB
	log          *logger.Logger
	syntheseRepo repos.SyntheseRepo
	folderRepo   repos.FolderRepo
}

func NewSyntheseService(db *gorm.DB, log *logger.Logger, syntheseRepo repos.SyntheseRepo, folderRepo repos.FolderRepo) SyntheseService {
	return &syntheseService{
		db:           db,
		log:          log.With("service", "SyntheseService"),
		syntheseRepo: syntheseRepo,
		folderRepo:   folderRepo,
	}
}

func (s *syntheseService) Create(ctx context.Context, userID uuid.UUID, input SyntheseCreateInput) (*types.Synthese, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", pkgerrors.ErrInvalidArgument)
	}
	if input.FolderID != nil {
		folder, err := s.folderRepo.GetByID(ctx, nil, *input.FolderID, userID)
		if err != nil {
			return nil, err
		}
		if folder == nil {
			return nil, fmt.Errorf("%w: folder %s", pkgerrors.ErrNotFound, *input.FolderID)
		}
	}

	return s.syntheseRepo.Create(ctx, nil, &types.Synthese{
		ID:                   uuid.New(),
		UserID:               userID,
		FolderID:             input.FolderID,
		Title:                title,
		OriginalContent:      input.OriginalContent,
		SummaryContent:       input.SummaryContent,
		SpecificInstructions: input.SpecificInstructions,
	})
}

func (s *syntheseService) Get(ctx context.Context, userID, syntheseID uuid.UUID) (*types.Synthese, error) {
	synthese, err := s.syntheseRepo.GetByID(ctx, nil, syntheseID, userID)
	if err != nil {
		return nil, err
	}
	if synthese == nil {
		return nil, fmt.Errorf("%w: synthese %s", pkgerrors.ErrNotFound, syntheseID)
	}
	return synthese, nil
}

func (s *syntheseService) List(ctx context.Context, userID uuid.UUID, folderID *uuid.UUID) ([]*types.Synthese, error) {
	return s.syntheseRepo.ListByUser(ctx, nil, userID, folderID)
}

func (s *syntheseService) Update(ctx context.Context, userID, syntheseID uuid.UUID, input SyntheseUpdateInput) (*types.Synthese, error) {
	fields := map[string]interface{}{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title required", pkgerrors.ErrInvalidArgument)
		}
		fields["title"] = title
	}
	if input.SummaryContent != nil {
		fields["summary_content"] = *input.SummaryContent
	}
	if input.SpecificInstructions != nil {
		fields["specific_instructions"] = *input.SpecificInstructions
	}
	if input.FolderID != nil {
		folder, err := s.folderRepo.GetByID(ctx, nil, *input.FolderID, userID)
		if err != nil {
			return nil, err
		}
		if folder == nil {
			return nil, fmt.Errorf("%w: folder %s", pkgerrors.ErrNotFound, *input.FolderID)
		}
		fields["folder_id"] = *input.FolderID
	}
	if len(fields) > 0 {
		if err := s.syntheseRepo.Update(ctx, nil, syntheseID, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID, syntheseID)
}

func (s *syntheseService) Delete(ctx context.Context, userID, syntheseID uuid.UUID) error {
	return s.syntheseRepo.Delete(ctx, nil, syntheseID, userID)
}
