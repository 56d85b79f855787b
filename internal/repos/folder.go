package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/types"
)

type FolderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, folder *types.Folder) (*types.Folder, error)
	GetByID(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) (*types.Folder, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Folder, error)
	Update(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) error
}

type folderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFolderRepo(db *gorm.DB, baseLog *logger.Logger) FolderRepo {
	return &folderRepo{db: db, log: baseLog.With("repo", "FolderRepo")}
}

func (r *folderRepo) Create(ctx context.Context, tx *gorm.DB, folder *types.Folder) (*types.Folder, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(folder).Error; err != nil {
		return nil, err
	}
	return folder, nil
}

func (r *folderRepo) GetByID(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) (*types.Folder, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var folder types.Folder
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", folderID, userID).
		First(&folder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &folder, nil
}

func (r *folderRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Folder, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Folder
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *folderRepo) Update(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Folder{}).
		Where("id = ? AND user_id = ?", folderID, userID).
		Updates(fields).Error
}

func (r *folderRepo) Delete(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", folderID, userID).
		Delete(&types.Folder{}).Error
}
