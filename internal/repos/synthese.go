package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/types"
)

type SyntheseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, synthese *types.Synthese) (*types.Synthese, error)
	GetByID(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID) (*types.Synthese, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, folderID *uuid.UUID) ([]*types.Synthese, error)
	Update(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID, fields map[string]interface{}) error
	SetMasteryScore(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID, score int) error
	Delete(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID) error
}

type syntheseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyntheseRepo(db *gorm.DB, baseLog *logger.Logger) SyntheseRepo {
	return &syntheseRepo{db: db, log: baseLog.With("repo", "SyntheseRepo")}
}

func (r *syntheseRepo) Create(ctx context.Context, tx *gorm.DB, synthese *types.Synthese) (*types.Synthese, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(synthese).Error; err != nil {
		return nil, err
	}
	return synthese, nil
}

// GetByID scopes by owner: a synthese belonging to another user reads as
// absent.
func (r *syntheseRepo) GetByID(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID) (*types.Synthese, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var synthese types.Synthese
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", syntheseID, userID).
		First(&synthese).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &synthese, nil
}

func (r *syntheseRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, folderID *uuid.UUID) ([]*types.Synthese, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Synthese
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC")
	if folderID != nil {
		q = q.Where("folder_id = ?", *folderID)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *syntheseRepo) Update(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Synthese{}).
		Where("id = ? AND user_id = ?", syntheseID, userID).
		Updates(fields).Error
}

func (r *syntheseRepo) SetMasteryScore(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID, score int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.Synthese{}).
		Where("id = ? AND user_id = ?", syntheseID, userID).
		Updates(map[string]interface{}{
			"mastery_score":      score,
			"mastery_updated_at": now,
		}).Error
}

func (r *syntheseRepo) Delete(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", syntheseID, userID).
		Delete(&types.Synthese{}).Error
}
