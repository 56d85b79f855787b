package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/types"
)

// RevisionCompletionRepo is append-only: completions are created once and
// never updated or deleted.
type RevisionCompletionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, completion *types.RevisionCompletion) (*types.RevisionCompletion, error)
	CountByUserAndSynthese(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.RevisionCompletion, error)
}

type revisionCompletionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRevisionCompletionRepo(db *gorm.DB, baseLog *logger.Logger) RevisionCompletionRepo {
	return &revisionCompletionRepo{db: db, log: baseLog.With("repo", "RevisionCompletionRepo")}
}

func (r *revisionCompletionRepo) Create(ctx context.Context, tx *gorm.DB, completion *types.RevisionCompletion) (*types.RevisionCompletion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(completion).Error; err != nil {
		return nil, err
	}
	return completion, nil
}

func (r *revisionCompletionRepo) CountByUserAndSynthese(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.RevisionCompletion{}).
		Where("user_id = ? AND synthese_id = ?", userID, syntheseID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *revisionCompletionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.RevisionCompletion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.RevisionCompletion
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
