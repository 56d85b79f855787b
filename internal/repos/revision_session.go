package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/revisia/revisia-backend/internal/pkg/errors"
	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/types"
)

// RevisionSessionRepo owns the single-active-session-per-(user, synthese)
// table. A missing row is not an error: Get returns (nil, nil).
type RevisionSessionRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID) (*types.RevisionSession, error)
	Start(ctx context.Context, tx *gorm.DB, session *types.RevisionSession) (*types.RevisionSession, error)
	Update(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID) error
}

type revisionSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRevisionSessionRepo(db *gorm.DB, baseLog *logger.Logger) RevisionSessionRepo {
	return &revisionSessionRepo{db: db, log: baseLog.With("repo", "RevisionSessionRepo")}
}

func (r *revisionSessionRepo) Get(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID) (*types.RevisionSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var session types.RevisionSession
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND synthese_id = ?", userID, syntheseID).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Start replaces any existing row for the pair with a fresh one. The
// delete+insert runs in a single transaction so concurrent starts cannot
// leave two rows; the unique index on (user_id, synthese_id) is the
// backstop.
func (r *revisionSessionRepo) Start(ctx context.Context, tx *gorm.DB, session *types.RevisionSession) (*types.RevisionSession, error) {
	run := func(transaction *gorm.DB) error {
		if err := transaction.WithContext(ctx).
			Where("user_id = ? AND synthese_id = ?", session.UserID, session.SyntheseID).
			Delete(&types.RevisionSession{}).Error; err != nil {
			return err
		}
		return transaction.WithContext(ctx).Create(session).Error
	}

	var err error
	if tx != nil {
		err = run(tx)
	} else {
		err = r.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Update applies a partial field map and always refreshes last_activity_at
// in the same write. Returns ErrNotFound when no row matched.
func (r *revisionSessionRepo) Update(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["last_activity_at"] = time.Now().UTC()

	res := transaction.WithContext(ctx).
		Model(&types.RevisionSession{}).
		Where("user_id = ? AND synthese_id = ?", userID, syntheseID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

// Delete is idempotent: removing an absent row is not an error.
func (r *revisionSessionRepo) Delete(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Where("user_id = ? AND synthese_id = ?", userID, syntheseID).
		Delete(&types.RevisionSession{}).Error
}
