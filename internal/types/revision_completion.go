package types

import (
	"time"

	"github.com/google/uuid"
)

// RevisionCompletion is an append-only record of one finished drill,
// normal or forced. Rows are never updated or deleted.
type RevisionCompletion struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index:idx_completion_user_synthese" json:"user_id"`
	User            *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SyntheseID      uuid.UUID `gorm:"type:uuid;not null;index:idx_completion_user_synthese" json:"synthese_id"`
	Synthese        *Synthese `gorm:"constraint:OnDelete:CASCADE;foreignKey:SyntheseID;references:ID" json:"synthese,omitempty"`
	IterationsCount int       `gorm:"column:iterations_count;not null" json:"iterations_count"`
	CompletedAt     time.Time `gorm:"column:completed_at;not null;default:now()" json:"completed_at"`
}

func (RevisionCompletion) TableName() string {
	return "revision_completion"
}
