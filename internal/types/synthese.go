package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Synthese is one unit of study material: the imported original content
// plus the generated summary the revision workflow drills against.
type Synthese struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User                 *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	FolderID             *uuid.UUID     `gorm:"type:uuid;index" json:"folder_id,omitempty"`
	Folder               *Folder        `gorm:"foreignKey:FolderID;references:ID" json:"folder,omitempty"`
	Title                string         `gorm:"column:title;not null" json:"title"`
	OriginalContent      string         `gorm:"column:original_content;type:text" json:"original_content"`
	SummaryContent       string         `gorm:"column:summary_content;type:text" json:"summary_content"`
	SpecificInstructions string         `gorm:"column:specific_instructions;type:text" json:"specific_instructions"`
	MasteryScore         *int           `gorm:"column:mastery_score" json:"mastery_score,omitempty"`
	MasteryUpdatedAt     *time.Time     `gorm:"column:mastery_updated_at" json:"mastery_updated_at,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Synthese) TableName() string {
	return "synthese"
}
