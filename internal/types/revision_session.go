package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RevisionPhase is one state of the active-recall workflow. Terminal
// outcomes (completed/stopped) are not stored: the session row is deleted
// when the workflow ends.
type RevisionPhase string

const (
	PhaseStudy     RevisionPhase = "study"
	PhasePause     RevisionPhase = "pause"
	PhaseRecall    RevisionPhase = "recall"
	PhaseAnalyzing RevisionPhase = "analyzing"
	PhaseResult    RevisionPhase = "result"
)

func (p RevisionPhase) Valid() bool {
	switch p {
	case PhaseStudy, PhasePause, PhaseRecall, PhaseAnalyzing, PhaseResult:
		return true
	}
	return false
}

// RequirementLevel controls how strictly the comparator judges recall.
type RequirementLevel string

const (
	LevelBeginner     RequirementLevel = "beginner"
	LevelIntermediate RequirementLevel = "intermediate"
	LevelExpert       RequirementLevel = "expert"
	LevelCustom       RequirementLevel = "custom"
)

func (l RequirementLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelExpert, LevelCustom:
		return true
	}
	return false
}

// CustomSettings are per-category strictness thresholds (0-100), present
// only when the requirement level is "custom".
type CustomSettings struct {
	DefinitionsThreshold int `json:"definitions_threshold"`
	ConceptsThreshold    int `json:"concepts_threshold"`
	DataThreshold        int `json:"data_threshold"`
}

// UnderstoodConcept is one idea the comparator judged correctly recalled.
type UnderstoodConcept struct {
	Concept      string `json:"concept"`
	UserPhrasing string `json:"user_phrasing"`
	SourceText   string `json:"source_text"`
}

// MissingConcept is one idea the comparator judged not (or wrongly)
// recalled. Reason is one of: absent, incomplete, factual-error,
// contradiction.
type MissingConcept struct {
	Concept    string `json:"concept"`
	SourceText string `json:"source_text"`
	Reason     string `json:"reason"`
}

const (
	MissReasonAbsent        = "absent"
	MissReasonIncomplete    = "incomplete"
	MissReasonFactualError  = "factual-error"
	MissReasonContradiction = "contradiction"
)

// RevisionSession is the single active revision row for a (user, synthese)
// pair. The composite unique index is the storage-level backstop for the
// one-active-session invariant.
type RevisionSession struct {
	ID                 uuid.UUID                               `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID             uuid.UUID                               `gorm:"type:uuid;not null;index:idx_revision_user_synthese,unique" json:"user_id"`
	User               *User                                   `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SyntheseID         uuid.UUID                               `gorm:"type:uuid;not null;index:idx_revision_user_synthese,unique" json:"synthese_id"`
	Synthese           *Synthese                               `gorm:"constraint:OnDelete:CASCADE;foreignKey:SyntheseID;references:ID" json:"synthese,omitempty"`
	RequirementLevel   RequirementLevel                        `gorm:"column:requirement_level;not null" json:"requirement_level"`
	CustomSettings     *datatypes.JSONType[CustomSettings]     `gorm:"column:custom_settings;type:jsonb" json:"custom_settings,omitempty"`
	Phase              RevisionPhase                           `gorm:"column:phase;not null" json:"phase"`
	PhaseStartedAt     time.Time                               `gorm:"column:phase_started_at;not null" json:"phase_started_at"`
	StudyTimeRemaining int                                     `gorm:"column:study_time_remaining;not null;default:0" json:"study_time_remaining"`
	PauseTimeRemaining int                                     `gorm:"column:pause_time_remaining;not null;default:0" json:"pause_time_remaining"`
	LoopTimeRemaining  int                                     `gorm:"column:loop_time_remaining;not null;default:120" json:"loop_time_remaining"`
	CurrentIteration   int                                     `gorm:"column:current_iteration;not null;default:1" json:"current_iteration"`
	UserRecall         *string                                 `gorm:"column:user_recall;type:text" json:"user_recall,omitempty"`
	UnderstoodConcepts datatypes.JSONSlice[UnderstoodConcept]  `gorm:"column:understood_concepts;type:jsonb" json:"understood_concepts"`
	MissingConcepts    datatypes.JSONSlice[MissingConcept]     `gorm:"column:missing_concepts;type:jsonb" json:"missing_concepts"`
	LastActivityAt     time.Time                               `gorm:"column:last_activity_at;not null;index" json:"last_activity_at"`
	CreatedAt          time.Time                               `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time                               `gorm:"not null;default:now()" json:"updated_at"`
}

func (RevisionSession) TableName() string {
	return "revision_session"
}

// MaxIterations bounds the drill loop; an advance past it forces
// completion instead.
const MaxIterations = 8

// DefaultLoopTimeSeconds is the loop countdown used when the client does
// not supply one.
const DefaultLoopTimeSeconds = 120
