package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	pkgerrors "github.com/revisia/revisia-backend/internal/pkg/errors"
	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/repos"
	"github.com/revisia/revisia-backend/internal/types"
)

// SessionIdleTimeout is how long a session may sit without activity before
// a read treats it as expired. Expiration is observed lazily on read; no
// background sweep deletes rows.
const SessionIdleTimeout = 900 * time.Second

// MinRecallLength is the minimum trimmed recall length, in runes.
const MinRecallLength = 10

// SyncRequest checkpoints client-driven countdown state. Timers are
// persisted verbatim; the server never ticks them. A nil LoopTimeRemaining
// leaves the stored value untouched.
type SyncRequest struct {
	Phase              types.RevisionPhase `json:"phase"`
	StudyTimeRemaining int                 `json:"study_time_remaining"`
	PauseTimeRemaining int                 `json:"pause_time_remaining"`
	LoopTimeRemaining  *int                `json:"loop_time_remaining,omitempty"`
	CurrentIteration   int                 `json:"current_iteration"`
}

// AdvanceResult reports either the next iteration number or, at the loop
// bound, the forced completion.
type AdvanceResult struct {
	Completed       bool `json:"completed"`
	Iteration       int  `json:"iteration,omitempty"`
	IterationsCount int  `json:"iterations_count,omitempty"`
}

// CompletionResult is the outcome of an explicit completion.
type CompletionResult struct {
	IterationsCount int `json:"iterations_count"`
	MasteryScore    int `json:"mastery_score"`
}

type RevisionService interface {
	GetActiveSession(ctx context.Context, userID, syntheseID uuid.UUID) (*types.RevisionSession, error)
	StartSession(ctx context.Context, userID, syntheseID uuid.UUID, level types.RequirementLevel, custom *types.CustomSettings) (*types.RevisionSession, error)
	SyncSession(ctx context.Context, userID, syntheseID uuid.UUID, req SyncRequest) error
	SubmitRecall(ctx context.Context, userID, syntheseID uuid.UUID, text string) error
	RunComparison(ctx context.Context, userID, syntheseID uuid.UUID) (*ComparisonResult, error)
	AdvanceIteration(ctx context.Context, userID, syntheseID uuid.UUID) (*AdvanceResult, error)
	CompleteSession(ctx context.Context, userID, syntheseID uuid.UUID) (*CompletionResult, error)
	StopSession(ctx context.Context, userID, syntheseID uuid.UUID) error
	GetCompletionCount(ctx context.Context, userID, syntheseID uuid.UUID) (int64, error)
}

type revisionService struct {
	txRunner       repos.TxRunner
	log            *logger.Logger
	sessionRepo    repos.RevisionSessionRepo
	completionRepo repos.RevisionCompletionRepo
	syntheseRepo   repos.SyntheseRepo
	comparator     AIComparator
	notifier       RevisionNotifier

	locks keyedMutex

	// now is swappable in tests.
	now func() time.Time
}

func NewRevisionService(
	txRunner repos.TxRunner,
	log *logger.Logger,
	sessionRepo repos.RevisionSessionRepo,
	completionRepo repos.RevisionCompletionRepo,
	syntheseRepo repos.SyntheseRepo,
	comparator AIComparator,
	notifier RevisionNotifier,
) RevisionService {
	return &revisionService{
		txRunner:       txRunner,
		log:            log.With("service", "RevisionService"),
		sessionRepo:    sessionRepo,
		completionRepo: completionRepo,
		syntheseRepo:   syntheseRepo,
		comparator:     comparator,
		notifier:       notifier,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// keyedMutex serializes read-modify-write operations per
// (user, synthese) pair. The storage unique index remains the backstop
// across processes.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func sessionKey(userID, syntheseID uuid.UUID) string {
	return userID.String() + "/" + syntheseID.String()
}

// IsExpired is the lazy-expiration predicate.
func IsExpired(session *types.RevisionSession, now time.Time) bool {
	return now.Sub(session.LastActivityAt) > SessionIdleTimeout
}

// ComputeMasteryScore is the deterministic completion score:
// round-half-up of 100*understood/(understood+missing), 0 when no concept
// was classified at all.
func ComputeMasteryScore(understoodCount, missingCount int) int {
	total := understoodCount + missingCount
	if total == 0 {
		return 0
	}
	return int(math.Floor(100*float64(understoodCount)/float64(total) + 0.5))
}

func (s *revisionService) GetActiveSession(ctx context.Context, userID, syntheseID uuid.UUID) (*types.RevisionSession, error) {
	unlock := s.locks.lock(sessionKey(userID, syntheseID))
	defer unlock()

	session, err := s.sessionRepo.Get(ctx, nil, userID, syntheseID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if IsExpired(session, s.now()) {
		s.log.Info("Deleting expired session on read", "user_id", userID, "synthese_id", syntheseID)
		if err := s.sessionRepo.Delete(ctx, nil, userID, syntheseID); err != nil {
			return nil, err
		}
		s.notifier.SessionExpired(ctx, userID, syntheseID)
		return nil, nil
	}
	return session, nil
}

func (s *revisionService) StartSession(ctx context.Context, userID, syntheseID uuid.UUID, level types.RequirementLevel, custom *types.CustomSettings) (*types.RevisionSession, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: unknown requirement level %q", pkgerrors.ErrInvalidArgument, level)
	}
	if level == types.LevelCustom && custom == nil {
		return nil, fmt.Errorf("%w: custom requirement level needs custom settings", pkgerrors.ErrInvalidArgument)
	}

	synthese, err := s.syntheseRepo.GetByID(ctx, nil, syntheseID, userID)
	if err != nil {
		return nil, err
	}
	if synthese == nil {
		return nil, fmt.Errorf("%w: synthese %s", pkgerrors.ErrNotFound, syntheseID)
	}

	unlock := s.locks.lock(sessionKey(userID, syntheseID))
	defer unlock()

	now := s.now()
	session := &types.RevisionSession{
		ID:                uuid.New(),
		UserID:            userID,
		SyntheseID:        syntheseID,
		RequirementLevel:  level,
		Phase:             types.PhaseStudy,
		PhaseStartedAt:    now,
		LoopTimeRemaining: types.DefaultLoopTimeSeconds,
		CurrentIteration:  1,
		LastActivityAt:    now,
	}
	if level == types.LevelCustom {
		settings := datatypes.NewJSONType(*custom)
		session.CustomSettings = &settings
	}

	// Any existing session for the pair is unconditionally superseded.
	created, err := s.sessionRepo.Start(ctx, nil, session)
	if err != nil {
		return nil, err
	}
	s.notifier.SessionStarted(ctx, userID, syntheseID)
	return created, nil
}

func (s *revisionService) SyncSession(ctx context.Context, userID, syntheseID uuid.UUID, req SyncRequest) error {
	if !req.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", pkgerrors.ErrInvalidArgument, req.Phase)
	}

	unlock := s.locks.lock(sessionKey(userID, syntheseID))
	defer unlock()

	session, err := s.sessionRepo.Get(ctx, nil, userID, syntheseID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: no active revision session", pkgerrors.ErrNotFound)
	}

	fields := map[string]interface{}{
		"study_time_remaining": req.StudyTimeRemaining,
		"pause_time_remaining": req.PauseTimeRemaining,
		"current_iteration":    req.CurrentIteration,
	}
	if req.LoopTimeRemaining != nil {
		fields["loop_time_remaining"] = *req.LoopTimeRemaining
	}
	// phase_started_at moves if and only if the phase actually changes.
	if req.Phase != session.Phase {
		fields["phase"] = req.Phase
		fields["phase_started_at"] = s.now()
	}

	return s.sessionRepo.Update(ctx, nil, userID, syntheseID, fields)
}

func (s *revisionService) SubmitRecall(ctx context.Context, userID, syntheseID uuid.UUID, text string) error {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinRecallLength {
		return fmt.Errorf("%w: recall text must be at least %d characters", pkgerrors.ErrInvalidArgument, MinRecallLength)
	}

	unlock := s.locks.lock(sessionKey(userID, syntheseID))
	defer unlock()

	session, err := s.sessionRepo.Get(ctx, nil, userID, syntheseID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: no active revision session", pkgerrors.ErrNotFound)
	}

	return s.sessionRepo.Update(ctx, nil, userID, syntheseID, map[string]interface{}{
		"user_recall":      trimmed,
		"phase":            types.PhaseAnalyzing,
		"phase_started_at": s.now(),
	})
}

func (s *revisionService) RunComparison(ctx context.Context, userID, syntheseID uuid.UUID) (*ComparisonResult, error) {
	synthese, err := s.syntheseRepo.GetByID(ctx, nil, syntheseID, userID)
	if err != nil {
		return nil, err
	}
	if synthese == nil {
		return nil, fmt.Errorf("%w: synthese %s", pkgerrors.ErrNotFound, syntheseID)
	}

	session, err := s.sessionRepo.Get(ctx, nil, userID, syntheseID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: no active revision session", pkgerrors.ErrNotFound)
	}
	if session.UserRecall == nil || *session.UserRecall == "" {
		return nil, fmt.Errorf("%w: nothing to compare, submit a recall first", pkgerrors.ErrPreconditionFailed)
	}

	input := ComparisonInput{
		SummaryContent:       synthese.SummaryContent,
		UserRecall:           *session.UserRecall,
		SpecificInstructions: synthese.SpecificInstructions,
		RequirementLevel:     session.RequirementLevel,
	}
	if session.CustomSettings != nil {
		settings := session.CustomSettings.Data()
		input.CustomSettings = &settings
	}

	// Exactly one comparator call; the lock is not held across it so
	// timer syncs stay responsive during analysis.
	result, err := s.comparator.Compare(ctx, input)
	if err != nil {
		// No partial mutation: the previous concept lists stay intact.
		return nil, err
	}

	unlock := s.locks.lock(sessionKey(userID, syntheseID))
	defer unlock()

	if err := s.sessionRepo.Update(ctx, nil, userID, syntheseID, map[string]interface{}{
		"understood_concepts": datatypes.JSONSlice[types.UnderstoodConcept](result.UnderstoodConcepts),
		"missing_concepts":    datatypes.JSONSlice[types.MissingConcept](result.MissingConcepts),
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *revisionService) AdvanceIteration(ctx context.Context, userID, syntheseID uuid.UUID) (*AdvanceResult, error) {
	unlock := s.locks.lock(sessionKey(userID, syntheseID))
	defer unlock()

	session, err := s.sessionRepo.Get(ctx, nil, userID, syntheseID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: no active revision session", pkgerrors.ErrNotFound)
	}

	nextIteration := session.CurrentIteration + 1
	if nextIteration > types.MaxIterations {
		// The 9th iteration never materializes: the session completes
		// with its current iteration count and no mastery write.
		if err := s.finishSession(ctx, session, nil); err != nil {
			return nil, err
		}
		s.notifier.SessionCompleted(ctx, userID, syntheseID, session.CurrentIteration, nil)
		return &AdvanceResult{Completed: true, IterationsCount: session.CurrentIteration}, nil
	}

	// Recall and concept lists from the prior iteration are intentionally
	// left in place on loop-back.
	if err := s.sessionRepo.Update(ctx, nil, userID, syntheseID, map[string]interface{}{
		"phase":             types.PhaseRecall,
		"phase_started_at":  s.now(),
		"current_iteration": nextIteration,
	}); err != nil {
		return nil, err
	}
	return &AdvanceResult{Iteration: nextIteration}, nil
}

func (s *revisionService) CompleteSession(ctx context.Context, userID, syntheseID uuid.UUID) (*CompletionResult, error) {
	unlock := s.locks.lock(sessionKey(userID, syntheseID))
	defer unlock()

	session, err := s.sessionRepo.Get(ctx, nil, userID, syntheseID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: no active revision session", pkgerrors.ErrNotFound)
	}

	masteryScore := ComputeMasteryScore(len(session.UnderstoodConcepts), len(session.MissingConcepts))
	if err := s.finishSession(ctx, session, &masteryScore); err != nil {
		return nil, err
	}
	s.notifier.SessionCompleted(ctx, userID, syntheseID, session.CurrentIteration, &masteryScore)
	return &CompletionResult{
		IterationsCount: session.CurrentIteration,
		MasteryScore:    masteryScore,
	}, nil
}

// finishSession appends the immutable completion record and deletes the
// active row, atomically. Only the explicit completion path writes a
// mastery score; the forced path passes nil.
func (s *revisionService) finishSession(ctx context.Context, session *types.RevisionSession, masteryScore *int) error {
	return s.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		if masteryScore != nil {
			if err := s.syntheseRepo.SetMasteryScore(ctx, tx, session.SyntheseID, session.UserID, *masteryScore); err != nil {
				return fmt.Errorf("write mastery score: %w", err)
			}
		}
		if _, err := s.completionRepo.Create(ctx, tx, &types.RevisionCompletion{
			ID:              uuid.New(),
			UserID:          session.UserID,
			SyntheseID:      session.SyntheseID,
			IterationsCount: session.CurrentIteration,
			CompletedAt:     s.now(),
		}); err != nil {
			return fmt.Errorf("append completion: %w", err)
		}
		if err := s.sessionRepo.Delete(ctx, tx, session.UserID, session.SyntheseID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

func (s *revisionService) StopSession(ctx context.Context, userID, syntheseID uuid.UUID) error {
	unlock := s.locks.lock(sessionKey(userID, syntheseID))
	defer unlock()

	// Cancellation, not success: no completion record is written.
	if err := s.sessionRepo.Delete(ctx, nil, userID, syntheseID); err != nil {
		return err
	}
	s.notifier.SessionStopped(ctx, userID, syntheseID)
	return nil
}

func (s *revisionService) GetCompletionCount(ctx context.Context, userID, syntheseID uuid.UUID) (int64, error) {
	return s.completionRepo.CountByUserAndSynthese(ctx, nil, userID, syntheseID)
}
