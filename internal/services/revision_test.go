package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	pkgerrors "github.com/revisia/revisia-backend/internal/pkg/errors"
	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/types"
)

// ---- fakes ----

type fakeTxRunner struct{}

func (fakeTxRunner) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeSessionRepo struct {
	sessions map[string]*types.RevisionSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*types.RevisionSession{}}
}

func (r *fakeSessionRepo) key(userID, syntheseID uuid.UUID) string {
	return userID.String() + "/" + syntheseID.String()
}

func (r *fakeSessionRepo) Get(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID) (*types.RevisionSession, error) {
	s, ok := r.sessions[r.key(userID, syntheseID)]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) Start(ctx context.Context, tx *gorm.DB, session *types.RevisionSession) (*types.RevisionSession, error) {
	cp := *session
	r.sessions[r.key(session.UserID, session.SyntheseID)] = &cp
	return session, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID, fields map[string]interface{}) error {
	s, ok := r.sessions[r.key(userID, syntheseID)]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	s.LastActivityAt = time.Now().UTC()
	for col, val := range fields {
		switch col {
		case "phase":
			s.Phase = val.(types.RevisionPhase)
		case "phase_started_at":
			s.PhaseStartedAt = val.(time.Time)
		case "study_time_remaining":
			s.StudyTimeRemaining = val.(int)
		case "pause_time_remaining":
			s.PauseTimeRemaining = val.(int)
		case "loop_time_remaining":
			s.LoopTimeRemaining = val.(int)
		case "current_iteration":
			s.CurrentIteration = val.(int)
		case "user_recall":
			recall := val.(string)
			s.UserRecall = &recall
		case "understood_concepts":
			s.UnderstoodConcepts = val.(datatypes.JSONSlice[types.UnderstoodConcept])
		case "missing_concepts":
			s.MissingConcepts = val.(datatypes.JSONSlice[types.MissingConcept])
		case "last_activity_at":
		default:
			return fmt.Errorf("fake update: unknown column %q", col)
		}
	}
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID) error {
	delete(r.sessions, r.key(userID, syntheseID))
	return nil
}

type fakeCompletionRepo struct {
	completions []*types.RevisionCompletion
}

func (r *fakeCompletionRepo) Create(ctx context.Context, tx *gorm.DB, completion *types.RevisionCompletion) (*types.RevisionCompletion, error) {
	r.completions = append(r.completions, completion)
	return completion, nil
}

func (r *fakeCompletionRepo) CountByUserAndSynthese(ctx context.Context, tx *gorm.DB, userID, syntheseID uuid.UUID) (int64, error) {
	var n int64
	for _, c := range r.completions {
		if c.UserID == userID && c.SyntheseID == syntheseID {
			n++
		}
	}
	return n, nil
}

func (r *fakeCompletionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.RevisionCompletion, error) {
	var out []*types.RevisionCompletion
	for _, c := range r.completions {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSyntheseRepo struct {
	syntheses map[uuid.UUID]*types.Synthese
	mastery   map[uuid.UUID]int
}

func newFakeSyntheseRepo() *fakeSyntheseRepo {
	return &fakeSyntheseRepo{
		syntheses: map[uuid.UUID]*types.Synthese{},
		mastery:   map[uuid.UUID]int{},
	}
}

func (r *fakeSyntheseRepo) Create(ctx context.Context, tx *gorm.DB, synthese *types.Synthese) (*types.Synthese, error) {
	r.syntheses[synthese.ID] = synthese
	return synthese, nil
}

func (r *fakeSyntheseRepo) GetByID(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID) (*types.Synthese, error) {
	s, ok := r.syntheses[syntheseID]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	return s, nil
}

func (r *fakeSyntheseRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, folderID *uuid.UUID) ([]*types.Synthese, error) {
	var out []*types.Synthese
	for _, s := range r.syntheses {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSyntheseRepo) Update(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID, fields map[string]interface{}) error {
	return nil
}

func (r *fakeSyntheseRepo) SetMasteryScore(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID, score int) error {
	r.mastery[syntheseID] = score
	return nil
}

func (r *fakeSyntheseRepo) Delete(ctx context.Context, tx *gorm.DB, syntheseID, userID uuid.UUID) error {
	delete(r.syntheses, syntheseID)
	return nil
}

type fakeComparator struct {
	result *ComparisonResult
	err    error
	calls  int
}

func (c *fakeComparator) Compare(ctx context.Context, input ComparisonInput) (*ComparisonResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

type nopNotifier struct{}

func (nopNotifier) SessionStarted(ctx context.Context, userID, syntheseID uuid.UUID) {}
func (nopNotifier) SessionCompleted(ctx context.Context, userID, syntheseID uuid.UUID, iterationsCount int, masteryScore *int) {
}
func (nopNotifier) SessionStopped(ctx context.Context, userID, syntheseID uuid.UUID) {}
func (nopNotifier) SessionExpired(ctx context.Context, userID, syntheseID uuid.UUID) {}

type revisionHarness struct {
	svc         *revisionService
	sessionRepo *fakeSessionRepo
	completions *fakeCompletionRepo
	syntheses   *fakeSyntheseRepo
	comparator  *fakeComparator
	userID      uuid.UUID
	syntheseID  uuid.UUID
}

func newRevisionHarness(t *testing.T) *revisionHarness {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	sessionRepo := newFakeSessionRepo()
	completions := &fakeCompletionRepo{}
	syntheses := newFakeSyntheseRepo()
	comparator := &fakeComparator{}

	userID := uuid.New()
	syntheseID := uuid.New()
	syntheses.syntheses[syntheseID] = &types.Synthese{
		ID:             syntheseID,
		UserID:         userID,
		Title:          "Cellule vegetale",
		SummaryContent: "La photosynthese transforme la lumiere en energie chimique.",
	}

	svc := NewRevisionService(fakeTxRunner{}, log, sessionRepo, completions, syntheses, comparator, nopNotifier{}).(*revisionService)

	return &revisionHarness{
		svc:         svc,
		sessionRepo: sessionRepo,
		completions: completions,
		syntheses:   syntheses,
		comparator:  comparator,
		userID:      userID,
		syntheseID:  syntheseID,
	}
}

// ---- pure function properties ----

func TestIsExpired(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"fresh", time.Minute, false},
		{"exactly at limit", 900 * time.Second, false},
		{"just past limit", 901 * time.Second, true},
		{"long abandoned", 24 * time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &types.RevisionSession{LastActivityAt: now.Add(-tc.age)}
			if got := IsExpired(s, now); got != tc.want {
				t.Fatalf("IsExpired(age=%v) = %v, want %v", tc.age, got, tc.want)
			}
		})
	}
}

func TestComputeMasteryScore(t *testing.T) {
	cases := []struct {
		understood, missing, want int
	}{
		{3, 1, 75},
		{0, 0, 0},
		{2, 1, 67},
		{1, 2, 33},
		{1, 7, 13}, // 12.5 rounds half-up
		{5, 0, 100},
		{0, 4, 0},
	}
	for _, tc := range cases {
		if got := ComputeMasteryScore(tc.understood, tc.missing); got != tc.want {
			t.Errorf("ComputeMasteryScore(%d, %d) = %d, want %d", tc.understood, tc.missing, got, tc.want)
		}
	}
}

// ---- workflow properties ----

func TestStartSessionSupersedesExisting(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelBeginner, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := h.svc.SubmitRecall(ctx, h.userID, h.syntheseID, "ceci est une restitution"); err != nil {
		t.Fatalf("SubmitRecall: %v", err)
	}
	if _, err := h.svc.AdvanceIteration(ctx, h.userID, h.syntheseID); err != nil {
		t.Fatalf("AdvanceIteration: %v", err)
	}

	fresh, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelExpert, nil)
	if err != nil {
		t.Fatalf("StartSession again: %v", err)
	}
	if fresh.CurrentIteration != 1 {
		t.Fatalf("superseding start: iteration = %d, want 1", fresh.CurrentIteration)
	}

	stored, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID)
	if stored.UserRecall != nil {
		t.Fatalf("superseding start kept old recall %q", *stored.UserRecall)
	}
	if stored.RequirementLevel != types.LevelExpert {
		t.Fatalf("superseding start: level = %s, want expert", stored.RequirementLevel)
	}
	if stored.Phase != types.PhaseStudy {
		t.Fatalf("superseding start: phase = %s, want study", stored.Phase)
	}
	if stored.LoopTimeRemaining != types.DefaultLoopTimeSeconds {
		t.Fatalf("superseding start: loop timer = %d, want %d", stored.LoopTimeRemaining, types.DefaultLoopTimeSeconds)
	}
}

func TestStartSessionValidation(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, "impossible", nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("unknown level: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelCustom, nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("custom without settings: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := h.svc.StartSession(ctx, h.userID, uuid.New(), types.LevelBeginner, nil); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("unknown synthese: expected ErrNotFound, got %v", err)
	}

	custom := &types.CustomSettings{DefinitionsThreshold: 80, ConceptsThreshold: 70, DataThreshold: 60}
	session, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelCustom, custom)
	if err != nil {
		t.Fatalf("custom start: %v", err)
	}
	if session.CustomSettings == nil || session.CustomSettings.Data().DefinitionsThreshold != 80 {
		t.Fatalf("custom settings not stored: %+v", session.CustomSettings)
	}
}

func TestSubmitRecallLength(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// 9 trimmed characters are rejected, even padded with whitespace.
	if err := h.svc.SubmitRecall(ctx, h.userID, h.syntheseID, "  123456789  "); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("9 chars: expected ErrInvalidArgument, got %v", err)
	}
	// Exactly 10 is accepted.
	if err := h.svc.SubmitRecall(ctx, h.userID, h.syntheseID, "1234567890"); err != nil {
		t.Fatalf("10 chars: %v", err)
	}

	stored, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID)
	if stored.UserRecall == nil || *stored.UserRecall != "1234567890" {
		t.Fatalf("recall not stored trimmed: %v", stored.UserRecall)
	}
	if stored.Phase != types.PhaseAnalyzing {
		t.Fatalf("phase = %s, want analyzing", stored.Phase)
	}
}

func TestSubmitRecallWithoutSession(t *testing.T) {
	h := newRevisionHarness(t)
	if err := h.svc.SubmitRecall(context.Background(), h.userID, h.syntheseID, "une restitution valide"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncSessionPhaseStartedAt(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	loop := 90
	req := SyncRequest{
		Phase:              types.PhasePause,
		StudyTimeRemaining: 600,
		PauseTimeRemaining: 300,
		LoopTimeRemaining:  &loop,
		CurrentIteration:   1,
	}
	if err := h.svc.SyncSession(ctx, h.userID, h.syntheseID, req); err != nil {
		t.Fatalf("SyncSession: %v", err)
	}

	first, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID)
	if first.Phase != types.PhasePause || first.StudyTimeRemaining != 600 || first.PauseTimeRemaining != 300 || first.LoopTimeRemaining != 90 {
		t.Fatalf("sync not applied verbatim: %+v", first)
	}

	// Same phase again: phase_started_at must not move.
	if err := h.svc.SyncSession(ctx, h.userID, h.syntheseID, req); err != nil {
		t.Fatalf("SyncSession same phase: %v", err)
	}
	second, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID)
	if !second.PhaseStartedAt.Equal(first.PhaseStartedAt) {
		t.Fatalf("same-phase sync moved phase_started_at: %v -> %v", first.PhaseStartedAt, second.PhaseStartedAt)
	}

	// Different phase: it must move.
	req.Phase = types.PhaseRecall
	if err := h.svc.SyncSession(ctx, h.userID, h.syntheseID, req); err != nil {
		t.Fatalf("SyncSession new phase: %v", err)
	}
	third, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID)
	if !third.PhaseStartedAt.After(first.PhaseStartedAt) {
		t.Fatalf("phase change did not move phase_started_at")
	}

	if err := h.svc.SyncSession(ctx, h.userID, h.syntheseID, SyncRequest{Phase: "sleeping"}); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("invalid phase: expected ErrInvalidArgument, got %v", err)
	}
	if err := h.svc.SyncSession(ctx, h.userID, uuid.New(), req); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing session: expected ErrNotFound, got %v", err)
	}
}

func TestAdvanceIteration(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	// Move to iteration 3 with some checkpointed timers.
	loop := 45
	if err := h.svc.SyncSession(ctx, h.userID, h.syntheseID, SyncRequest{
		Phase:              types.PhaseResult,
		StudyTimeRemaining: 500,
		PauseTimeRemaining: 250,
		LoopTimeRemaining:  &loop,
		CurrentIteration:   3,
	}); err != nil {
		t.Fatalf("SyncSession: %v", err)
	}
	before, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID)

	res, err := h.svc.AdvanceIteration(ctx, h.userID, h.syntheseID)
	if err != nil {
		t.Fatalf("AdvanceIteration: %v", err)
	}
	if res.Completed || res.Iteration != 4 {
		t.Fatalf("AdvanceIteration = %+v, want iteration 4", res)
	}

	after, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID)
	if after.Phase != types.PhaseRecall {
		t.Fatalf("phase = %s, want recall", after.Phase)
	}
	if after.CurrentIteration != 4 {
		t.Fatalf("iteration = %d, want 4", after.CurrentIteration)
	}
	if !after.PhaseStartedAt.After(before.PhaseStartedAt) {
		t.Fatalf("phase_started_at not refreshed on advance")
	}
	// Timers carry over unchanged.
	if after.StudyTimeRemaining != 500 || after.PauseTimeRemaining != 250 {
		t.Fatalf("timers changed on advance: %+v", after)
	}
}

func TestAdvanceIterationForcesCompletionAtCap(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := h.svc.SyncSession(ctx, h.userID, h.syntheseID, SyncRequest{
		Phase:            types.PhaseResult,
		CurrentIteration: types.MaxIterations,
	}); err != nil {
		t.Fatalf("SyncSession: %v", err)
	}

	res, err := h.svc.AdvanceIteration(ctx, h.userID, h.syntheseID)
	if err != nil {
		t.Fatalf("AdvanceIteration: %v", err)
	}
	if !res.Completed || res.IterationsCount != types.MaxIterations {
		t.Fatalf("AdvanceIteration at cap = %+v, want forced completion with 8", res)
	}

	// The 9th iteration never materialized: the session is gone.
	if stored, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID); stored != nil {
		t.Fatalf("session still present after forced completion")
	}
	if len(h.completions.completions) != 1 || h.completions.completions[0].IterationsCount != types.MaxIterations {
		t.Fatalf("completion record wrong: %+v", h.completions.completions)
	}
	// Forced completion writes no mastery score.
	if _, written := h.syntheses.mastery[h.syntheseID]; written {
		t.Fatalf("forced completion must not write a mastery score")
	}
}

func TestCompleteSession(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := h.sessionRepo.Update(ctx, nil, h.userID, h.syntheseID, map[string]interface{}{
		"understood_concepts": datatypes.JSONSlice[types.UnderstoodConcept]{
			{Concept: "a"}, {Concept: "b"}, {Concept: "c"},
		},
		"missing_concepts": datatypes.JSONSlice[types.MissingConcept]{
			{Concept: "d", Reason: types.MissReasonAbsent},
		},
	}); err != nil {
		t.Fatalf("seed concepts: %v", err)
	}

	res, err := h.svc.CompleteSession(ctx, h.userID, h.syntheseID)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if res.MasteryScore != 75 || res.IterationsCount != 1 {
		t.Fatalf("CompleteSession = %+v, want {1, 75}", res)
	}
	if h.syntheses.mastery[h.syntheseID] != 75 {
		t.Fatalf("mastery score not written to synthese: %v", h.syntheses.mastery)
	}
	if stored, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID); stored != nil {
		t.Fatalf("session still present after completion")
	}

	count, err := h.svc.GetCompletionCount(ctx, h.userID, h.syntheseID)
	if err != nil || count != 1 {
		t.Fatalf("GetCompletionCount = %d, %v", count, err)
	}

	if _, err := h.svc.CompleteSession(ctx, h.userID, h.syntheseID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("completing twice: expected ErrNotFound, got %v", err)
	}
}

func TestCompleteSessionWithoutComparison(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	res, err := h.svc.CompleteSession(ctx, h.userID, h.syntheseID)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if res.MasteryScore != 0 {
		t.Fatalf("no concepts classified: mastery = %d, want 0", res.MasteryScore)
	}
}

func TestStopSession(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := h.svc.StopSession(ctx, h.userID, h.syntheseID); err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if stored, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID); stored != nil {
		t.Fatalf("session still present after stop")
	}
	if len(h.completions.completions) != 0 {
		t.Fatalf("stop must not write a completion record")
	}
	// Stopping with nothing active is fine.
	if err := h.svc.StopSession(ctx, h.userID, h.syntheseID); err != nil {
		t.Fatalf("StopSession twice: %v", err)
	}
}

func TestGetActiveSessionLazyExpiration(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	session, err := h.svc.GetActiveSession(ctx, h.userID, h.syntheseID)
	if err != nil || session == nil {
		t.Fatalf("GetActiveSession fresh: session=%v err=%v", session, err)
	}

	// Shift the service clock past the idle timeout.
	h.svc.now = func() time.Time { return time.Now().UTC().Add(SessionIdleTimeout + time.Second) }

	session, err = h.svc.GetActiveSession(ctx, h.userID, h.syntheseID)
	if err != nil {
		t.Fatalf("GetActiveSession expired: %v", err)
	}
	if session != nil {
		t.Fatalf("expired session surfaced: %+v", session)
	}
	// Lazy cleanup removed the row.
	if stored, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID); stored != nil {
		t.Fatalf("expired session not deleted on read")
	}

	// No session at all is a valid state, not an error.
	session, err = h.svc.GetActiveSession(ctx, h.userID, uuid.New())
	if err != nil || session != nil {
		t.Fatalf("absent session: session=%v err=%v", session, err)
	}
}

func TestRunComparison(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.RunComparison(ctx, h.userID, uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("unknown synthese: expected ErrNotFound, got %v", err)
	}
	if _, err := h.svc.RunComparison(ctx, h.userID, h.syntheseID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("no session: expected ErrNotFound, got %v", err)
	}

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := h.svc.RunComparison(ctx, h.userID, h.syntheseID); !errors.Is(err, pkgerrors.ErrPreconditionFailed) {
		t.Fatalf("no recall: expected ErrPreconditionFailed, got %v", err)
	}

	if err := h.svc.SubmitRecall(ctx, h.userID, h.syntheseID, "la lumiere devient energie chimique"); err != nil {
		t.Fatalf("SubmitRecall: %v", err)
	}

	// Upstream failure surfaces once and leaves the session untouched.
	h.comparator.err = fmt.Errorf("%w: comparator down", pkgerrors.ErrUpstream)
	if _, err := h.svc.RunComparison(ctx, h.userID, h.syntheseID); !errors.Is(err, pkgerrors.ErrUpstream) {
		t.Fatalf("comparator failure: expected ErrUpstream, got %v", err)
	}
	if h.comparator.calls != 1 {
		t.Fatalf("orchestrator must call the comparator exactly once, got %d", h.comparator.calls)
	}
	stored, _ := h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID)
	if len(stored.UnderstoodConcepts) != 0 || len(stored.MissingConcepts) != 0 {
		t.Fatalf("failed comparison mutated concept lists: %+v", stored)
	}

	h.comparator.err = nil
	h.comparator.result = &ComparisonResult{
		UnderstoodConcepts: []types.UnderstoodConcept{
			{Concept: "photosynthese", UserPhrasing: "la lumiere devient energie", SourceText: "transforme la lumiere"},
			{Concept: "energie chimique", UserPhrasing: "energie chimique", SourceText: "energie chimique"},
		},
		MissingConcepts: []types.MissingConcept{
			{Concept: "chlorophylle", SourceText: "grace a la chlorophylle", Reason: types.MissReasonAbsent},
		},
		OverallScore: 66,
		Feedback:     "Bon debut.",
	}

	result, err := h.svc.RunComparison(ctx, h.userID, h.syntheseID)
	if err != nil {
		t.Fatalf("RunComparison: %v", err)
	}
	if len(result.UnderstoodConcepts) != 2 || len(result.MissingConcepts) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	stored, _ = h.sessionRepo.Get(ctx, nil, h.userID, h.syntheseID)
	if len(stored.UnderstoodConcepts) != 2 || len(stored.MissingConcepts) != 1 {
		t.Fatalf("concept lists not persisted: %+v", stored)
	}
	// Comparison itself does not advance the phase.
	if stored.Phase != types.PhaseAnalyzing {
		t.Fatalf("comparison changed phase to %s", stored.Phase)
	}
}

// Full drill: start, sync timers, recall, compare, complete.
func TestRevisionEndToEnd(t *testing.T) {
	h := newRevisionHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, h.userID, h.syntheseID, types.LevelIntermediate, nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := h.svc.SyncSession(ctx, h.userID, h.syntheseID, SyncRequest{
		Phase:              types.PhaseStudy,
		StudyTimeRemaining: 1200,
		PauseTimeRemaining: 300,
		CurrentIteration:   1,
	}); err != nil {
		t.Fatalf("sync study: %v", err)
	}
	if err := h.svc.SyncSession(ctx, h.userID, h.syntheseID, SyncRequest{
		Phase:              types.PhaseRecall,
		StudyTimeRemaining: 0,
		PauseTimeRemaining: 300,
		CurrentIteration:   1,
	}); err != nil {
		t.Fatalf("sync recall: %v", err)
	}
	if err := h.svc.SubmitRecall(ctx, h.userID, h.syntheseID, "J'ai compris que la photosynthese cree de l'energie"); err != nil {
		t.Fatalf("SubmitRecall: %v", err)
	}

	h.comparator.result = &ComparisonResult{
		UnderstoodConcepts: []types.UnderstoodConcept{{Concept: "a"}, {Concept: "b"}},
		MissingConcepts:    []types.MissingConcept{{Concept: "c", Reason: types.MissReasonIncomplete}},
		OverallScore:       66,
	}
	if _, err := h.svc.RunComparison(ctx, h.userID, h.syntheseID); err != nil {
		t.Fatalf("RunComparison: %v", err)
	}

	res, err := h.svc.CompleteSession(ctx, h.userID, h.syntheseID)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if res.IterationsCount != 1 || res.MasteryScore != 67 {
		t.Fatalf("end-to-end completion = %+v, want {1, 67}", res)
	}
}
