package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lshigami/roleplay-sim/config"
	"github.com/lshigami/roleplay-sim/internal/engine"
	"github.com/lshigami/roleplay-sim/internal/model"
	"github.com/lshigami/roleplay-sim/internal/realtime"
	"github.com/lshigami/roleplay-sim/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (n *recordingNotifier) Publish(_ context.Context, ev realtime.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type stubRater struct {
	out   string
	err   error
	calls int
}

func (r *stubRater) RateSoftSkills(_ context.Context, _ string) (string, error) {
	r.calls++
	return r.out, r.err
}

type fixture struct {
	db       *gorm.DB
	sims     repository.SimulationRepository
	services repository.ServiceRepository
	svc      SimulationService
	feedback FeedbackService
	notifier *recordingNotifier
	rater    *stubRater
	clock    *clock
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Service{}, &model.ServiceLevel{}, &model.Simulation{}, &model.SimulationFeedback{}))

	if cfg == nil {
		cfg = &config.Config{Scoring: config.Scoring{MistakeThreshold: engine.DefaultMistakeThreshold}}
	}

	f := &fixture{
		db:       db,
		sims:     repository.NewSimulationRepository(db),
		services: repository.NewServiceRepository(db),
		notifier: &recordingNotifier{},
		rater:    &stubRater{},
		clock:    &clock{now: t0},
	}
	f.feedback = NewFeedbackService(f.sims, repository.NewFeedbackRepository(db), f.rater)
	f.svc = NewSimulationService(f.sims, repository.NewServiceLevelRepository(db), f.feedback, f.notifier, cfg)
	f.svc.(*simulationService).now = f.clock.Now
	return f
}

var callerQuestions = []engine.FormQuestion{
	{Section: "A. Caller", QuestionNo: "1", QuestionType: "select", CorrectAnswer: "Yes"},
	{Section: "A. Caller", QuestionNo: "2", QuestionType: "text", CorrectAnswer: "Smith"},
	{Section: "A. Caller", QuestionNo: engine.NotesQuestionNo, QuestionType: "text"},
	{Section: "B. Incident", QuestionNo: "1", QuestionType: "select", CorrectAnswer: "Fire"},
}

// seedLevel creates a service with one level. A nil limit means unlimited.
func (f *fixture) seedLevel(t *testing.T, limit *time.Duration) uint {
	t.Helper()
	level := model.ServiceLevel{Name: "Beginner", FormQuestions: callerQuestions}
	if limit != nil {
		ms := limit.Milliseconds()
		level.TimeLimit = &ms
	}
	svc := &model.Service{OrganizationID: 1, Name: "Intake", Levels: []model.ServiceLevel{level}}
	require.NoError(t, f.services.Create(context.Background(), svc))
	return svc.Levels[0].ID
}

func (f *fixture) start(t *testing.T, userID, levelID uint) uint {
	t.Helper()
	resp, err := f.svc.Start(context.Background(), userID, levelID)
	require.NoError(t, err)
	return resp.ID
}

func TestStartRequiresLevel(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Start(context.Background(), 1, 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStartRecordsStartTime(t *testing.T) {
	f := newFixture(t, nil)
	levelID := f.seedLevel(t, nil)

	resp, err := f.svc.Start(context.Background(), 7, levelID)
	require.NoError(t, err)
	assert.Equal(t, uint(7), resp.UserID)
	assert.Equal(t, levelID, resp.ServiceLevelID)
	require.NotNil(t, resp.StartedAt)
	assert.True(t, resp.StartedAt.Equal(t0))
	assert.Empty(t, resp.PausedAt)
}

func TestPauseResumeTracksActiveTime(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))

	f.clock.Advance(2 * time.Minute)
	resp, err := f.svc.Pause(ctx, id)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)

	f.clock.Advance(10 * time.Minute)
	used, err := f.svc.UsedTime(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2*time.Minute/time.Millisecond), used.UsedTimeMs)
	assert.True(t, used.Paused)
	assert.Nil(t, used.RemainingMs)

	resp, err = f.svc.Resume(ctx, id)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)

	f.clock.Advance(3 * time.Minute)
	used, err = f.svc.UsedTime(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(5*time.Minute/time.Millisecond), used.UsedTimeMs)
	assert.False(t, used.Paused)

	assert.Equal(t, []string{realtime.EventSimulationPaused, realtime.EventSimulationResumed}, f.notifier.types())
}

func TestPauseWhilePausedIsNotAccepted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))

	_, err := f.svc.Pause(ctx, id)
	require.NoError(t, err)
	resp, err := f.svc.Pause(ctx, id)
	require.NoError(t, err)
	assert.False(t, resp.Accepted)

	resp, err = f.svc.Resume(ctx, id)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	resp, err = f.svc.Resume(ctx, id)
	require.NoError(t, err)
	assert.False(t, resp.Accepted)
	assert.Len(t, f.notifier.types(), 2)
}

func TestConcurrentPausesAcceptOnce(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t, 1, f.seedLevel(t, nil))

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.Pause(context.Background(), id)
			if err != nil {
				return
			}
			if resp.Accepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	sim, err := f.sims.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, sim.PausedAt, 1)
	assert.Len(t, f.notifier.types(), 1)
}

func TestResumeRejectedWhenLimitSpent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	limit := 5 * time.Minute
	id := f.start(t, 1, f.seedLevel(t, &limit))

	f.clock.Advance(5 * time.Minute)
	resp, err := f.svc.Pause(ctx, id)
	require.NoError(t, err)
	require.True(t, resp.Accepted)

	resp, err = f.svc.Resume(ctx, id)
	require.NoError(t, err)
	assert.False(t, resp.Accepted)
	assert.Equal(t, "time limit reached", resp.Message)

	used, err := f.svc.UsedTime(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, used.RemainingMs)
	assert.Equal(t, int64(0), *used.RemainingMs)
}

func TestStopScoresAndFinishesOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))

	answers := []engine.FormAnswer{
		{Section: "A. Caller", QuestionNo: "1", Answer: "Yes"},
		{Section: "A. Caller", QuestionNo: "2", Answer: "Jones"},
		{Section: "B. Incident", QuestionNo: "1", Answer: "Fire"},
	}
	f.clock.Advance(4 * time.Minute)
	resp, err := f.svc.Stop(ctx, id, answers)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)

	sim, err := f.sims.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sim.EndedAt)
	assert.True(t, sim.EndedAt.Equal(t0.Add(4*time.Minute)))
	require.NotNil(t, sim.SimulationResult)
	assert.Equal(t, 2, sim.SimulationResult.OverallCorrect)
	assert.Equal(t, 3, sim.SimulationResult.OverallTotal)
	assert.Equal(t, 66, sim.SimulationResult.OverallScore)

	_, err = f.svc.Stop(ctx, id, answers)
	assert.ErrorIs(t, err, ErrSimulationEnded)
	_, err = f.svc.Pause(ctx, id)
	assert.ErrorIs(t, err, ErrSimulationEnded)
	_, err = f.svc.Cancel(ctx, id)
	assert.ErrorIs(t, err, ErrSimulationEnded)
	assert.ErrorIs(t, f.svc.UpdateFormAnswers(ctx, id, answers), ErrSimulationEnded)

	used, err := f.svc.UsedTime(ctx, id)
	require.NoError(t, err)
	assert.True(t, used.Finished)
	assert.Equal(t, int64(4*time.Minute/time.Millisecond), used.UsedTimeMs)
	assert.Equal(t, []string{realtime.EventSimulationStopped}, f.notifier.types())
}

func TestStopPastLimitBacksDateEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	limit := 10 * time.Minute
	id := f.start(t, 1, f.seedLevel(t, &limit))

	f.clock.Advance(15 * time.Minute)
	_, err := f.svc.Stop(ctx, id, nil)
	require.NoError(t, err)

	sim, err := f.sims.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, sim.EndedAt.Equal(t0.Add(10*time.Minute)), sim.EndedAt)
}

func TestStopUsesStoredAnswersWhenNoneGiven(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))

	stored := []engine.FormAnswer{{Section: "A. Caller", QuestionNo: "1", Answer: "Yes"}}
	require.NoError(t, f.svc.UpdateFormAnswers(ctx, id, stored))
	_, err := f.svc.Stop(ctx, id, nil)
	require.NoError(t, err)

	sim, err := f.sims.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, sim.SimulationResult.OverallCorrect)
	assert.Equal(t, stored, []engine.FormAnswer(sim.FormAnswers))
}

// interleavingRepo runs before ahead of each conditional finish, standing in for
// an answer update that lands between Stop's read and its write.
type interleavingRepo struct {
	repository.SimulationRepository
	before func()
}

func (r *interleavingRepo) FinishWithStoredAnswers(ctx context.Context, sim *model.Simulation, endedAt time.Time, result *model.SimulationResult) (bool, error) {
	if r.before != nil {
		r.before()
	}
	return r.SimulationRepository.FinishWithStoredAnswers(ctx, sim, endedAt, result)
}

func TestStopScoresAnswersUpdatedDuringStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))
	require.NoError(t, f.svc.UpdateFormAnswers(ctx, id, []engine.FormAnswer{{Section: "A. Caller", QuestionNo: "1", Answer: "No"}}))

	newer := []engine.FormAnswer{
		{Section: "A. Caller", QuestionNo: "1", Answer: "Yes"},
		{Section: "A. Caller", QuestionNo: "2", Answer: "Smith"},
	}
	repo := &interleavingRepo{SimulationRepository: f.sims}
	repo.before = func() {
		repo.before = nil
		require.NoError(t, f.svc.UpdateFormAnswers(ctx, id, newer))
	}
	svc := NewSimulationService(repo, repository.NewServiceLevelRepository(f.db), f.feedback, f.notifier, &config.Config{})
	svc.(*simulationService).now = f.clock.Now

	_, err := svc.Stop(ctx, id, nil)
	require.NoError(t, err)

	sim, err := f.sims.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, newer, []engine.FormAnswer(sim.FormAnswers))
	require.NotNil(t, sim.SimulationResult)
	assert.Equal(t, 2, sim.SimulationResult.OverallCorrect)
}

func TestStopGivesUpWhenAnswersKeepChanging(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))

	calls := 0
	repo := &interleavingRepo{SimulationRepository: f.sims, before: func() {
		calls++
		require.NoError(t, f.svc.UpdateFormAnswers(ctx, id, []engine.FormAnswer{{Section: "A. Caller", QuestionNo: "1", Answer: "Yes"}}))
	}}
	svc := NewSimulationService(repo, repository.NewServiceLevelRepository(f.db), f.feedback, f.notifier, &config.Config{})

	_, err := svc.Stop(ctx, id, nil)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.Equal(t, stopAttempts, calls)

	sim, err := f.sims.FindByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, sim.Finished())
	assert.NotContains(t, f.notifier.types(), realtime.EventSimulationStopped)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))

	resp, err := f.svc.Cancel(ctx, id)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	_, err = f.svc.Stop(ctx, id, nil)
	assert.ErrorIs(t, err, ErrSimulationEnded)
	assert.Equal(t, []string{realtime.EventSimulationCancelled}, f.notifier.types())
}

func TestResultIncludesCompetencyAndSoftSkills(t *testing.T) {
	f := newFixture(t, &config.Config{Scoring: config.Scoring{MistakeThreshold: 1, ExcludedSections: []string{"B"}}})
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))

	answers := []engine.FormAnswer{
		{Section: "A. Caller", QuestionNo: "1", Answer: "Yes"},
		{Section: "A. Caller", QuestionNo: "2", Answer: "Smith"},
	}
	_, err := f.svc.Stop(ctx, id, answers)
	require.NoError(t, err)

	res, err := f.svc.Result(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, engine.OverallScore{Score: 2, Total: 2, Percentage: 100}, res.Scores.Overall)
	assert.True(t, res.HasAnsweredAll, "excluded section B may stay unanswered")
	assert.True(t, res.IsCompetent)
	assert.Nil(t, res.SoftSkills)
	require.Len(t, res.Scores.Sections, 2)
	assert.False(t, res.Scores.Sections[1].ShowScore)
	assert.True(t, res.Scores.Sections[1].ShowAnswers)

	raw := "Empathy: 7/10, Patience: 9/10"
	require.NoError(t, repository.NewFeedbackRepository(f.db).Upsert(ctx, &model.SimulationFeedback{SimulationID: id, SoftSkills: &raw}))
	res, err = f.svc.Result(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, res.SoftSkills)
	require.Len(t, res.SoftSkills.Ratings, 2)
	assert.Equal(t, "Patience", res.SoftSkills.Ratings[1].Skill)
}

func TestResultNotCompetentWithZeroScore(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))

	res, err := f.svc.Result(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.Finished)
	assert.False(t, res.HasAnsweredAll)
	assert.False(t, res.IsCompetent)
}

func TestHistoryNeighbors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	levelID := f.seedLevel(t, nil)

	var ids []uint
	for i := 0; i < 3; i++ {
		id := f.start(t, 5, levelID)
		f.clock.Advance(time.Minute)
		_, err := f.svc.Stop(ctx, id, nil)
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
		ids = append(ids, id)
	}
	f.start(t, 5, levelID) // still running, not part of history

	hist, err := f.svc.History(ctx, ids[1])
	require.NoError(t, err)
	require.Len(t, hist.Attempts, 3)
	assert.Equal(t, ids[2], hist.Attempts[0].ID)
	require.NotNil(t, hist.Previous)
	require.NotNil(t, hist.Next)
	assert.Equal(t, ids[0], hist.Previous.ID)
	assert.Equal(t, ids[2], hist.Next.ID)

	hist, err = f.svc.History(ctx, ids[2])
	require.NoError(t, err)
	assert.Nil(t, hist.Next)
	assert.Equal(t, ids[1], hist.Previous.ID)
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t, nil)
	levelID := f.seedLevel(t, nil)
	for i := 0; i < 3; i++ {
		f.start(t, 2, levelID)
		f.clock.Advance(time.Minute)
	}

	page := repository.NewPage(1, 2, "", "", repository.AttemptPageOptions, "started_at", repository.SimulationSortColumns...)
	resp, err := f.svc.List(context.Background(), 2, page)
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, int64(3), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	assert.True(t, resp.Meta.HasNext)
	assert.False(t, resp.Meta.HasPrev)
	assert.True(t, resp.Items[0].StartedAt.After(*resp.Items[1].StartedAt))
}

func TestUpdateTranscriptAndGenerateSoftSkills(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))

	_, err := f.feedback.GenerateSoftSkills(ctx, id)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, f.rater.calls)

	require.NoError(t, f.svc.UpdateTranscript(ctx, id, "Caller: help\nAgent: I am here to help."))
	f.rater.out = "Empathy: 8/10, Communication: 6/10"
	data, err := f.feedback.GenerateSoftSkills(ctx, id)
	require.NoError(t, err)
	require.Len(t, data.Ratings, 2)
	assert.Equal(t, "Communication", data.Ratings[1].Skill)

	stored, err := f.feedback.SoftSkills(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestGenerateSoftSkillsRaterUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.start(t, 1, f.seedLevel(t, nil))
	require.NoError(t, f.svc.UpdateTranscript(ctx, id, "Agent: hello"))

	f.rater.err = ErrRaterUnavailable
	_, err := f.feedback.GenerateSoftSkills(ctx, id)
	assert.ErrorIs(t, err, ErrRaterUnavailable)

	stored, err := f.feedback.SoftSkills(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
