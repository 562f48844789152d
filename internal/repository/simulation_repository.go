package repository

import (
	"context"
	"time"

	"github.com/lshigami/roleplay-sim/internal/engine"
	"github.com/lshigami/roleplay-sim/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SimulationSortColumns are the columns attempt listings may sort by.
var SimulationSortColumns = []string{"started_at", "ended_at", "created_at"}

const openSimulation = "ended_at IS NULL AND cancelled_at IS NULL"

type SimulationRepository interface {
	Create(ctx context.Context, sim *model.Simulation) error
	FindByID(ctx context.Context, id uint) (*model.Simulation, error)
	// AppendPause appends at to paused_at only if the stored pause/resume counts
	// still equal sim's and the simulation is open. It reports whether the row changed.
	AppendPause(ctx context.Context, sim *model.Simulation, at time.Time) (bool, error)
	AppendResume(ctx context.Context, sim *model.Simulation, at time.Time) (bool, error)
	ReplaceFormAnswers(ctx context.Context, id uint, answers []engine.FormAnswer) (bool, error)
	Finish(ctx context.Context, id uint, endedAt time.Time, answers []engine.FormAnswer, result *model.SimulationResult) (bool, error)
	// FinishWithStoredAnswers ends the simulation without touching form_answers,
	// only if they are still at the version read into sim.
	FinishWithStoredAnswers(ctx context.Context, sim *model.Simulation, endedAt time.Time, result *model.SimulationResult) (bool, error)
	Cancel(ctx context.Context, id uint, at time.Time) (bool, error)
	UpdateTranscript(ctx context.Context, id uint, transcript string) (bool, error)
	FindCompletedByUserAndLevel(ctx context.Context, userID, serviceLevelID uint) ([]model.Simulation, error)
	ListByUser(ctx context.Context, userID uint, page Page) ([]model.Simulation, int64, error)
}

type simulationRepository struct {
	db *gorm.DB
}

func NewSimulationRepository(db *gorm.DB) SimulationRepository {
	return &simulationRepository{db: db}
}

func (r *simulationRepository) Create(ctx context.Context, sim *model.Simulation) error {
	if sim.PausedAt == nil {
		sim.PausedAt = datatypes.JSONSlice[time.Time]{}
	}
	if sim.ResumedAt == nil {
		sim.ResumedAt = datatypes.JSONSlice[time.Time]{}
	}
	if sim.FormAnswers == nil {
		sim.FormAnswers = datatypes.JSONSlice[engine.FormAnswer]{}
	}
	return r.db.WithContext(ctx).Create(sim).Error
}

func (r *simulationRepository) FindByID(ctx context.Context, id uint) (*model.Simulation, error) {
	var sim model.Simulation
	if err := r.db.WithContext(ctx).First(&sim, id).Error; err != nil {
		return nil, notFound(err, "simulation", id)
	}
	return &sim, nil
}

func (r *simulationRepository) AppendPause(ctx context.Context, sim *model.Simulation, at time.Time) (bool, error) {
	paused := append(datatypes.JSONSlice[time.Time]{}, sim.PausedAt...)
	paused = append(paused, at)

	res := r.versioned(ctx, sim).
		Select("paused_at", "pause_count").
		Updates(&model.Simulation{PausedAt: paused, PauseCount: sim.PauseCount + 1})
	if res.Error != nil || res.RowsAffected == 0 {
		return false, res.Error
	}
	sim.PausedAt = paused
	sim.PauseCount++
	return true, nil
}

func (r *simulationRepository) AppendResume(ctx context.Context, sim *model.Simulation, at time.Time) (bool, error) {
	resumed := append(datatypes.JSONSlice[time.Time]{}, sim.ResumedAt...)
	resumed = append(resumed, at)

	res := r.versioned(ctx, sim).
		Select("resumed_at", "resume_count").
		Updates(&model.Simulation{ResumedAt: resumed, ResumeCount: sim.ResumeCount + 1})
	if res.Error != nil || res.RowsAffected == 0 {
		return false, res.Error
	}
	sim.ResumedAt = resumed
	sim.ResumeCount++
	return true, nil
}

// versioned scopes an update to the pause/resume version read into sim.
func (r *simulationRepository) versioned(ctx context.Context, sim *model.Simulation) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Simulation{}).
		Where("id = ? AND pause_count = ? AND resume_count = ?", sim.ID, sim.PauseCount, sim.ResumeCount).
		Where(openSimulation)
}

func (r *simulationRepository) ReplaceFormAnswers(ctx context.Context, id uint, answers []engine.FormAnswer) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Simulation{}).
		Where("id = ?", id).
		Where(openSimulation).
		Updates(map[string]interface{}{
			"form_answers":    answersColumn(answers),
			"answers_version": gorm.Expr("answers_version + 1"),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *simulationRepository) Finish(ctx context.Context, id uint, endedAt time.Time, answers []engine.FormAnswer, result *model.SimulationResult) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Simulation{}).
		Where("id = ?", id).
		Where(openSimulation).
		Select("ended_at", "form_answers", "simulation_result").
		Updates(&model.Simulation{EndedAt: &endedAt, FormAnswers: answersColumn(answers), SimulationResult: result})
	return res.RowsAffected > 0, res.Error
}

func (r *simulationRepository) FinishWithStoredAnswers(ctx context.Context, sim *model.Simulation, endedAt time.Time, result *model.SimulationResult) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Simulation{}).
		Where("id = ? AND answers_version = ?", sim.ID, sim.AnswersVersion).
		Where(openSimulation).
		Select("ended_at", "simulation_result").
		Updates(&model.Simulation{EndedAt: &endedAt, SimulationResult: result})
	return res.RowsAffected > 0, res.Error
}

func (r *simulationRepository) Cancel(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Simulation{}).
		Where("id = ?", id).
		Where(openSimulation).
		Select("cancelled_at").
		Updates(&model.Simulation{CancelledAt: &at})
	return res.RowsAffected > 0, res.Error
}

func (r *simulationRepository) UpdateTranscript(ctx context.Context, id uint, transcript string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Simulation{}).
		Where("id = ?", id).
		Where(openSimulation).
		Select("transcript").
		Updates(&model.Simulation{Transcript: transcript})
	return res.RowsAffected > 0, res.Error
}

func (r *simulationRepository) FindCompletedByUserAndLevel(ctx context.Context, userID, serviceLevelID uint) ([]model.Simulation, error) {
	var sims []model.Simulation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND service_level_id = ?", userID, serviceLevelID).
		Where("ended_at IS NOT NULL").
		Order("started_at DESC").
		Find(&sims).Error
	return sims, err
}

func (r *simulationRepository) ListByUser(ctx context.Context, userID uint, page Page) ([]model.Simulation, int64, error) {
	var (
		sims  []model.Simulation
		total int64
	)
	query := r.db.WithContext(ctx).Model(&model.Simulation{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.
		Order(page.OrderClause()).
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&sims).Error
	return sims, total, err
}

func answersColumn(answers []engine.FormAnswer) datatypes.JSONSlice[engine.FormAnswer] {
	if answers == nil {
		return datatypes.JSONSlice[engine.FormAnswer]{}
	}
	return datatypes.JSONSlice[engine.FormAnswer](answers)
}
