package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"
	"app/internal/stage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ApplicationPatch describes a partial update; nil fields are untouched.
type ApplicationPatch struct {
	Stage    *string
	NoteText *string
}

// BulkStageUpdate moves one application in a bulk_update webhook action.
type BulkStageUpdate struct {
	ApplicationID int64  `json:"application_id" validate:"required"`
	Stage         string `json:"stage" validate:"required"`
}

// ApplicationService tracks job applications through the pipeline.
type ApplicationService interface {
	// Create tracks a job for a user. At most one application exists per
	// (user, job); a second create returns ErrDuplicateApplication.
	Create(ctx context.Context, userID, jobID string) (*model.Application, error)
	Get(ctx context.Context, id int64, userID string) (*model.Application, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Application, error)
	Patch(ctx context.Context, id int64, userID string, patch ApplicationPatch) (*model.Application, error)
	Delete(ctx context.Context, id int64, userID string) error

	// Webhook actions from the workflow engine.
	UpdateStage(ctx context.Context, id int64, userID, newStage string) (*model.Application, error)
	AddNote(ctx context.Context, id int64, userID, text string) (*model.Application, error)
	SetInterview(ctx context.Context, id int64, userID string, at time.Time) (*model.Application, error)
	ClearInterview(ctx context.Context, id int64, userID string) (*model.Application, error)
	BulkUpdate(ctx context.Context, userID string, updates []BulkStageUpdate) (int, error)
}

type applicationService struct {
	appRepo repository.ApplicationRepository
	jobRepo repository.JobRepository
	logger  zerolog.Logger
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(appRepo repository.ApplicationRepository, jobRepo repository.JobRepository, logger zerolog.Logger) ApplicationService {
	return &applicationService{
		appRepo: appRepo,
		jobRepo: jobRepo,
		logger:  logger.With().Str("service", "ApplicationService").Logger(),
	}
}

func (s *applicationService) Create(ctx context.Context, userID, jobID string) (*model.Application, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	app := &model.Application{
		UserID:    userID,
		JobID:     job.ID,
		Title:     job.Title,
		Company:   job.Company,
		Location:  job.Location,
		Stage:     string(stage.Applied),
		Notes:     []model.Note{},
		AppliedAt: &now,
	}
	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Str("job_id", jobID).Int64("application_id", app.ID).Msg("Application created")
	return app, nil
}

func (s *applicationService) Get(ctx context.Context, id int64, userID string) (*model.Application, error) {
	return s.appRepo.GetByID(ctx, id, userID)
}

func (s *applicationService) List(ctx context.Context, userID string, limit, offset int) ([]model.Application, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.appRepo.ListByUser(ctx, userID, limit, offset)
}

func (s *applicationService) Patch(ctx context.Context, id int64, userID string, patch ApplicationPatch) (*model.Application, error) {
	app, err := s.appRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if patch.Stage != nil {
		if err := s.applyStage(app, *patch.Stage); err != nil {
			return nil, err
		}
	}
	if patch.NoteText != nil && *patch.NoteText != "" {
		appendNote(app, *patch.NoteText)
	}

	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) Delete(ctx context.Context, id int64, userID string) error {
	return s.appRepo.Delete(ctx, id, userID)
}

func (s *applicationService) UpdateStage(ctx context.Context, id int64, userID, newStage string) (*model.Application, error) {
	app, err := s.appRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.applyStage(app, newStage); err != nil {
		return nil, err
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) AddNote(ctx context.Context, id int64, userID, text string) (*model.Application, error) {
	app, err := s.appRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	appendNote(app, text)
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) SetInterview(ctx context.Context, id int64, userID string, at time.Time) (*model.Application, error) {
	app, err := s.appRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	app.InterviewAt = &at
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) ClearInterview(ctx context.Context, id int64, userID string) (*model.Application, error) {
	app, err := s.appRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	app.InterviewAt = nil
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// BulkUpdate applies stage moves one row at a time and stops on the first
// error, returning how many rows were updated before it.
func (s *applicationService) BulkUpdate(ctx context.Context, userID string, updates []BulkStageUpdate) (int, error) {
	for i, u := range updates {
		if _, err := s.UpdateStage(ctx, u.ApplicationID, userID, u.Stage); err != nil {
			return i, fmt.Errorf("bulk update stopped at application %d: %w", u.ApplicationID, err)
		}
	}
	return len(updates), nil
}

func (s *applicationService) applyStage(app *model.Application, newStage string) error {
	st, err := stage.Parse(newStage)
	if err != nil {
		return err
	}
	app.Stage = string(st)

	dates := stage.Dates{
		AppliedAt:   app.AppliedAt,
		InterviewAt: app.InterviewAt,
		OfferAt:     app.OfferAt,
		ResolvedAt:  app.ResolvedAt,
	}
	stage.Touch(&dates, st, time.Now())
	app.AppliedAt = dates.AppliedAt
	app.InterviewAt = dates.InterviewAt
	app.OfferAt = dates.OfferAt
	app.ResolvedAt = dates.ResolvedAt
	return nil
}

func appendNote(app *model.Application, text string) {
	app.Notes = append(app.Notes, model.Note{
		ID:   uuid.NewString(),
		Text: text,
		Date: time.Now(),
	})
}
