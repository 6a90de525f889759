// Package service contains business logic implementations.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/ai"
	"github.com/jkindrix/draftwise/internal/archive"
	"github.com/jkindrix/draftwise/internal/clock"
	"github.com/jkindrix/draftwise/internal/domain"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
	"github.com/jkindrix/draftwise/internal/metrics"
	"github.com/jkindrix/draftwise/internal/sanitize"
	"github.com/jkindrix/draftwise/internal/validation"
)

// Generation modes, used as a metrics label.
const (
	ModeWizard = "wizard"
	ModeForm   = "form"
)

// ContentGenerator produces final content from collected answers.
type ContentGenerator interface {
	Generate(ctx context.Context, req ai.GenerationRequest) (string, error)
}

// ScheduleSource resolves the question schedule of a content type.
type ScheduleSource interface {
	Get(ct domain.ContentType) (*domain.Schedule, error)
}

// Limiter caps content generation. *ratelimit.GenerationLimiter satisfies it.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// GenerateInput is one content generation request.
type GenerateInput struct {
	Owner       string
	ContentType domain.ContentType
	Tone        domain.Tone
	WordLimit   int
	Answers     domain.AnswerSet
	// Mode is ModeWizard or ModeForm. Form submissions are checked
	// against the full schedule.
	Mode string
}

// GenerationService generates, persists and refines content.
type GenerationService struct {
	repo      domain.GenerationRepository
	generator ContentGenerator
	schedules ScheduleSource
	limiter   Limiter
	archiver  archive.Archiver
	logger    *zap.Logger
	metrics   *metrics.Metrics
	events    *metrics.BusinessEventLogger
	sanitizer *sanitize.Sanitizer
	clock     clock.Clock
}

// NewGenerationService creates a new GenerationService. limiter, archiver,
// metrics and events may be nil.
func NewGenerationService(
	repo domain.GenerationRepository,
	generator ContentGenerator,
	schedules ScheduleSource,
	limiter Limiter,
	archiver archive.Archiver,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *GenerationService {
	if archiver == nil {
		archiver = archive.Nop{}
	}
	return &GenerationService{
		repo:      repo,
		generator: generator,
		schedules: schedules,
		limiter:   limiter,
		archiver:  archiver,
		logger:    logger.Named("generation"),
		metrics:   m,
		events:    events,
		sanitizer: sanitize.NewDefault(),
		clock:     clock.New(),
	}
}

// SetClock replaces the time source, for tests.
func (s *GenerationService) SetClock(c clock.Clock) {
	s.clock = c
}

// Generate validates the request, calls the content provider, and stores the
// result. Archive failures are logged and never fail the generation.
func (s *GenerationService) Generate(ctx context.Context, in GenerateInput) (*domain.Generation, error) {
	const op = "generation.Generate"

	sched, err := s.schedules.Get(in.ContentType)
	if err != nil {
		return nil, mapScheduleError(string(in.ContentType), err)
	}

	params := validation.NormalizeGenerationParams(validation.GenerationParams{Tone: in.Tone, WordLimit: in.WordLimit})
	if errs := validation.ValidateGenerationParams(params); errs.HasErrors() {
		return nil, validationError(errs)
	}
	if in.Mode == ModeForm {
		if errs := validation.ValidateForm(sched, in.Answers); errs.HasErrors() {
			return nil, validationError(errs)
		}
	} else if !in.Answers.CompleteFor(sched) {
		return nil, apperrors.ValidationFailed("answers are incomplete for " + string(in.ContentType))
	}
	if in.Mode == "" {
		in.Mode = ModeWizard
	}

	release, err := s.acquire(ctx, in.Owner)
	if err != nil {
		return nil, err
	}
	defer release()

	s.logger.Info("generating content",
		zap.String("content_type", string(in.ContentType)),
		zap.String("mode", in.Mode),
		zap.String("tone", string(params.Tone)),
		zap.Int("word_limit", params.WordLimit),
	)
	s.logger.Debug("generation input", zap.Any("answers", s.sanitizer.Answers(in.Answers)))

	start := s.clock.Now()
	content, err := s.generator.Generate(ctx, ai.GenerationRequest{
		ContentType: in.ContentType,
		Tone:        params.Tone,
		WordLimit:   params.WordLimit,
		InputData:   in.Answers,
	})
	duration := s.clock.Since(start)
	if err != nil {
		err = mapAIError(op, err)
		s.record(ctx, uuid.Nil, in.ContentType, in.Mode, duration, err)
		return nil, err
	}

	gen := domain.NewGeneration(in.Owner, in.ContentType, params.Tone, params.WordLimit, in.Answers, content, s.clock.NowUTC())
	if err := s.repo.Create(ctx, gen); err != nil {
		err = mapRepoError(op, err)
		s.record(ctx, gen.ID, in.ContentType, in.Mode, duration, err)
		return nil, err
	}
	s.record(ctx, gen.ID, in.ContentType, in.Mode, duration, nil)
	s.archiveDocument(ctx, gen)

	s.logger.Info("content generated",
		zap.String("generation_id", gen.ID.String()),
		zap.Int("content_chars", len(content)),
		zap.Duration("duration", duration),
	)
	return gen, nil
}

// Refine regenerates a stored generation following the user's instructions.
func (s *GenerationService) Refine(ctx context.Context, owner string, id uuid.UUID, prompt string) (*domain.Generation, error) {
	const op = "generation.Refine"

	if errs := validation.ValidateRefinement(prompt); errs.HasErrors() {
		return nil, validationError(errs)
	}
	gen, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, owner)
	if err != nil {
		return nil, err
	}
	defer release()

	start := s.clock.Now()
	content, err := s.generator.Generate(ctx, ai.GenerationRequest{
		ContentType:      gen.ContentType,
		Tone:             gen.Tone,
		WordLimit:        gen.WordLimit,
		InputData:        gen.InputData,
		RefinementPrompt: prompt,
		ExistingContent:  gen.GeneratedContent,
	})
	if err != nil {
		return nil, mapAIError(op, err)
	}

	gen.Revise(content, s.clock.NowUTC())
	if err := s.repo.UpdateContent(ctx, gen); err != nil {
		return nil, mapRepoError(op, err)
	}
	s.archiveDocument(ctx, gen)

	if s.events != nil {
		s.events.GenerationRefined(ctx, gen.ID, s.clock.Since(start))
	}
	return gen, nil
}

// Get returns a generation owned by owner. Generations of other owners are
// reported as not found.
func (s *GenerationService) Get(ctx context.Context, owner string, id uuid.UUID) (*domain.Generation, error) {
	gen, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("generation.Get", err)
	}
	if gen.UserID != ownerOrAnonymous(owner) {
		return nil, apperrors.NotFound("generation")
	}
	return gen, nil
}

// List returns a page of the owner's generations, newest first, and the
// owner's total count.
func (s *GenerationService) List(ctx context.Context, owner string, limit, offset int) ([]*domain.Generation, int, error) {
	const op = "generation.List"
	owner = ownerOrAnonymous(owner)

	gens, err := s.repo.ListByUser(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, mapRepoError(op, err)
	}
	total, err := s.repo.CountByUser(ctx, owner)
	if err != nil {
		return nil, 0, mapRepoError(op, err)
	}
	return gens, total, nil
}

// Delete removes a generation and its archived document.
func (s *GenerationService) Delete(ctx context.Context, owner string, id uuid.UUID) error {
	gen, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, gen.ID); err != nil {
		return mapRepoError("generation.Delete", err)
	}
	if err := s.archiver.Delete(ctx, gen.UserID, gen.ID); err != nil {
		s.logger.Warn("failed to delete archived document",
			zap.String("generation_id", gen.ID.String()),
			zap.Error(err),
		)
	}
	if s.events != nil {
		s.events.GenerationDeleted(ctx, gen.ID, gen.UserID)
	}
	return nil
}

// acquire takes a limiter slot and returns its release func.
func (s *GenerationService) acquire(ctx context.Context, owner string) (func(), error) {
	if s.limiter == nil {
		return func() {}, nil
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		if s.events != nil {
			s.events.RateLimitExceeded(ctx, "generation", ownerOrAnonymous(owner))
		}
		if isRateLimited(err) {
			return nil, apperrors.Wrap(err, "generation.acquire", apperrors.CodeRateLimited,
				"too many generation requests, please try again later")
		}
		return nil, fmt.Errorf("failed to acquire generation slot: %w", err)
	}
	return s.limiter.Release, nil
}

func (s *GenerationService) archiveDocument(ctx context.Context, gen *domain.Generation) {
	if err := s.archiver.Put(ctx, gen); err != nil {
		s.logger.Warn("failed to archive generation",
			zap.String("generation_id", gen.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *GenerationService) record(ctx context.Context, id uuid.UUID, ct domain.ContentType, mode string, d time.Duration, err error) {
	if s.metrics != nil {
		s.metrics.RecordGeneration(ct, mode, err == nil, d)
	}
	if s.events != nil {
		s.events.GenerationCreated(ctx, id, ct, mode, d, err)
	}
}

func ownerOrAnonymous(owner string) string {
	if owner == "" {
		return domain.AnonymousOwner
	}
	return owner
}
