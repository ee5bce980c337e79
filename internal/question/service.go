package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/partyquiz/internal/game"
	"github.com/gokatarajesh/partyquiz/internal/question/external"
)

// Errors returned by external imports.
var (
	ErrUnknownProvider     = errors.New("unknown question provider")
	ErrProviderUnavailable = errors.New("question provider not configured")
)

const maxExternalAmount = 50

type opentdbProvider interface {
	Fetch(ctx context.Context, amount, category int, difficulty string) ([]external.OpenTDBQuestion, error)
}

type triviaProvider interface {
	Fetch(ctx context.Context, amount int, category, difficulty string) ([]external.TriviaAPIQuestion, error)
}

// ExternalRequest asks a provider for a batch of questions.
type ExternalRequest struct {
	Provider   string `json:"provider"`
	Amount     int    `json:"amount"`
	Category   string `json:"category,omitempty"`
	CategoryID int    `json:"category_id,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Service manages the question bank.
type Service struct {
	repo      Repository
	cache     BankCache
	opentdb   opentdbProvider
	triviaAPI triviaProvider
	logger    zerolog.Logger
}

var _ game.QuestionSource = (*Service)(nil)

// NewService builds the question service. cache and both providers may be nil.
func NewService(repo Repository, cache BankCache, opentdb opentdbProvider, trivia triviaProvider, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		opentdb:   opentdb,
		triviaAPI: trivia,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

// List returns the bank in order.
func (s *Service) List(ctx context.Context) ([]game.Question, error) {
	return s.repo.List(ctx)
}

// Get returns one question.
func (s *Service) Get(ctx context.Context, id string) (game.Question, error) {
	return s.repo.Get(ctx, id)
}

// Questions serves the bank to new sessions, through the cache when one is set.
func (s *Service) Questions(ctx context.Context) ([]game.Question, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx); err == nil && len(cached) > 0 {
			return cached, nil
		} else if err != nil {
			s.logger.Warn().Err(err).Msg("question cache read failed")
		}
	}

	qs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if s.cache != nil && len(qs) > 0 {
		if err := s.cache.Set(ctx, qs); err != nil {
			s.logger.Warn().Err(err).Msg("question cache write failed")
		}
	}
	return qs, nil
}

// Create validates and appends a question.
func (s *Service) Create(ctx context.Context, in Input) (game.Question, error) {
	q, err := in.Build(uuid.NewString())
	if err != nil {
		return game.Question{}, err
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return game.Question{}, fmt.Errorf("create question: %w", err)
	}
	s.invalidate(ctx)
	return q, nil
}

// Update applies a partial update to an existing question.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (game.Question, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return game.Question{}, err
	}
	updated, err := patch.Apply(current)
	if err != nil {
		return game.Question{}, err
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return game.Question{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a question.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Import appends every valid entry and reports the ones it skipped.
func (s *Service) Import(ctx context.Context, inputs []Input) (*ImportResult, error) {
	result := &ImportResult{Questions: []game.Question{}}
	for i, in := range inputs {
		q, err := in.Build(uuid.NewString())
		if err != nil {
			result.Skipped = append(result.Skipped, ImportError{Index: i, Reason: err.Error()})
			continue
		}
		result.Questions = append(result.Questions, q)
	}

	if len(result.Questions) > 0 {
		if err := s.repo.Create(ctx, result.Questions...); err != nil {
			return nil, fmt.Errorf("import questions: %w", err)
		}
		s.invalidate(ctx)
	}
	result.Imported = len(result.Questions)

	s.logger.Info().
		Int("imported", result.Imported).
		Int("skipped", len(result.Skipped)).
		Msg("questions imported")
	return result, nil
}

// Export returns the whole bank.
func (s *Service) Export(ctx context.Context) ([]game.Question, error) {
	return s.repo.List(ctx)
}

// ImportExternal pulls a batch from a trivia provider and imports it.
func (s *Service) ImportExternal(ctx context.Context, req ExternalRequest) (*ImportResult, error) {
	amount := req.Amount
	if amount <= 0 {
		amount = 10
	}
	if amount > maxExternalAmount {
		amount = maxExternalAmount
	}

	var inputs []Input
	switch req.Provider {
	case ProviderOpenTDB, "":
		if s.opentdb == nil {
			return nil, ErrProviderUnavailable
		}
		raw, err := s.opentdb.Fetch(ctx, amount, req.CategoryID, req.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("fetch opentdb: %w", err)
		}
		for _, q := range raw {
			if in, ok := normalizeOpenTDB(q); ok {
				inputs = append(inputs, in)
			}
		}
	case ProviderTriviaAPI:
		if s.triviaAPI == nil {
			return nil, ErrProviderUnavailable
		}
		raw, err := s.triviaAPI.Fetch(ctx, amount, req.Category, req.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("fetch triviaapi: %w", err)
		}
		for _, q := range raw {
			if in, ok := normalizeTriviaAPI(q); ok {
				inputs = append(inputs, in)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, req.Provider)
	}

	return s.Import(ctx, inputs)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("question cache invalidation failed")
	}
}
