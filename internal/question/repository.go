package question

import (
	"context"
	"errors"
	"sync"

	"github.com/gokatarajesh/partyquiz/internal/game"
)

// ErrNotFound is returned for an unknown question id.
var ErrNotFound = errors.New("question not found")

// Repository stores the ordered question bank.
type Repository interface {
	List(ctx context.Context) ([]game.Question, error)
	Get(ctx context.Context, id string) (game.Question, error)
	Create(ctx context.Context, qs ...game.Question) error
	Update(ctx context.Context, q game.Question) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps the bank in process memory, in insertion order.
type MemoryRepository struct {
	mu        sync.RWMutex
	questions []game.Question
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates a repository holding a copy of seed.
func NewMemoryRepository(seed []game.Question) *MemoryRepository {
	return &MemoryRepository{questions: append([]game.Question(nil), seed...)}
}

func (r *MemoryRepository) List(ctx context.Context) ([]game.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]game.Question{}, r.questions...), nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (game.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.questions[i], nil
	}
	return game.Question{}, ErrNotFound
}

func (r *MemoryRepository) Create(ctx context.Context, qs ...game.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append(r.questions, qs...)
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, q game.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(q.ID)
	if i < 0 {
		return ErrNotFound
	}
	r.questions[i] = q
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	r.questions = append(r.questions[:i], r.questions[i+1:]...)
	return nil
}

func (r *MemoryRepository) indexOf(id string) int {
	for i, q := range r.questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}
