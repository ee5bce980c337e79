package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/partyquiz/internal/db/queries"
	"github.com/gokatarajesh/partyquiz/internal/game"
	"github.com/gokatarajesh/partyquiz/internal/question"
)

type questionStore interface {
	ListQuestions(ctx context.Context) ([]queries.Question, error)
	GetQuestion(ctx context.Context, id string) (queries.Question, error)
	InsertQuestions(ctx context.Context, params []queries.InsertQuestionParams) error
	UpdateQuestion(ctx context.Context, params queries.UpdateQuestionParams) (int64, error)
	DeleteQuestion(ctx context.Context, id string) (int64, error)
}

// QuestionRepository keeps the question bank in Postgres.
type QuestionRepository struct {
	store questionStore
}

var _ question.Repository = (*QuestionRepository)(nil)

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// List returns the bank in insertion order.
func (r *QuestionRepository) List(ctx context.Context) ([]game.Question, error) {
	rows, err := r.store.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]game.Question, 0, len(rows))
	for _, row := range rows {
		q, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (r *QuestionRepository) Get(ctx context.Context, id string) (game.Question, error) {
	row, err := r.store.GetQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return game.Question{}, question.ErrNotFound
		}
		return game.Question{}, fmt.Errorf("get question: %w", err)
	}
	return fromRow(row)
}

func (r *QuestionRepository) Create(ctx context.Context, qs ...game.Question) error {
	if len(qs) == 0 {
		return nil
	}
	params := make([]queries.InsertQuestionParams, len(qs))
	for i, q := range qs {
		params[i] = toParams(q)
	}
	return r.store.InsertQuestions(ctx, params)
}

func (r *QuestionRepository) Update(ctx context.Context, q game.Question) error {
	n, err := r.store.UpdateQuestion(ctx, toParams(q))
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if n == 0 {
		return question.ErrNotFound
	}
	return nil
}

func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	n, err := r.store.DeleteQuestion(ctx, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n == 0 {
		return question.ErrNotFound
	}
	return nil
}

func toParams(q game.Question) queries.InsertQuestionParams {
	return queries.InsertQuestionParams{
		ID:        q.ID,
		Context:   q.Context,
		Text:      q.Text,
		Options:   q.Options[:],
		Correct:   string(q.Correct),
		Category:  q.Category,
		TimeLimit: int32(q.TimeLimit),
	}
}

func fromRow(row queries.Question) (game.Question, error) {
	if len(row.Options) != len(game.Options) {
		return game.Question{}, fmt.Errorf("question %s: stored %d options", row.ID, len(row.Options))
	}
	q := game.Question{
		ID:        row.ID,
		Context:   row.Context,
		Text:      row.Text,
		Correct:   game.Option(row.Correct),
		Category:  row.Category,
		TimeLimit: int(row.TimeLimit),
	}
	copy(q.Options[:], row.Options)
	return q, nil
}
