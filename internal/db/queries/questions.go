package queries

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const questionColumns = `id, position, context, text, options, correct, category, time_limit, created_at, updated_at`

const listQuestions = `SELECT ` + questionColumns + ` FROM questions ORDER BY position`

func (q *Queries) ListQuestions(ctx context.Context) ([]Question, error) {
	rows, err := q.db.Query(ctx, listQuestions)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanQuestion)
}

const getQuestion = `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`

func (q *Queries) GetQuestion(ctx context.Context, id string) (Question, error) {
	rows, err := q.db.Query(ctx, getQuestion, id)
	if err != nil {
		return Question{}, err
	}
	return pgx.CollectExactlyOneRow(rows, scanQuestion)
}

const insertQuestion = `INSERT INTO questions (id, context, text, options, correct, category, time_limit)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

type InsertQuestionParams struct {
	ID        string
	Context   string
	Text      string
	Options   []string
	Correct   string
	Category  string
	TimeLimit int32
}

// InsertQuestions appends rows in one batch; position follows argument order.
func (q *Queries) InsertQuestions(ctx context.Context, params []InsertQuestionParams) error {
	batch := &pgx.Batch{}
	for _, p := range params {
		batch.Queue(insertQuestion, p.ID, p.Context, p.Text, p.Options, p.Correct, p.Category, p.TimeLimit)
	}
	results := q.db.SendBatch(ctx, batch)
	for i := range params {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	return results.Close()
}

const updateQuestion = `UPDATE questions
SET context = $2, text = $3, options = $4, correct = $5, category = $6, time_limit = $7, updated_at = now()
WHERE id = $1`

type UpdateQuestionParams = InsertQuestionParams

// UpdateQuestion returns the number of rows touched.
func (q *Queries) UpdateQuestion(ctx context.Context, p UpdateQuestionParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateQuestion, p.ID, p.Context, p.Text, p.Options, p.Correct, p.Category, p.TimeLimit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteQuestion = `DELETE FROM questions WHERE id = $1`

func (q *Queries) DeleteQuestion(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteQuestion, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanQuestion(row pgx.CollectableRow) (Question, error) {
	var r Question
	err := row.Scan(&r.ID, &r.Position, &r.Context, &r.Text, &r.Options, &r.Correct, &r.Category, &r.TimeLimit, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
