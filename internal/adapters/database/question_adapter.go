package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

const (
	questionsTable     = "questions"
	answerOptionsTable = "answer_options"
)

var questionColumns = []interface{}{
	"code", "domain", "topic", "sequence", "assessment_type", "text", "description",
}

type answerOptionRow struct {
	QuestionCode string `db:"question_code"`
	entities.AnswerOption
}

// QuestionAdapter serves the catalog from Postgres
type QuestionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewQuestionAdapter creates a new question adapter
func NewQuestionAdapter(client *postgres.Client) *QuestionAdapter {
	return &QuestionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var (
	_ repositories.QuestionRepository = (*QuestionAdapter)(nil)
	_ repositories.QuestionWriter     = (*QuestionAdapter)(nil)
)

// ListByType returns the questions of one scale ordered by sequence
func (a *QuestionAdapter) ListByType(ctx context.Context, assessmentType entities.AssessmentType) ([]*entities.Question, error) {
	query, args, err := a.db.From(questionsTable).Select(questionColumns...).
		Where(goqu.Ex{"assessment_type": string(assessmentType)}).
		Order(goqu.I("sequence").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build question query", err)
	}

	var questions []*entities.Question
	if err := a.client.DBX().SelectContext(ctx, &questions, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list questions", err)
	}
	if len(questions) == 0 {
		return questions, nil
	}

	codes := make([]string, 0, len(questions))
	for _, q := range questions {
		codes = append(codes, q.Code)
	}
	options, err := a.answerOptions(ctx, codes)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		q.Answers = options[q.Code]
	}
	return questions, nil
}

// GetByCode retrieves a question by its stable code
func (a *QuestionAdapter) GetByCode(ctx context.Context, code string) (*entities.Question, error) {
	query, args, err := a.db.From(questionsTable).Select(questionColumns...).
		Where(goqu.Ex{"code": code}).Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build question query", err)
	}

	var question entities.Question
	if err := a.client.DBX().GetContext(ctx, &question, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("question %s not found", code))
		}
		return nil, apperrors.NewInternalError("failed to get question", err)
	}

	options, err := a.answerOptions(ctx, []string{code})
	if err != nil {
		return nil, err
	}
	question.Answers = options[code]
	return &question, nil
}

func (a *QuestionAdapter) answerOptions(ctx context.Context, codes []string) (map[string][]entities.AnswerOption, error) {
	query, args, err := a.db.From(answerOptionsTable).
		Select("question_code", "answer_order", "text", "clinical_score").
		Where(goqu.Ex{"question_code": codes}).
		Order(goqu.I("question_code").Asc(), goqu.I("answer_order").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build answer option query", err)
	}

	var rows []answerOptionRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list answer options", err)
	}

	out := make(map[string][]entities.AnswerOption, len(codes))
	for _, r := range rows {
		out[r.QuestionCode] = append(out[r.QuestionCode], r.AnswerOption)
	}
	return out, nil
}

// Upsert inserts or replaces a question and its answer options
func (a *QuestionAdapter) Upsert(ctx context.Context, question *entities.Question) error {
	record := goqu.Record{
		"code":            question.Code,
		"assessment_type": string(question.AssessmentType),
		"domain":          question.Domain,
		"topic":           question.Topic,
		"sequence":        question.Sequence,
		"text":            question.Text,
		"description":     question.Description,
		"updated_at":      time.Now().UTC(),
	}
	update := goqu.Record{}
	for column := range record {
		if column != "code" {
			update[column] = goqu.L("EXCLUDED." + column)
		}
	}

	upsert, upsertArgs, err := a.db.Insert(questionsTable).Rows(record).
		OnConflict(goqu.DoUpdate("code", update)).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build question upsert query", err)
	}
	clearQuery, clearArgs, err := a.db.Delete(answerOptionsTable).
		Where(goqu.Ex{"question_code": question.Code}).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build answer option delete query", err)
	}

	err = a.client.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, upsert, upsertArgs...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
			return err
		}
		if len(question.Answers) == 0 {
			return nil
		}

		rows := make([]interface{}, 0, len(question.Answers))
		for _, opt := range question.Answers {
			rows = append(rows, goqu.Record{
				"question_code":  question.Code,
				"answer_order":   opt.Order,
				"text":           opt.Text,
				"clinical_score": opt.ClinicalScore,
			})
		}
		insert, insertArgs, err := a.db.Insert(answerOptionsTable).Rows(rows...).Prepared(true).ToSQL()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insert, insertArgs...)
		return err
	})
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to upsert question %s", question.Code), err)
	}
	return nil
}
