package database

import (
	"context"
	"database/sql"
	"encoding/json"
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

// ScoreAdapter stores computed scale totals
type ScoreAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewScoreAdapter creates a new score adapter
func NewScoreAdapter(client *postgres.Client) *ScoreAdapter {
	return &ScoreAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.ScoreRepository = (*ScoreAdapter)(nil)

// saveScores upserts the totals of a completed session through exec. The
// headline columns are kept for reporting queries; the full aggregate is
// stored as JSON.
func (a *ScoreAdapter) saveScores(ctx context.Context, exec sqlx.ExecerContext, sessionID string, scores *entities.AssessmentScores, calculatedAt time.Time) error {
	if scores == nil {
		return errors.New("completion event without scores")
	}
	payload, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}

	record := goqu.Record{
		"session_id":         sessionID,
		"iadl_total":         scores.IADL.Total,
		"iadl_band":          string(scores.IADL.Interpretation),
		"adl_total":          scores.ADL.Total,
		"adl_band":           string(scores.ADL.Interpretation),
		"overall_confidence": scores.OverallConfidence,
		"scores":             string(payload),
		"calculated_at":      calculatedAt,
	}
	update := goqu.Record{}
	for column := range record {
		if column != "session_id" {
			update[column] = goqu.L("EXCLUDED." + column)
		}
	}

	query, args, err := a.db.Insert(scoresTable).Rows(record).
		OnConflict(goqu.DoUpdate("session_id", update)).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build score upsert query: %w", err)
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save scores: %w", err)
	}
	return nil
}

// GetScores returns stored totals, or NOT_FOUND before completion
func (a *ScoreAdapter) GetScores(ctx context.Context, sessionID string) (*entities.AssessmentScores, error) {
	query, args, err := a.db.From(scoresTable).Select("scores").
		Where(goqu.Ex{"session_id": sessionID}).Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build score query", err)
	}

	var payload []byte
	if err := a.client.DBX().GetContext(ctx, &payload, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("scores for session " + sessionID + " not found")
		}
		return nil, apperrors.NewInternalError("failed to get scores", err)
	}

	var scores entities.AssessmentScores
	if err := json.Unmarshal(payload, &scores); err != nil {
		return nil, apperrors.NewInternalError("failed to decode scores", err)
	}
	return &scores, nil
}
