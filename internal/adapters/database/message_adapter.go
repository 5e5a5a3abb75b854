package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

type messageRow struct {
	ID           string    `db:"id"`
	Speaker      string    `db:"speaker"`
	Content      string    `db:"content"`
	MessageType  string    `db:"message_type"`
	QuestionCode string    `db:"question_code"`
	Phase        string    `db:"phase"`
	CreatedAt    time.Time `db:"created_at"`
}

// MessageAdapter is the append-only transcript table
type MessageAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewMessageAdapter creates a new message adapter
func NewMessageAdapter(client *postgres.Client) *MessageAdapter {
	return &MessageAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.MessageRepository = (*MessageAdapter)(nil)

// appendMessage inserts one transcript row through exec, which is the
// transaction of the turn being committed
func (a *MessageAdapter) appendMessage(ctx context.Context, exec sqlx.ExecerContext, sessionID string, message *entities.ConversationMessage) error {
	if message == nil {
		return errors.New("message event without a message")
	}
	id := message.ID
	if id == "" {
		id = uuid.NewString()
	}

	query, args, err := a.db.Insert(messagesTable).Rows(goqu.Record{
		"id":            id,
		"session_id":    sessionID,
		"speaker":       string(message.Speaker),
		"content":       message.Content,
		"message_type":  string(message.MessageType),
		"question_code": message.QuestionCode,
		"phase":         string(message.Phase),
		"created_at":    message.Timestamp,
	}).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build message insert query: %w", err)
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListMessages returns the transcript in append order
func (a *MessageAdapter) ListMessages(ctx context.Context, sessionID string) ([]entities.ConversationMessage, error) {
	query, args, err := a.db.From(messagesTable).
		Select("id", "speaker", "content", "message_type", "question_code", "phase", "created_at").
		Where(goqu.Ex{"session_id": sessionID}).
		Order(goqu.I("seq").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build message query", err)
	}

	var rows []messageRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list messages", err)
	}

	messages := make([]entities.ConversationMessage, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, entities.ConversationMessage{
			ID:           r.ID,
			Timestamp:    r.CreatedAt,
			Speaker:      entities.Speaker(r.Speaker),
			Content:      r.Content,
			MessageType:  entities.MessageType(r.MessageType),
			QuestionCode: r.QuestionCode,
			Phase:        entities.Phase(r.Phase),
		})
	}
	return messages, nil
}
