package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Logger struct {
	db *pgxpool.Pool
}

func NewLogger(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

type Entry struct {
	ActorUserID *uuid.UUID
	Action      string
	TargetType  string
	TargetID    *uuid.UUID
	IP          string
	UserAgent   string
	Metadata    map[string]any
}

// Record is a stored audit row.
type Record struct {
	ID          uuid.UUID
	ActorUserID *uuid.UUID
	Action      string
	TargetType  string
	TargetID    *uuid.UUID
	IP          string
	UserAgent   string
	Metadata    map[string]any
	At          time.Time
}

func (l *Logger) Log(ctx context.Context, e Entry) error {
	metadataJSON, err := json.Marshal(e.Metadata)
	if err != nil || e.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO audit_log (actor_user_id, action, target_type, target_id, ip, user_agent, metadata_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ActorUserID, e.Action, e.TargetType, e.TargetID, e.IP, e.UserAgent, metadataJSON)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

// ForTarget returns the newest entries about one object.
func (l *Logger) ForTarget(ctx context.Context, targetType string, targetID uuid.UUID, limit int) ([]Record, error) {
	rows, err := l.db.Query(ctx, `
		SELECT id, actor_user_id, action, target_type, target_id, ip, user_agent, metadata_json, at
		FROM audit_log
		WHERE target_type = $1 AND target_id = $2
		ORDER BY at DESC
		LIMIT $3
	`, targetType, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.ActorUserID, &r.Action, &r.TargetType, &r.TargetID,
			&r.IP, &r.UserAgent, &r.Metadata, &r.At); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const (
	ActionLoginSuccess = "login.success"
	ActionLoginFailed  = "login.failed"
	ActionLoginLimited = "login.rate_limited"
	ActionLogout       = "logout"

	ActionPromptCreate = "prompt.create"
	ActionPromptUpdate = "prompt.update"
	ActionPromptDelete = "prompt.delete"

	ActionSubscriptionSet = "subscription.set"
)

const (
	TargetUser         = "user"
	TargetPrompt       = "prompt"
	TargetSubscription = "subscription"
)
