package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/carepath/internal/security"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate  OperationType = "CREATE"
	OperationSubmit  OperationType = "SUBMIT"
	OperationRestart OperationType = "RESTART"
	OperationExpire  OperationType = "EXPIRE"
)

// ResourceType represents the type of resource being recorded
type ResourceType string

const (
	ResourceSession    ResourceType = "questionnaire_session"
	ResourceSubmission ResourceType = "triage_submission"
)

// AuditLog represents an audit log entry
type AuditLog struct {
	ID             int64
	SessionID      string
	OperationType  OperationType
	ResourceType   ResourceType
	ResourceID     string
	Timestamp      time.Time
	IPAddress      string
	UserAgent      string
	AdditionalData map[string]interface{}
}

// Schema creates the audit table when it does not exist
const Schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id              BIGSERIAL PRIMARY KEY,
	session_id      TEXT        NOT NULL,
	operation_type  TEXT        NOT NULL,
	resource_type   TEXT        NOT NULL,
	resource_id     TEXT        NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL,
	ip_address      TEXT        NOT NULL DEFAULT '',
	user_agent      TEXT        NOT NULL DEFAULT '',
	additional_data JSONB
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_session ON audit_logs (session_id, timestamp DESC);
`

// Logger handles audit logging. With a nil pool entries only go to the
// structured logger.
type Logger struct {
	db        *pgxpool.Pool
	encryptor *security.Encryptor
	logger    *zap.Logger
}

// NewLogger creates a new audit logger
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// WithEncryptor seals submitted answers before they are stored
func (l *Logger) WithEncryptor(e *security.Encryptor) *Logger {
	l.encryptor = e
	return l
}

// Persistent reports whether entries are written to the database
func (l *Logger) Persistent() bool {
	return l.db != nil
}

// EnsureSchema creates the audit table
func (l *Logger) EnsureSchema(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	if _, err := l.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// Log creates an audit log entry
func (l *Logger) Log(ctx context.Context, entry AuditLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.IPAddress == "" && entry.UserAgent == "" {
		entry.IPAddress, entry.UserAgent = ClientFromContext(ctx)
	}

	l.logger.Info("Audit log entry",
		zap.String("session_id", entry.SessionID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("ip_address", entry.IPAddress),
	)

	if l.db == nil {
		return nil
	}

	query := `
		INSERT INTO audit_logs (
			session_id, operation_type, resource_type, resource_id,
			timestamp, ip_address, user_agent, additional_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := l.db.Exec(ctx, query,
		entry.SessionID,
		string(entry.OperationType),
		string(entry.ResourceType),
		entry.ResourceID,
		entry.Timestamp,
		entry.IPAddress,
		entry.UserAgent,
		entry.AdditionalData,
	)
	if err != nil {
		l.logger.Error("Failed to write audit log to database",
			zap.Error(err),
			zap.String("session_id", entry.SessionID),
			zap.String("operation", string(entry.OperationType)),
		)
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}

// LogSessionStarted records a new questionnaire session
func (l *Logger) LogSessionStarted(ctx context.Context, sessionID string) error {
	return l.Log(ctx, AuditLog{
		SessionID:     sessionID,
		OperationType: OperationCreate,
		ResourceType:  ResourceSession,
		ResourceID:    sessionID,
	})
}

// LogSessionRestarted records a restart that discarded all answers
func (l *Logger) LogSessionRestarted(ctx context.Context, sessionID string) error {
	return l.Log(ctx, AuditLog{
		SessionID:     sessionID,
		OperationType: OperationRestart,
		ResourceType:  ResourceSession,
		ResourceID:    sessionID,
	})
}

// LogSessionsExpired records sessions dropped by the sweeper
func (l *Logger) LogSessionsExpired(ctx context.Context, sessionIDs []string) error {
	for _, id := range sessionIDs {
		if err := l.Log(ctx, AuditLog{
			SessionID:     id,
			OperationType: OperationExpire,
			ResourceType:  ResourceSession,
			ResourceID:    id,
		}); err != nil {
			return err
		}
	}
	return nil
}

// LogSubmission records a classified submission with its payload and category.
// With an encryptor the payload is stored sealed under "sealed_payload".
func (l *Logger) LogSubmission(ctx context.Context, sessionID, submissionID string, payload interface{}, category string) error {
	data := map[string]interface{}{"category": category}

	if l.encryptor != nil {
		sealed, err := l.encryptor.SealJSON(payload)
		if err != nil {
			return fmt.Errorf("failed to seal submission payload: %w", err)
		}
		data["sealed_payload"] = sealed
	} else {
		data["payload"] = payload
	}

	return l.Log(ctx, AuditLog{
		SessionID:      sessionID,
		OperationType:  OperationSubmit,
		ResourceType:   ResourceSubmission,
		ResourceID:     submissionID,
		AdditionalData: data,
	})
}

// SubmissionPayload decodes the payload of a SUBMIT entry into out, opening
// it when it was stored sealed
func (l *Logger) SubmissionPayload(entry AuditLog, out interface{}) error {
	if sealed, ok := entry.AdditionalData["sealed_payload"].(string); ok {
		if l.encryptor == nil {
			return errors.New("submission payload is sealed and no encryptor is configured")
		}
		return l.encryptor.OpenJSON(sealed, out)
	}

	raw, ok := entry.AdditionalData["payload"]
	if !ok {
		return fmt.Errorf("audit entry %d has no submission payload", entry.ID)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to re-encode payload: %w", err)
	}
	return json.Unmarshal(data, out)
}

// GetAuditLogs retrieves audit logs for a session, newest first
func (l *Logger) GetAuditLogs(ctx context.Context, sessionID string, limit int) ([]AuditLog, error) {
	if l.db == nil {
		return nil, nil
	}

	query := `
		SELECT id, session_id, operation_type, resource_type, resource_id,
		       timestamp, ip_address, user_agent, additional_data
		FROM audit_logs
		WHERE session_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`

	rows, err := l.db.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var (
			log           AuditLog
			operationType string
			resourceType  string
		)
		err := rows.Scan(
			&log.ID,
			&log.SessionID,
			&operationType,
			&resourceType,
			&log.ResourceID,
			&log.Timestamp,
			&log.IPAddress,
			&log.UserAgent,
			&log.AdditionalData,
		)
		if err != nil {
			l.logger.Error("Failed to scan audit log", zap.Error(err))
			continue
		}
		log.OperationType = OperationType(operationType)
		log.ResourceType = ResourceType(resourceType)
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit logs: %w", err)
	}

	return logs, nil
}

type clientKey struct{}

type clientInfo struct {
	ip        string
	userAgent string
}

// WithClient attaches the caller's address and user agent to ctx
func WithClient(ctx context.Context, ipAddress, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, clientInfo{ip: ipAddress, userAgent: userAgent})
}

// ClientFromContext returns what WithClient stored, or empty strings
func ClientFromContext(ctx context.Context) (string, string) {
	info, ok := ctx.Value(clientKey{}).(clientInfo)
	if !ok {
		return "", ""
	}
	return info.ip, info.userAgent
}
