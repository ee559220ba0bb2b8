// ABOUTME: Audit log entity and store methods for tracking account changes
// ABOUTME: Records which chat contact changed which account's password or contact address

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AuditAction represents an auditable action.
type AuditAction string

const (
	AuditChangePassword  AuditAction = "change_password"
	AuditRegisterContact AuditAction = "register_contact"
)

// ValidAuditActions lists all valid audit actions.
var ValidAuditActions = []AuditAction{
	AuditChangePassword,
	AuditRegisterContact,
}

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID         string         // UUID v4
	ActorRole  Role           // role of the account performing the action
	ActorID    int64          // account id within that role
	Action     AuditAction    // what action was performed
	TargetType string         // "account", "contact"
	TargetID   string         // username or contact address affected
	Timestamp  time.Time      // when it happened
	Detail     map[string]any // additional context
}

// AuditFilter specifies filtering options for listing audit entries.
type AuditFilter struct {
	Since     *time.Time
	Until     *time.Time
	ActorRole *Role
	ActorID   *int64
	Action    *AuditAction
	TargetID  *string
	Limit     int // max results (default 100, max 1000)
}

// AppendAuditLog appends a new entry to the audit log.
// Generates ID and Timestamp if not set.
func (s *SQLStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	s.writer.Lock()
	err := insertAudit(ctx, s.db, e)
	s.writer.Unlock()
	if err != nil {
		return err
	}

	s.logger.Debug("appended audit log",
		"id", e.ID,
		"actor", fmt.Sprintf("%s/%d", e.ActorRole, e.ActorID),
		"action", e.Action,
		"target", e.TargetType+"/"+e.TargetID,
	)
	return nil
}

// insertAudit writes e through db, which may be a transaction. The caller
// holds the writer lock.
func insertAudit(ctx context.Context, db sqlx.ExtContext, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	query := db.Rebind(`
		INSERT INTO audit_log (audit_id, actor_role, actor_id, action, target_type, target_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := db.ExecContext(ctx, query,
		e.ID,
		string(e.ActorRole),
		e.ActorID,
		string(e.Action),
		e.TargetType,
		e.TargetID,
		timestamp(e.Timestamp),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// buildAuditQuery turns a filter into a WHERE clause and its arguments.
// Only set fields contribute, which keeps parameter types inferable on postgres.
func buildAuditQuery(f AuditFilter) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, arg any) {
		clauses = append(clauses, clause)
		args = append(args, arg)
	}
	if f.Since != nil {
		add("ts >= ?", timestamp(*f.Since))
	}
	if f.Until != nil {
		add("ts <= ?", timestamp(*f.Until))
	}
	if f.ActorRole != nil {
		add("actor_role = ?", string(*f.ActorRole))
	}
	if f.ActorID != nil {
		add("actor_id = ?", *f.ActorID)
	}
	if f.Action != nil {
		add("action = ?", string(*f.Action))
	}
	if f.TargetID != nil {
		add("target_id = ?", *f.TargetID)
	}

	var b strings.Builder
	b.WriteString(`SELECT audit_id, actor_role, actor_id, action, target_type, target_id, ts, detail_json FROM audit_log`)
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}
	b.WriteString(" ORDER BY ts DESC LIMIT ?")
	args = append(args, normalizeAuditLimit(f.Limit))
	return b.String(), args
}

type auditRow struct {
	ID         string         `db:"audit_id"`
	ActorRole  string         `db:"actor_role"`
	ActorID    int64          `db:"actor_id"`
	Action     string         `db:"action"`
	TargetType string         `db:"target_type"`
	TargetID   string         `db:"target_id"`
	Timestamp  string         `db:"ts"`
	Detail     sql.NullString `db:"detail_json"`
}

func (r auditRow) entry() (AuditEntry, error) {
	e := AuditEntry{
		ID:         r.ID,
		ActorRole:  Role(r.ActorRole),
		ActorID:    r.ActorID,
		Action:     AuditAction(r.Action),
		TargetType: r.TargetType,
		TargetID:   r.TargetID,
	}
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}
	e.Timestamp = ts

	if r.Detail.Valid {
		if err := json.Unmarshal([]byte(r.Detail.String), &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return e, nil
}

// ListAuditLog returns audit entries matching the filter criteria.
// Results are returned newest first (DESC by timestamp).
func (s *SQLStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	query, args := buildAuditQuery(f)

	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}

	entries := make([]AuditEntry, 0, len(rows))
	for _, r := range rows {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
