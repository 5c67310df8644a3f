package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository writes audit logs to Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// Log writes an audit entry.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	entry = normalize(entry, time.Now())

	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_logs (
	id, tenant_id, actor, role, action, resource_type, resource_id,
	metadata, payload_digest, ip, user_agent, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)`, entry.ID, entry.TenantID, entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID,
		nullableJSON(entry.Metadata), entry.PayloadDigest, entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}

// ListByResource returns entries for a resource, newest first.
func (r *Repository) ListByResource(ctx context.Context, resourceType, resourceID string) ([]Entry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("audit repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, tenant_id, actor, role, action, resource_type, resource_id,
	COALESCE(metadata::text, ''), payload_digest, ip, user_agent, created_at
FROM audit_logs
WHERE resource_type = $1 AND resource_id = $2
ORDER BY created_at DESC`, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var metadata string
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.Actor, &entry.Role, &entry.Action, &entry.ResourceType,
			&entry.ResourceID, &metadata, &entry.PayloadDigest, &entry.IP, &entry.UserAgent, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if metadata != "" {
			entry.Metadata = []byte(metadata)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullableJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
