package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"audittrail-backend/internal/models"
)

// InsertAuditLog appends one entry. created_at is server-assigned unless the
// caller backdates it (seeding); live writes leave it zero.
func (s *Storage) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	createdAt := sql.NullTime{Time: entry.CreatedAt, Valid: !entry.CreatedAt.IsZero()}

	query := `
		INSERT INTO audit_logs (id, user_id, account_id, action, resource_type, resource_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		RETURNING created_at
	`

	return s.db.QueryRowContext(ctx, query,
		entry.ID, entry.UserID, entry.AccountID, entry.Action,
		entry.ResourceType, entry.ResourceID, entry.Details,
		entry.IPAddress, entry.UserAgent, createdAt,
	).Scan(&entry.CreatedAt)
}

// SearchAuditLogs filters, sorts and paginates one account's audit trail.
// The account scope is part of the query itself, never left to the caller.
// Results are newest-first with ties broken by id descending so repeated
// identical queries page deterministically.
func (s *Storage) SearchAuditLogs(ctx context.Context, accountID string, filter models.AuditLogFilter, page models.Page) ([]models.AuditLogEntry, int, error) {
	where := []string{"l.account_id = $1"}
	args := []any{accountID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		where = append(where, "l.user_id = "+arg(filter.UserID))
	}
	if filter.Action != "" {
		where = append(where, "l.action = "+arg(filter.Action))
	}
	if filter.ResourceType != "" {
		where = append(where, "l.resource_type = "+arg(filter.ResourceType))
	}
	if filter.Start != nil {
		where = append(where, "l.created_at >= "+arg(*filter.Start))
	}
	if filter.End != nil {
		where = append(where, "l.created_at <= "+arg(*filter.End))
	}

	cond := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_logs l WHERE " + cond
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT l.id, l.user_id, l.account_id, l.action, l.resource_type, l.resource_id,
			l.details, l.ip_address, l.user_agent, l.created_at,
			u.id AS u_id, u.email AS u_email, u.first_name AS u_first_name,
			u.last_name AS u_last_name, u.role AS u_role
		FROM audit_logs l
		LEFT JOIN users u ON u.id = l.user_id
		WHERE %s
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT %s OFFSET %s
	`, cond, arg(page.PerPage), arg(page.Offset()))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]models.AuditLogEntry, 0)
	for rows.Next() {
		var entry models.AuditLogEntry
		var uID, uEmail, uFirst, uLast, uRole *string
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.AccountID, &entry.Action,
			&entry.ResourceType, &entry.ResourceID, &entry.Details,
			&entry.IPAddress, &entry.UserAgent, &entry.CreatedAt,
			&uID, &uEmail, &uFirst, &uLast, &uRole,
		); err != nil {
			return nil, 0, err
		}
		if uID != nil {
			entry.User = &models.UserSummary{
				ID:        *uID,
				Email:     *uEmail,
				FirstName: *uFirst,
				LastName:  *uLast,
				Role:      models.Role(*uRole),
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
