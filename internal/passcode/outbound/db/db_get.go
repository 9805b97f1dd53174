package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
)

func attemptListWhere(filter entity.AttemptFilter) (string, []any) {
	conds := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if filter.IdentifierHash != "" {
		args = append(args, filter.IdentifierHash)
		conds = append(conds, fmt.Sprintf("identifier_hash = $%d", len(args)))
	}
	if filter.Event != entity.AttemptEventUnknown {
		args = append(args, int16(filter.Event))
		conds = append(conds, fmt.Sprintf("event = $%d", len(args)))
	}
	if !filter.DateFrom.IsZero() {
		args = append(args, filter.DateFrom)
		conds = append(conds, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if !filter.DateTo.IsZero() {
		args = append(args, filter.DateTo)
		conds = append(conds, fmt.Sprintf("occurred_at < $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetAttemptList returns one page of the audit trail, newest first, plus the
// total row count matching the filter.
func (s *DB) GetAttemptList(ctx context.Context, filter entity.AttemptFilter) (_ []entity.Attempt, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "GetAttemptList")
	defer func() { s.endSpan(span, err) }()

	where, args := attemptListWhere(filter)

	var total int64
	if err = s.conn.QueryRow(ctx, "SELECT COUNT(*) FROM passcode_attempts"+where, args...).Scan(&total); err != nil {
		return nil, 0, s.mapError(err)
	}

	limitArgs := append(args, filter.Size, (filter.Page-1)*filter.Size)
	query := fmt.Sprintf(
		"SELECT id, identifier_hash, event, occurred_at FROM passcode_attempts%s ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2,
	)

	rows, err := s.conn.Query(ctx, query, limitArgs...)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	items := make([]entity.Attempt, 0, filter.Size)
	for rows.Next() {
		var item entity.Attempt
		var event int16
		if err = rows.Scan(&item.ID, &item.IdentifierHash, &event, &item.OccurredAt); err != nil {
			return nil, 0, s.mapError(err)
		}
		item.Event = entity.AttemptEvent(event)
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, s.mapError(err)
	}

	return items, total, nil
}
