package db

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
)

const createAttemptSQL = `
INSERT INTO passcode_attempts (id, identifier_hash, event, occurred_at)
VALUES ($1, $2, $3, $4)
`

func (s *DB) CreateAttempt(ctx context.Context, data entity.Attempt) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAttempt")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, createAttemptSQL,
		data.ID,
		data.IdentifierHash,
		int16(data.Event),
		data.OccurredAt,
	)
	return s.mapError(err)
}
