package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type AttemptListInput struct {
	Identifier string // optional; pseudonymized before it reaches the database
	Event      string // optional; one of issued, verified, denied, revoked
	DateFrom   time.Time
	DateTo     time.Time
	Size       int32
	Page       int32
}

type AttemptListOutput struct {
	Page     int32
	Size     int32
	Total    int64
	Attempts []entity.Attempt
}

func (s *Usecase) attemptFilter(in AttemptListInput) (entity.AttemptFilter, error) {
	filter := entity.AttemptFilter{
		Event:    entity.AttemptEventFromString(in.Event),
		DateFrom: in.DateFrom,
		DateTo:   in.DateTo,
		Size:     in.Size,
		Page:     max(in.Page, 1),
	}

	if identifier := strings.TrimSpace(strings.ToLower(in.Identifier)); identifier != "" {
		hashed, err := s.hmac.Hash(identifier)
		if err != nil {
			return entity.AttemptFilter{}, err
		}
		filter.IdentifierHash = string(hashed)
	}

	return filter, nil
}

// AttemptList returns one page of the audit trail, newest first.
func (s *Usecase) AttemptList(ctx context.Context, in AttemptListInput) (*AttemptListOutput, error) {
	ctx, span := s.startSpan(ctx, "AttemptList")
	defer span.End()

	if _, err := s.authenticatedOperator(ctx); err != nil {
		return nil, err
	}

	if in.Size <= 0 || in.Size > 100 {
		in.Size = 10 // default limit
	}

	filter, err := s.attemptFilter(in)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash identifier filter", "error", err)
		return nil, goerror.NewServer(err)
	}

	attempts, total, err := s.repoDB.GetAttemptList(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list attempts", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &AttemptListOutput{
		Page:     max(in.Page, 1),
		Size:     in.Size,
		Total:    total,
		Attempts: attempts,
	}, nil
}
