package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
)

type IssueInput struct {
	Identifier     string `validate:"required,email"`
	IdempotencyKey string
}

type IssueOutput struct {
	Code       string
	TTLSeconds int64
	ExpiresAt  time.Time
}

// Issue derives the passcode for an identifier and caches it for the
// configured TTL. Reissuing replaces the previous entry and resets its TTL.
func (s *Usecase) Issue(ctx context.Context, in IssueInput) (*IssueOutput, error) {
	ctx, span := s.startSpan(ctx, "Issue")
	defer span.End()

	in.Identifier = strings.TrimSpace(strings.ToLower(in.Identifier))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var out *IssueOutput
	issue := func(ctx context.Context) error {
		code, err := s.otp.Generate(in.Identifier)
		if err != nil {
			slog.ErrorContext(ctx, "failed to derive passcode", "error", err)
			return goerror.NewServer(err)
		}

		ttl := s.cfg.GetSecond("passcode.ttl_seconds")
		if err := s.store.Set(ctx, in.Identifier, code, ttl); err != nil {
			slog.ErrorContext(ctx, "failed to cache passcode", "error", err)
			return goerror.NewServer(err)
		}

		s.recordAttempt(ctx, in.Identifier, entity.AttemptEventIssued)

		if err := s.repoMessaging.PublishPasscodeIssued(ctx, PasscodeIssuedEvent{
			Identifier: in.Identifier,
			Code:       code,
			TTLSeconds: int64(ttl.Seconds()),
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish passcode issued", "error", err)
		}

		out = &IssueOutput{
			Code:       code,
			TTLSeconds: int64(ttl.Seconds()),
			ExpiresAt:  s.clock.Now().Add(ttl),
		}
		return nil
	}

	if in.IdempotencyKey == "" {
		if err := issue(ctx); err != nil {
			return nil, err
		}
		return out, nil
	}

	err := s.idemp.Exec(ctx, "passcode:issue:"+in.IdempotencyKey, issue)
	switch {
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		return nil, goerror.NewBusiness("Request is being processed", goerror.CodeTooManyRequest)
	case errors.Is(err, idempotency.ErrAlreadyCompleted), errors.Is(err, idempotency.ErrAlreadyFailed):
		return nil, goerror.NewBusiness("Request already processed", goerror.CodeConflict)
	case err != nil:
		return nil, err
	}
	return out, nil
}
