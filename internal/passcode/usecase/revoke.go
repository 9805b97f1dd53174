package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type RevokeInput struct {
	Identifier string `validate:"required,email"`
}

// Revoke removes any live passcode for the identifier. Revoking an
// identifier without a live code is not an error.
func (s *Usecase) Revoke(ctx context.Context, in RevokeInput) error {
	ctx, span := s.startSpan(ctx, "Revoke")
	defer span.End()

	if _, err := s.authenticatedOperator(ctx); err != nil {
		return err
	}

	in.Identifier = strings.TrimSpace(strings.ToLower(in.Identifier))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.store.Delete(ctx, in.Identifier); err != nil {
		slog.ErrorContext(ctx, "failed to delete passcode", "error", err)
		return goerror.NewServer(err)
	}

	s.recordAttempt(ctx, in.Identifier, entity.AttemptEventRevoked)

	return nil
}
