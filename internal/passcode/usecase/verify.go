package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type VerifyInput struct {
	Identifier string `validate:"required,email"`
	Code       string `validate:"required,numeric,min=4,max=10"`
}

type VerifyOutput struct {
	Identifier string
}

// Verify consumes the live passcode when the candidate matches.
//
// The compare-and-delete is atomic in the store, so concurrent verifies with
// the same code succeed at most once. A mismatch leaves the stored code
// intact; a missing or expired entry is reported the same way as a mismatch.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	in.Identifier = strings.TrimSpace(strings.ToLower(in.Identifier))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	consumed, err := s.store.CompareAndDelete(ctx, in.Identifier, in.Code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume passcode", "error", err)
		return nil, goerror.NewServer(err)
	}

	if !consumed {
		s.recordAttempt(ctx, in.Identifier, entity.AttemptEventDenied)
		return nil, goerror.NewBusiness("Invalid or expired passcode", goerror.CodeUnauthorized)
	}

	s.recordAttempt(ctx, in.Identifier, entity.AttemptEventVerified)

	return &VerifyOutput{Identifier: in.Identifier}, nil
}
