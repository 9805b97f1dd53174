package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
)

type ConsumePasscodeIssuedInput struct {
	Identifier string `validate:"required,email"`
	Code       string `validate:"required,numeric"`
	TTLSeconds int64  `validate:"required,gt=0"`
}

// ConsumePasscodeIssued emails the issued passcode to the identifier.
//
// A payload that fails validation is dropped, not retried: redelivering it
// cannot make it valid. Send failures are returned so the broker redelivers.
func (s *Usecase) ConsumePasscodeIssued(ctx context.Context, in ConsumePasscodeIssuedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumePasscodeIssued")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	ttl := time.Duration(in.TTLSeconds) * time.Second
	body := fmt.Sprintf(
		"Your verification code is %s.\n\nIt expires in %s. If you did not request a code, you can ignore this email.\n",
		in.Code, formatTTL(ttl),
	)

	msg := mail.Message{
		From:     s.cfg.GetString("mail.from"),
		To:       []string{in.Identifier},
		Subject:  "Your verification code",
		TextBody: body,
	}

	if err := s.repoMail.Send(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to send passcode email", "error", err)
		return err
	}

	return nil
}

func formatTTL(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return d.String()
}
