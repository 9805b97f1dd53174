package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/delivery/usecase"
)

type uc interface {
	ConsumePasscodeIssued(ctx context.Context, in usecase.ConsumePasscodeIssuedInput) error
}
