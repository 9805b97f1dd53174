package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
	"github.com/shandysiswandi/otpgate/internal/passcode/outbound/cache"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

// PasscodeIssuedEvent is published after a code is cached so that delivery
// can happen out of band.
type PasscodeIssuedEvent struct {
	Identifier string
	Code       string
	TTLSeconds int64
}

type repoMessaging interface {
	PublishPasscodeIssued(ctx context.Context, msg PasscodeIssuedEvent) error
}

type repoDB interface {
	CreateAttempt(ctx context.Context, data entity.Attempt) error
	GetAttemptList(ctx context.Context, filter entity.AttemptFilter) ([]entity.Attempt, int64, error)
}

type Usecase struct {
	store         cache.Store
	repoDB        repoDB
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	storage       storage.Storage
	hmac          hash.Hash
	uid           uid.NumberID
	otp           otp.OTP
	clock         clock.Clocker
	ins           instrument.Instrumentation
}

type Dependency struct {
	Store         cache.Store
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	Storage       storage.Storage
	HMAC          hash.Hash
	UID           uid.NumberID
	OTP           otp.OTP
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		store:         dep.Store,
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		storage:       dep.Storage,
		hmac:          dep.HMAC,
		uid:           dep.UID,
		otp:           dep.OTP,
		clock:         dep.Clock,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("passcode.usecase").Start(ctx, name)
}

func (s *Usecase) authenticatedOperator(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	return clm, nil
}

// recordAttempt appends one audit row. The trail is best effort: a storage
// failure is logged but never changes the outcome of the operation itself.
func (s *Usecase) recordAttempt(ctx context.Context, identifier string, ev entity.AttemptEvent) {
	hashed, err := s.hmac.Hash(identifier)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash identifier for audit", "event", ev.String(), "error", err)
		return
	}

	if err := s.repoDB.CreateAttempt(ctx, entity.Attempt{
		ID:             s.uid.Generate(),
		IdentifierHash: string(hashed),
		Event:          ev,
		OccurredAt:     s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to record passcode attempt", "event", ev.String(), "error", err)
	}
}
