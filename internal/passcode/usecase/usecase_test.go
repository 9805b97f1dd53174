package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
	"github.com/shandysiswandi/otpgate/internal/passcode/outbound/cache"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fakeConfig struct {
	seconds map[string]time.Duration
	minutes map[string]time.Duration
	strings map[string]string
}

func (f *fakeConfig) Close() error { return nil }

func (f *fakeConfig) GetString(key string) string { return f.strings[key] }

func (f *fakeConfig) GetBool(string) bool { return false }

func (f *fakeConfig) GetInt(string) int { return 0 }

func (f *fakeConfig) GetInt32(string) int32 { return 0 }

func (f *fakeConfig) GetUint(string) uint { return 0 }

func (f *fakeConfig) GetUint16(string) uint16 { return 0 }

func (f *fakeConfig) GetFloat64(string) float64 { return 0 }

func (f *fakeConfig) GetSecond(key string) time.Duration { return f.seconds[key] }

func (f *fakeConfig) GetMinute(key string) time.Duration { return f.minutes[key] }

func (f *fakeConfig) GetArray(string) []string { return nil }

func (f *fakeConfig) GetBinary(string) []byte { return nil }

type fakeDB struct {
	mu       sync.Mutex
	attempts []entity.Attempt
	listPage []entity.Attempt
	total    int64
	err      error
}

func (f *fakeDB) CreateAttempt(_ context.Context, data entity.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.attempts = append(f.attempts, data)
	return nil
}

func (f *fakeDB) GetAttemptList(context.Context, entity.AttemptFilter) ([]entity.Attempt, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.listPage, f.total, nil
}

func (f *fakeDB) events() []entity.AttemptEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	evs := make([]entity.AttemptEvent, 0, len(f.attempts))
	for _, a := range f.attempts {
		evs = append(evs, a.Event)
	}
	return evs
}

type fakeMQ struct {
	mu        sync.Mutex
	published []PasscodeIssuedEvent
	err       error
}

func (f *fakeMQ) PublishPasscodeIssued(_ context.Context, msg PasscodeIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

type fakeIdemp struct {
	mu   sync.Mutex
	done map[string]bool
}

func (f *fakeIdemp) Acquire(context.Context, string, time.Duration) (idempotency.State, error) {
	return idempotency.StateNone, nil
}

func (f *fakeIdemp) MarkCompleted(context.Context, string, time.Duration) error { return nil }
func (f *fakeIdemp) MarkFailed(context.Context, string, time.Duration) error    { return nil }

func (f *fakeIdemp) Exec(ctx context.Context, key string, fn func(context.Context) error, _ ...idempotency.Option) error {
	f.mu.Lock()
	if f.done == nil {
		f.done = make(map[string]bool)
	}
	if f.done[key] {
		f.mu.Unlock()
		return idempotency.ErrAlreadyCompleted
	}
	f.done[key] = true
	f.mu.Unlock()

	return fn(ctx)
}

type fakeNumberID struct{ next int64 }

func (f *fakeNumberID) Generate() int64 {
	f.next++
	return f.next
}

type fakeStorage struct {
	bucket string
	key    string
	size   int64
}

func (f *fakeStorage) Close() error { return nil }

func (f *fakeStorage) PutObject(_ context.Context, bucket, key string, r io.Reader, opts storage.PutOptions) (storage.ObjectInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.bucket, f.key, f.size = bucket, key, int64(len(b))
	return storage.ObjectInfo{Bucket: bucket, Key: key, Size: f.size, ContentType: opts.ContentType}, nil
}

func (f *fakeStorage) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.local/" + bucket + "/" + key + "?signed=1", nil
}

type fixture struct {
	uc    *Usecase
	clock *fakeClock
	db    *fakeDB
	mq    *fakeMQ
	store *cache.Memory
	blob  *fakeStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	clk := newTestClock()
	db := &fakeDB{}
	mq := &fakeMQ{}
	store := cache.NewMemory(clk)
	blob := &fakeStorage{}

	uc := New(Dependency{
		Store:         store,
		RepoDB:        db,
		RepoMessaging: mq,
		Idempotency:   &fakeIdemp{},
		Validator:     v10,
		Config: &fakeConfig{
			seconds: map[string]time.Duration{"passcode.ttl_seconds": 300 * time.Second},
			minutes: map[string]time.Duration{"passcode.export_url_ttl_minutes": 15 * time.Minute},
			strings: map[string]string{"passcode.attempt_export_bucket": "otpgate-exports"},
		},
		Storage:    blob,
		HMAC:       hash.NewHMACSHA256("test-hmac-secret"),
		UID:        &fakeNumberID{},
		OTP:        otp.NewHOTP(4, 0, ""),
		Clock:      clk,
		Instrument: instrument.NewNoop(),
	})

	return &fixture{uc: uc, clock: clk, db: db, mq: mq, store: store, blob: blob}
}

func operatorContext() context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{OperatorID: 42, OperatorEmail: "ops@example.com"})
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want *goerror.Error", err)
	}
	if gerr.Code() != goerror.CodeUnauthorized {
		t.Fatalf("code = %v, want CodeUnauthorized", gerr.Code())
	}
}

func TestIssueThenVerifyOnce(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)

	// Act
	out, err := fx.uc.Issue(ctx, IssueInput{Identifier: "user@example.com"})

	// Assert
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(out.Code) != 4 {
		t.Fatalf("code = %q, want 4 digits", out.Code)
	}
	if out.TTLSeconds != 300 {
		t.Fatalf("ttl = %d, want 300", out.TTLSeconds)
	}

	if _, err := fx.uc.Verify(ctx, VerifyInput{Identifier: "user@example.com", Code: out.Code}); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	_, err = fx.uc.Verify(ctx, VerifyInput{Identifier: "user@example.com", Code: out.Code})
	assertUnauthorized(t, err)

	evs := fx.db.events()
	want := []entity.AttemptEvent{entity.AttemptEventIssued, entity.AttemptEventVerified, entity.AttemptEventDenied}
	if len(evs) != len(want) {
		t.Fatalf("events = %v, want %v", evs, want)
	}
	for i := range want {
		if evs[i] != want[i] {
			t.Fatalf("events[%d] = %v, want %v", i, evs[i], want[i])
		}
	}
}

func TestVerifyWrongCodeKeepsEntry(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)
	out, err := fx.uc.Issue(ctx, IssueInput{Identifier: "user@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	wrong := "0000"
	if wrong == out.Code {
		wrong = "0001"
	}

	// Act
	_, wrongErr := fx.uc.Verify(ctx, VerifyInput{Identifier: "user@example.com", Code: wrong})
	_, rightErr := fx.uc.Verify(ctx, VerifyInput{Identifier: "user@example.com", Code: out.Code})

	// Assert
	assertUnauthorized(t, wrongErr)
	if rightErr != nil {
		t.Fatalf("verify after mismatch: %v", rightErr)
	}
}

func TestVerifyNeverIssued(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)

	// Act
	_, err := fx.uc.Verify(ctx, VerifyInput{Identifier: "nobody@example.com", Code: "1234"})

	// Assert
	assertUnauthorized(t, err)
}

func TestIssueReissueResetsTTL(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)
	first, err := fx.uc.Issue(ctx, IssueInput{Identifier: "user@example.com"})
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	fx.clock.Advance(4 * time.Minute)

	// Act
	second, err := fx.uc.Issue(ctx, IssueInput{Identifier: "user@example.com"})
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	fx.clock.Advance(4 * time.Minute)
	_, verifyErr := fx.uc.Verify(ctx, VerifyInput{Identifier: "user@example.com", Code: second.Code})

	// Assert
	if first.Code != second.Code {
		t.Fatalf("codes differ: %q vs %q, derivation should be deterministic", first.Code, second.Code)
	}
	if verifyErr != nil {
		t.Fatalf("verify after reissue: %v", verifyErr)
	}
}

func TestVerifyAfterTTLElapse(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)
	out, err := fx.uc.Issue(ctx, IssueInput{Identifier: "user@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Act
	fx.clock.Advance(5 * time.Minute)
	_, verifyErr := fx.uc.Verify(ctx, VerifyInput{Identifier: "user@example.com", Code: out.Code})

	// Assert
	assertUnauthorized(t, verifyErr)
}

func TestIssueInvalidIdentifier(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)

	// Act
	_, err := fx.uc.Issue(ctx, IssueInput{Identifier: "not-an-email"})

	// Assert
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want *goerror.Error", err)
	}
	if gerr.Type() != goerror.TypeValidation {
		t.Fatalf("type = %v, want TypeValidation", gerr.Type())
	}
}

func TestIssuePublishesEvent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)

	// Act
	out, err := fx.uc.Issue(ctx, IssueInput{Identifier: "User@Example.com"})

	// Assert
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(fx.mq.published) != 1 {
		t.Fatalf("published = %d events, want 1", len(fx.mq.published))
	}
	msg := fx.mq.published[0]
	if msg.Identifier != "user@example.com" {
		t.Fatalf("identifier = %q, want normalized %q", msg.Identifier, "user@example.com")
	}
	if msg.Code != out.Code || msg.TTLSeconds != 300 {
		t.Fatalf("event = %+v does not match issue output", msg)
	}
}

func TestIssuePublishFailureDoesNotFail(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)
	fx.mq.err = errors.New("broker down")

	// Act
	out, err := fx.uc.Issue(ctx, IssueInput{Identifier: "user@example.com"})

	// Assert
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := fx.uc.Verify(ctx, VerifyInput{Identifier: "user@example.com", Code: out.Code}); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestIssueIdempotencyKeyReplay(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)
	if _, err := fx.uc.Issue(ctx, IssueInput{Identifier: "user@example.com", IdempotencyKey: "req-1"}); err != nil {
		t.Fatalf("first issue: %v", err)
	}

	// Act
	_, err := fx.uc.Issue(ctx, IssueInput{Identifier: "user@example.com", IdempotencyKey: "req-1"})

	// Assert
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want *goerror.Error", err)
	}
	if gerr.Code() != goerror.CodeConflict {
		t.Fatalf("code = %v, want CodeConflict", gerr.Code())
	}
}

func TestRevokeRequiresOperator(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)

	// Act
	err := fx.uc.Revoke(ctx, RevokeInput{Identifier: "user@example.com"})

	// Assert
	assertUnauthorized(t, err)
}

func TestRevokeRemovesLiveCode(t *testing.T) {
	// Arrange
	ctx := operatorContext()
	fx := newFixture(t)
	out, err := fx.uc.Issue(ctx, IssueInput{Identifier: "user@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Act
	if err := fx.uc.Revoke(ctx, RevokeInput{Identifier: "user@example.com"}); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	againErr := fx.uc.Revoke(ctx, RevokeInput{Identifier: "user@example.com"})
	_, verifyErr := fx.uc.Verify(ctx, VerifyInput{Identifier: "user@example.com", Code: out.Code})

	// Assert
	if againErr != nil {
		t.Fatalf("second revoke: %v", againErr)
	}
	assertUnauthorized(t, verifyErr)
}

func TestAttemptListRequiresOperator(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fx := newFixture(t)

	// Act
	_, err := fx.uc.AttemptList(ctx, AttemptListInput{})

	// Assert
	assertUnauthorized(t, err)
}

func TestAttemptList(t *testing.T) {
	// Arrange
	ctx := operatorContext()
	fx := newFixture(t)
	fx.db.listPage = []entity.Attempt{
		{ID: 2, IdentifierHash: "abc", Event: entity.AttemptEventVerified},
		{ID: 1, IdentifierHash: "abc", Event: entity.AttemptEventIssued},
	}
	fx.db.total = 2

	// Act
	out, err := fx.uc.AttemptList(ctx, AttemptListInput{Identifier: "user@example.com", Size: 10, Page: 1})

	// Assert
	if err != nil {
		t.Fatalf("attempt list: %v", err)
	}
	if out.Total != 2 || len(out.Attempts) != 2 {
		t.Fatalf("total = %d, attempts = %d, want 2 and 2", out.Total, len(out.Attempts))
	}
	if out.Page != 1 || out.Size != 10 {
		t.Fatalf("page/size = %d/%d, want 1/10", out.Page, out.Size)
	}
}

func TestAttemptExport(t *testing.T) {
	// Arrange
	ctx := operatorContext()
	fx := newFixture(t)
	fx.db.listPage = []entity.Attempt{
		{ID: 1, IdentifierHash: "abc", Event: entity.AttemptEventIssued, OccurredAt: fx.clock.Now()},
	}
	fx.db.total = 1

	// Act
	out, err := fx.uc.AttemptExport(ctx, AttemptExportInput{})

	// Assert
	if err != nil {
		t.Fatalf("attempt export: %v", err)
	}
	if out.Rows != 1 {
		t.Fatalf("rows = %d, want 1", out.Rows)
	}
	if fx.blob.bucket != "otpgate-exports" {
		t.Fatalf("bucket = %q, want %q", fx.blob.bucket, "otpgate-exports")
	}
	if fx.blob.key != out.ObjectKey {
		t.Fatalf("stored key %q does not match output %q", fx.blob.key, out.ObjectKey)
	}
	if out.DownloadURL == "" {
		t.Fatal("download url is empty")
	}
}
