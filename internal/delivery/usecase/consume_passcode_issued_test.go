package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

type fakeConfig struct{ from string }

func (f *fakeConfig) Close() error { return nil }
func (f *fakeConfig) GetString(key string) string {
	if key == "mail.from" {
		return f.from
	}
	return ""
}
func (f *fakeConfig) GetBool(string) bool { return false }

func (f *fakeConfig) GetInt(string) int { return 0 }

func (f *fakeConfig) GetInt32(string) int32 { return 0 }

func (f *fakeConfig) GetUint(string) uint { return 0 }

func (f *fakeConfig) GetUint16(string) uint16 { return 0 }

func (f *fakeConfig) GetFloat64(string) float64 { return 0 }

func (f *fakeConfig) GetSecond(string) time.Duration { return 0 }

func (f *fakeConfig) GetMinute(string) time.Duration { return 0 }

func (f *fakeConfig) GetArray(string) []string { return nil }

func (f *fakeConfig) GetBinary(string) []byte { return nil }

type fakeMail struct {
	sent []mail.Message
	err  error
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestUsecase(t *testing.T, sender *fakeMail) *Usecase {
	t.Helper()

	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	return New(Dependency{
		Config:     &fakeConfig{from: "no-reply@otpgate.local"},
		Validator:  v10,
		RepoMail:   sender,
		Instrument: instrument.NewNoop(),
	})
}

func TestConsumePasscodeIssued(t *testing.T) {
	// Arrange
	sender := &fakeMail{}
	uc := newTestUsecase(t, sender)

	// Act
	err := uc.ConsumePasscodeIssued(context.Background(), ConsumePasscodeIssuedInput{
		Identifier: "user@example.com",
		Code:       "1234",
		TTLSeconds: 300,
	})

	// Assert
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.From != "no-reply@otpgate.local" {
		t.Fatalf("from = %q", msg.From)
	}
	if len(msg.To) != 1 || msg.To[0] != "user@example.com" {
		t.Fatalf("to = %v", msg.To)
	}
	if !strings.Contains(msg.TextBody, "1234") {
		t.Fatalf("body %q does not contain the code", msg.TextBody)
	}
	if !strings.Contains(msg.TextBody, "5 minutes") {
		t.Fatalf("body %q does not mention the ttl", msg.TextBody)
	}
}

func TestConsumePasscodeIssuedInvalidPayloadDropped(t *testing.T) {
	// Arrange
	sender := &fakeMail{}
	uc := newTestUsecase(t, sender)

	// Act
	err := uc.ConsumePasscodeIssued(context.Background(), ConsumePasscodeIssuedInput{
		Identifier: "not-an-email",
		Code:       "abcd",
		TTLSeconds: 0,
	})

	// Assert
	if err != nil {
		t.Fatalf("invalid payload should be dropped, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("sent = %d messages, want 0", len(sender.sent))
	}
}

func TestConsumePasscodeIssuedSendFailure(t *testing.T) {
	// Arrange
	sender := &fakeMail{err: errors.New("smtp down")}
	uc := newTestUsecase(t, sender)

	// Act
	err := uc.ConsumePasscodeIssued(context.Background(), ConsumePasscodeIssuedInput{
		Identifier: "user@example.com",
		Code:       "1234",
		TTLSeconds: 300,
	})

	// Assert
	if err == nil {
		t.Fatal("send failure should propagate for broker redelivery")
	}
}
