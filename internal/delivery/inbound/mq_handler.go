package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/delivery/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	for i := range headers {
		if headers[i].Key == keyOfCorrelationID {
			return instrument.SetCorrelationID(ctx, string(headers[i].Value))
		}
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) PasscodeIssuedDelivery(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("delivery.inbound.mq").Start(ctx, "PasscodeIssuedDelivery")
	defer span.End()

	// The body carries the plaintext code; it is never logged.
	slog.InfoContext(ctx, "consume: passcode issued delivery", "msg_id", msg.ID())

	var payload event.PasscodeIssuedMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of passcode issued delivery", "msg_id", msg.ID(), "error", err)
		return nil
	}

	if err := h.uc.ConsumePasscodeIssued(ctx, usecase.ConsumePasscodeIssuedInput{
		Identifier: payload.Identifier,
		Code:       payload.Code,
		TTLSeconds: payload.TTLSeconds,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume passcode issued", "msg_id", msg.ID(), "error", err)
		return err
	}

	return nil
}
