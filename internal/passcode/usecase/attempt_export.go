package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
)

const attemptExportPageSize int32 = 1_000

type AttemptExportInput struct {
	Identifier string
	Event      string
	DateFrom   time.Time
	DateTo     time.Time
}

type AttemptExportOutput struct {
	ObjectKey   string
	DownloadURL string
	Rows        int64
}

// AttemptExport writes matching audit rows as CSV into object storage and
// returns a presigned download URL.
func (s *Usecase) AttemptExport(ctx context.Context, in AttemptExportInput) (*AttemptExportOutput, error) {
	ctx, span := s.startSpan(ctx, "AttemptExport")
	defer span.End()

	clm, err := s.authenticatedOperator(ctx)
	if err != nil {
		return nil, err
	}

	filter, err := s.attemptFilter(AttemptListInput{
		Identifier: in.Identifier,
		Event:      in.Event,
		DateFrom:   in.DateFrom,
		DateTo:     in.DateTo,
		Size:       attemptExportPageSize,
		Page:       1,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash identifier filter", "error", err)
		return nil, goerror.NewServer(err)
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"id", "identifier_hash", "event", "occurred_at"}); err != nil {
		return nil, goerror.NewServer(err)
	}

	var rows int64
	for {
		attempts, total, err := s.repoDB.GetAttemptList(ctx, filter)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo export attempts", "error", err)
			return nil, goerror.NewServer(err)
		}

		records := lo.Map(attempts, func(a entity.Attempt, _ int) []string {
			return []string{
				strconv.FormatInt(a.ID, 10),
				a.IdentifierHash,
				a.Event.String(),
				a.OccurredAt.UTC().Format(time.RFC3339),
			}
		})
		if err := writer.WriteAll(records); err != nil {
			return nil, goerror.NewServer(err)
		}

		rows += int64(len(attempts))
		if rows >= total || len(attempts) == 0 {
			break
		}
		filter.Page++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, goerror.NewServer(err)
	}

	bucket := s.cfg.GetString("passcode.attempt_export_bucket")
	key := fmt.Sprintf("attempts/%s-%d.csv", s.clock.Now().UTC().Format("20060102T150405Z"), clm.OperatorID)

	opts := storage.PutOptions{Size: int64(buf.Len()), ContentType: "text/csv"}
	if _, err := s.storage.PutObject(ctx, bucket, key, buf, opts); err != nil {
		slog.ErrorContext(ctx, "failed to upload attempt export", "bucket", bucket, "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	url, err := s.storage.PresignGet(ctx, bucket, key, s.cfg.GetMinute("passcode.export_url_ttl_minutes"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to presign attempt export", "bucket", bucket, "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &AttemptExportOutput{
		ObjectKey:   key,
		DownloadURL: url,
		Rows:        rows,
	}, nil
}
