package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/passcode/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type uc interface {
	Issue(ctx context.Context, in usecase.IssueInput) (*usecase.IssueOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)
	Revoke(ctx context.Context, in usecase.RevokeInput) error

	AttemptList(ctx context.Context, in usecase.AttemptListInput) (*usecase.AttemptListOutput, error)
	AttemptExport(ctx context.Context, in usecase.AttemptExportInput) (*usecase.AttemptExportOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc, cfg config.Config) {
	end := &HTTPEndpoint{uc: uc, cfg: cfg}

	// Passcode lifecycle
	r.POST("/api/v1/passcodes", end.Issue)
	r.POST("/api/v1/passcodes/verify", end.Verify)
	r.DELETE("/api/v1/passcodes/:identifier", end.Revoke) // need authenticated

	// Audit trail (need authenticated)
	r.GET("/api/v1/passcodes/attempts", end.AttemptList)
	r.POST("/api/v1/passcodes/attempts/export", end.AttemptExport)
}
