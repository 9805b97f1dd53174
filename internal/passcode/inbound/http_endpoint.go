package inbound

import (
	"time"

	"github.com/shandysiswandi/otpgate/internal/passcode/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for passcode issuance, verification,
// and the audit trail.
type HTTPEndpoint struct {
	uc  uc
	cfg config.Config
}

// Issue derives and caches a passcode for an identifier.
// @Summary Issue passcode
// @Description Derives a short-lived passcode for the identifier and caches it. Honors an optional X-Idempotency-Key header.
// @Tags Passcode
// @Accept json
// @Produce json
// @Param request body IssueRequest true "Issue payload"
// @Success 200 {object} router.successResponse{data=IssueResponse} "Issue result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "Request already processed"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/passcodes [post]
func (h *HTTPEndpoint) Issue(r *router.Request) (any, error) {
	var req IssueRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Issue(r.Context(), usecase.IssueInput{
		Identifier:     req.Identifier,
		IdempotencyKey: r.Header.Get("X-Idempotency-Key"),
	})
	if err != nil {
		return nil, err
	}

	out := IssueResponse{
		TTLSeconds: resp.TTLSeconds,
		ExpiresAt:  resp.ExpiresAt,
	}
	if h.cfg.GetBool("passcode.debug_expose_code") {
		out.Code = resp.Code
	}

	return out, nil
}

// Verify consumes a passcode when the candidate matches.
// @Summary Verify passcode
// @Description Checks the candidate code against the live passcode and consumes it on success.
// @Tags Passcode
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verify payload"
// @Success 200 {object} router.successResponse{data=VerifyResponse} "Verify result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid or expired passcode"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/passcodes/verify [post]
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		Identifier: req.Identifier,
		Code:       req.Code,
	})
	if err != nil {
		return nil, err
	}

	return VerifyResponse{
		Identifier: resp.Identifier,
		Verified:   true,
	}, nil
}

// Revoke removes any live passcode for an identifier.
// @Summary Revoke passcode
// @Description Deletes the live passcode for the identifier, if any. Idempotent.
// @Tags Passcode
// @Produce json
// @Security BearerAuth
// @Param identifier path string true "Identifier"
// @Success 204 "No Content"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/passcodes/{identifier} [delete]
func (h *HTTPEndpoint) Revoke(r *router.Request) (any, error) {
	err := h.uc.Revoke(r.Context(), usecase.RevokeInput{
		Identifier: r.GetParam("identifier"),
	})
	if err != nil {
		return nil, err
	}

	return nil, nil
}

// AttemptList returns a page of the audit trail.
// @Summary List passcode attempts
// @Description Lists audit rows, newest first, filtered by identifier, event, and date range.
// @Tags Passcode, Audit
// @Produce json
// @Security BearerAuth
// @Param identifier query string false "Identifier (pseudonymized server-side)"
// @Param event query string false "Event name: issued, verified, denied, revoked"
// @Param date_from query string false "RFC3339 lower bound"
// @Param date_to query string false "RFC3339 upper bound"
// @Param size query int false "Page size (max 100)"
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} router.successResponse{data=AttemptsResponse} "Attempt page"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/passcodes/attempts [get]
func (h *HTTPEndpoint) AttemptList(r *router.Request) (any, error) {
	size, err := r.GetQueryInt32("size")
	if err != nil {
		return nil, err
	}

	page, err := r.GetQueryInt32("page")
	if err != nil {
		return nil, err
	}

	dateFrom, err := r.GetQueryDate("date_from", time.RFC3339)
	if err != nil {
		return nil, err
	}

	dateTo, err := r.GetQueryDate("date_to", time.RFC3339)
	if err != nil {
		return nil, err
	}

	if !dateFrom.IsZero() && !dateTo.IsZero() && dateFrom.After(dateTo) {
		return nil, goerror.NewInvalidFormat("date_from must be before date_to")
	}

	resp, err := h.uc.AttemptList(r.Context(), usecase.AttemptListInput{
		Identifier: r.GetQuery("identifier"),
		Event:      r.GetQuery("event"),
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		Size:       size,
		Page:       page,
	})
	if err != nil {
		return nil, err
	}

	attempts := make([]AttemptResponse, 0, len(resp.Attempts))
	for _, item := range resp.Attempts {
		attempts = append(attempts, AttemptResponse{
			ID:             item.ID,
			IdentifierHash: item.IdentifierHash,
			Event:          item.Event.String(),
			OccurredAt:     item.OccurredAt,
		})
	}

	return AttemptsResponse{
		Attempts: attempts,
		total:    resp.Total,
		size:     resp.Size,
		page:     resp.Page,
	}, nil
}

// AttemptExport exports matching audit rows as CSV to object storage.
// @Summary Export passcode attempts
// @Description Writes matching audit rows as CSV to object storage and returns a presigned download URL.
// @Tags Passcode, Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AttemptExportRequest true "Export filter"
// @Success 200 {object} router.successResponse{data=AttemptExportResponse} "Export result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/passcodes/attempts/export [post]
func (h *HTTPEndpoint) AttemptExport(r *router.Request) (any, error) {
	var req AttemptExportRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	dateFrom, err := parseOptionalRFC3339(req.DateFrom, "date_from")
	if err != nil {
		return nil, err
	}

	dateTo, err := parseOptionalRFC3339(req.DateTo, "date_to")
	if err != nil {
		return nil, err
	}

	if !dateFrom.IsZero() && !dateTo.IsZero() && dateFrom.After(dateTo) {
		return nil, goerror.NewInvalidFormat("date_from must be before date_to")
	}

	resp, err := h.uc.AttemptExport(r.Context(), usecase.AttemptExportInput{
		Identifier: req.Identifier,
		Event:      req.Event,
		DateFrom:   dateFrom,
		DateTo:     dateTo,
	})
	if err != nil {
		return nil, err
	}

	return AttemptExportResponse{
		ObjectKey:   resp.ObjectKey,
		DownloadURL: resp.DownloadURL,
		Rows:        resp.Rows,
	}, nil
}

func parseOptionalRFC3339(value, field string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, goerror.NewInvalidFormat(field + " must be RFC3339")
	}
	return ts, nil
}
