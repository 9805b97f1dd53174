package inbound

import "time"

type IssueRequest struct {
	Identifier string `json:"identifier"`
}

type IssueResponse struct {
	// Code is only populated when debug exposure is enabled; normal
	// deployments deliver the code out of band.
	Code       string    `json:"code,omitempty"`
	TTLSeconds int64     `json:"ttl_seconds"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (IssueResponse) Message() string {
	return "Passcode issued. Check your inbox for the code."
}

type VerifyRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

type VerifyResponse struct {
	Identifier string `json:"identifier"`
	Verified   bool   `json:"verified"`
}

func (VerifyResponse) Message() string {
	return "Passcode verified."
}

type AttemptResponse struct {
	ID             int64     `json:"id,string"`
	IdentifierHash string    `json:"identifier_hash"`
	Event          string    `json:"event"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type AttemptsResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
	// meta
	total int64
	size  int32
	page  int32
}

func (r AttemptsResponse) Meta() map[string]any {
	return map[string]any{
		"total": r.total,
		"size":  r.size,
		"page":  r.page,
	}
}

type AttemptExportRequest struct {
	Identifier string `json:"identifier,omitempty"`
	Event      string `json:"event,omitempty"`
	DateFrom   string `json:"date_from,omitempty"`
	DateTo     string `json:"date_to,omitempty"`
}

type AttemptExportResponse struct {
	ObjectKey   string `json:"object_key"`
	DownloadURL string `json:"download_url"`
	Rows        int64  `json:"rows"`
}
