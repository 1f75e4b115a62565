package dto

import (
	"time"

	"provider-sync-service/internal/domain"
)

// RunReportResponse represents one provider run.
type RunReportResponse struct {
	Provider string          `json:"provider"`
	Scope    string          `json:"scope"`
	WorkerID string          `json:"worker_id"`
	Counters domain.Counters `json:"counters"`
	Started  string          `json:"started"`
	Duration string          `json:"duration"`
	Error    string          `json:"error,omitempty"`
}

// FromRunReport converts a domain.RunReport to RunReportResponse.
func FromRunReport(r *domain.RunReport) RunReportResponse {
	resp := RunReportResponse{
		Provider: string(r.Provider),
		Scope:    r.Scope.Key(),
		WorkerID: r.WorkerID,
		Counters: r.Counters,
		Started:  r.Started.Format(time.RFC3339),
		Duration: r.Duration.String(),
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}

	return resp
}

// SyncResponse represents the response of a multi-run sync.
type SyncResponse struct {
	Results []RunReportResponse `json:"results"`
	Summary SyncSummary         `json:"summary"`
}

// SyncSummary holds the totals of a multi-run sync.
type SyncSummary struct {
	Runs      int             `json:"runs"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Counters  domain.Counters `json:"counters"`
}

// FromRunReports converts run reports to SyncResponse.
func FromRunReports(reports []*domain.RunReport) SyncResponse {
	resp := SyncResponse{
		Results: make([]RunReportResponse, len(reports)),
	}
	resp.Summary.Runs = len(reports)

	for i, r := range reports {
		resp.Results[i] = FromRunReport(r)
		if !r.Succeeded() {
			resp.Summary.Failed++
			continue
		}
		resp.Summary.Succeeded++
		resp.Summary.Counters.Checked += r.Counters.Checked
		resp.Summary.Counters.Created += r.Counters.Created
		resp.Summary.Counters.Updated += r.Counters.Updated
		resp.Summary.Counters.Errored += r.Counters.Errored
		resp.Summary.Counters.CheckedThumbs += r.Counters.CheckedThumbs
		resp.Summary.Counters.CreatedThumbs += r.Counters.CreatedThumbs
		resp.Summary.Counters.UpdatedThumbs += r.Counters.UpdatedThumbs
		resp.Summary.Counters.ErroredThumbs += r.Counters.ErroredThumbs
	}

	return resp
}

// ProviderResponse represents a provider and whether it can be run.
type ProviderResponse struct {
	ID         int64  `json:"id"`
	LocalClass string `json:"local_class"`
	Name       string `json:"name"`
	IsActive   bool   `json:"is_active"`
	Registered bool   `json:"registered"`
}

// ProvidersResponse lists provider records and the registered implementations.
type ProvidersResponse struct {
	Providers  []ProviderResponse `json:"providers"`
	Registered []string           `json:"registered"`
}

// FromProviders converts provider records, flagging the ones with a registered implementation.
func FromProviders(providers []*domain.Provider, registered []domain.ProviderName) ProvidersResponse {
	known := make(map[domain.ProviderName]bool, len(registered))
	names := make([]string, len(registered))
	for i, name := range registered {
		known[name] = true
		names[i] = string(name)
	}

	resp := ProvidersResponse{
		Providers:  make([]ProviderResponse, len(providers)),
		Registered: names,
	}
	for i, p := range providers {
		resp.Providers[i] = ProviderResponse{
			ID:         p.ID,
			LocalClass: string(p.LocalClass),
			Name:       p.Name,
			IsActive:   p.IsActive,
			Registered: known[p.LocalClass],
		}
	}

	return resp
}

// SyncEventsResponse lists sync events, newest first.
type SyncEventsResponse struct {
	Events []domain.SyncEvent `json:"events"`
}

// SyncingDetails names the run holding a scope in an ALREADY_SYNCING error.
type SyncingDetails struct {
	Scope  string `json:"scope"`
	Holder string `json:"holder,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}
