package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provider-sync-service/internal/domain"
)

// TestFromRunReports tests that failed runs are excluded from the totals.
func TestFromRunReports(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reports := []*domain.RunReport{
		{
			Provider: domain.ProviderTiteLiveStocks,
			Scope:    domain.VenueProviderScope(1),
			WorkerID: "w1",
			Started:  started,
			Duration: 2 * time.Second,
			Counters: domain.Counters{Checked: 3, Created: 2, Updated: 1},
		},
		{
			Provider: domain.ProviderBankInformation,
			Scope:    domain.ProcedureScope(),
			Started:  started,
			Counters: domain.Counters{Checked: 7},
			Err:      errors.New("provider unavailable"),
		},
	}

	resp := FromRunReports(reports)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "venue_provider:1", resp.Results[0].Scope)
	assert.Equal(t, "2024-05-01T10:00:00Z", resp.Results[0].Started)
	assert.Equal(t, "2s", resp.Results[0].Duration)
	assert.Empty(t, resp.Results[0].Error)
	assert.Equal(t, "provider unavailable", resp.Results[1].Error)
	assert.Equal(t, SyncSummary{
		Runs:      2,
		Succeeded: 1,
		Failed:    1,
		Counters:  domain.Counters{Checked: 3, Created: 2, Updated: 1},
	}, resp.Summary)
}

// TestFromProviders tests the registered flag.
func TestFromProviders(t *testing.T) {
	resp := FromProviders(
		[]*domain.Provider{
			{ID: 1, LocalClass: domain.ProviderAllocineStocks, Name: "Allociné", IsActive: true},
			{ID: 2, LocalClass: domain.ProviderName("Legacy"), Name: "Legacy"},
		},
		[]domain.ProviderName{domain.ProviderAllocineStocks},
	)

	require.Len(t, resp.Providers, 2)
	assert.True(t, resp.Providers[0].Registered)
	assert.False(t, resp.Providers[1].Registered)
	assert.Equal(t, []string{"AllocineStocks"}, resp.Registered)
}
