package main

import (
	"bytes"
	"slices"
	"testing"

	"payments-engine-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportRows() []models.AccountSnapshot {
	return []models.AccountSnapshot{
		{Client: 1, Available: decimal.RequireFromString("1.5"), Total: decimal.RequireFromString("1.5")},
		{Client: 2, Held: decimal.RequireFromString("2"), Total: decimal.RequireFromString("2"), Locked: true},
	}
}

func TestGenerateReport(t *testing.T) {
	var buf bytes.Buffer
	stats := generateReport(&buf, slices.Values(reportRows()))

	assert.Equal(t, reportStats{totalAccounts: 2, lockedAccounts: 1, heldAccounts: 1}, stats)
	assert.Contains(t, buf.String(), "Client: 1 (active)")
	assert.Contains(t, buf.String(), "Client: 2 (locked)")
	assert.Contains(t, buf.String(), "1.5000")
}

func TestFilterClient(t *testing.T) {
	rows := slices.Collect(filterClient(slices.Values(reportRows()), 2))
	require.Len(t, rows, 1)
	assert.Equal(t, models.ClientId(2), rows[0].Client)

	assert.Empty(t, slices.Collect(filterClient(slices.Values(reportRows()), 9)))
}

func TestParseClientFilter(t *testing.T) {
	tests := []struct {
		name         string
		value        int
		wantClient   models.ClientId
		wantFiltered bool
		wantErr      bool
	}{
		{"unset", -1, 0, false, false},
		{"client zero", 0, 0, true, false},
		{"max client", 65535, 65535, true, false},
		{"out of range", 65536, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, filtered, err := parseClientFilter(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantClient, client)
			assert.Equal(t, tt.wantFiltered, filtered)
		})
	}
}

func TestFilterClient_ClientZero(t *testing.T) {
	rows := append([]models.AccountSnapshot{{Client: 0, Available: decimal.RequireFromString("3")}}, reportRows()...)

	client, filtered, err := parseClientFilter(0)
	require.NoError(t, err)
	require.True(t, filtered)

	got := slices.Collect(filterClient(slices.Values(rows), client))
	require.Len(t, got, 1)
	assert.Equal(t, models.ClientId(0), got[0].Client)
}
