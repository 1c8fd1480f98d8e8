package supabase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDashboardStats(t *testing.T) {
	stats, err := parseDashboardStats(`{"total": 5, "by_status": {"draft": 2, "submitted": 3}}`, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, map[string]int{"draft": 2, "submitted": 3}, stats.ByStatus)

	stats, err = parseDashboardStats(`{"total": 0, "by_status": null}`, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, stats.ByStatus)
	assert.NotNil(t, stats.ByStatus)
}

func TestParseDashboardStats_Errors(t *testing.T) {
	_, err := parseDashboardStats("", nil, nil)
	assert.Error(t, err)

	_, err = parseDashboardStats(`not json`, nil, nil)
	assert.ErrorContains(t, err, "decode")

	_, err = parseDashboardStats(`{"code": "42883", "message": "function does not exist"}`, nil, nil)
	assert.ErrorContains(t, err, "function does not exist")
}
