package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"
	"uk-eta-backend/internal/config"
	"uk-eta-backend/internal/models"
)

type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}

type dashboardStatsParams struct {
	DateFrom *time.Time `json:"date_from"`
	DateTo   *time.Time `json:"date_to"`
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DashboardStats calls the get_dashboard_stats database function.
func (c *Client) DashboardStats(ctx context.Context, from, to *time.Time) (*models.DashboardStats, error) {
	body := c.Supabase.Rpc("get_dashboard_stats", "", dashboardStatsParams{DateFrom: from, DateTo: to})
	return parseDashboardStats(body, from, to)
}

func parseDashboardStats(body string, from, to *time.Time) (*models.DashboardStats, error) {
	if body == "" {
		return nil, fmt.Errorf("get_dashboard_stats returned an empty response")
	}

	var raw struct {
		Total    *int           `json:"total"`
		ByStatus map[string]int `json:"by_status"`
		rpcError
	}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode get_dashboard_stats response: %w", err)
	}
	if raw.Total == nil {
		return nil, fmt.Errorf("get_dashboard_stats failed: %s %s", raw.Code, raw.Message)
	}

	stats := &models.DashboardStats{
		From:     from,
		To:       to,
		Total:    *raw.Total,
		ByStatus: raw.ByStatus,
	}
	if stats.ByStatus == nil {
		stats.ByStatus = map[string]int{}
	}
	return stats, nil
}
