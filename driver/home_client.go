// ABOUTME: This file implements the HTTP client for the home platform API
// ABOUTME: Covers entity states, service calls, energy preferences and statistics

package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"period-selector-sidecar/models"
)

// Home platform specific error types for better error handling
var (
	ErrUnauthorized   = errors.New("home platform token is invalid or expired")
	ErrEntityNotFound = errors.New("entity not found")
	ErrRateLimited    = errors.New("home platform API rate limit exceeded")
	ErrServiceFailure = errors.New("home platform service call failed")
)

// HomeClientConfig holds the connection settings for the home platform API
type HomeClientConfig struct {
	BaseURL        string
	AccessToken    string
	RequestTimeout time.Duration
	RatePerSecond  float64
	RateBurst      int
}

// HomeClient talks to the home platform's REST API
type HomeClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewHomeClient creates a new home platform API client
func NewHomeClient(cfg HomeClientConfig, logger *slog.Logger) *HomeClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = 10
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 20
	}

	client := &HomeClient{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		logger:      logger,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   2,
			},
		},
	}

	client.warnIfTokenExpiring()
	return client
}

// warnIfTokenExpiring decodes the long-lived access token without verifying
// the signature and logs when its expiry claim is near or past.
func (c *HomeClient) warnIfTokenExpiring() {
	token, _, err := jwt.NewParser().ParseUnverified(c.accessToken, jwt.MapClaims{})
	if err != nil {
		// Not all platform tokens are JWTs; nothing to check.
		return
	}

	expiry, err := token.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return
	}

	remaining := time.Until(expiry.Time)
	switch {
	case remaining <= 0:
		c.logger.Warn("Access token is expired", "expired_at", expiry.Time)
	case remaining < 30*24*time.Hour:
		c.logger.Warn("Access token expires soon",
			"expires_at", expiry.Time,
			"remaining_days", int(remaining.Hours()/24))
	}
}

// GetState fetches the current state of one entity
func (c *HomeClient) GetState(ctx context.Context, entityID string) (*models.EntityState, error) {
	var state models.EntityState
	if err := c.doJSON(ctx, http.MethodGet, "/api/states/"+url.PathEscape(entityID), nil, &state); err != nil {
		return nil, fmt.Errorf("failed to fetch state of %s: %w", entityID, err)
	}
	return &state, nil
}

// SetDateTime invokes the set_datetime service on a datetime entity
func (c *HomeClient) SetDateTime(ctx context.Context, req models.SetDateTimeRequest) error {
	if err := c.doJSON(ctx, http.MethodPost, "/api/services/input_datetime/set_datetime", req, nil); err != nil {
		return fmt.Errorf("set_datetime call for %s: %w", req.EntityID, err)
	}
	return nil
}

// GetEnergyPreferences fetches the dashboard's energy configuration
func (c *HomeClient) GetEnergyPreferences(ctx context.Context) (*models.EnergyPreferences, error) {
	var prefs models.EnergyPreferences
	if err := c.doJSON(ctx, http.MethodGet, "/api/energy/preferences", nil, &prefs); err != nil {
		return nil, fmt.Errorf("failed to fetch energy preferences: %w", err)
	}
	return &prefs, nil
}

// statisticsRequest is the statistics_during_period query payload
type statisticsRequest struct {
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	StatisticIDs []string `json:"statistic_ids"`
	Period       string   `json:"period"`
}

// FetchStatistics fetches aggregated statistics for a window and series set
func (c *HomeClient) FetchStatistics(ctx context.Context, start, end time.Time, statisticIDs []string) (map[string][]models.StatisticValue, error) {
	req := statisticsRequest{
		StartTime:    start.Format(time.RFC3339),
		EndTime:      end.Format(time.RFC3339),
		StatisticIDs: statisticIDs,
		Period:       "hour",
	}

	var stats map[string][]models.StatisticValue
	if err := c.doJSON(ctx, http.MethodPost, "/api/energy/statistics_during_period", req, &stats); err != nil {
		return nil, fmt.Errorf("failed to fetch statistics: %w", err)
	}
	return stats, nil
}

// doJSON executes one rate-limited JSON request against the platform API
func (c *HomeClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("User-Agent", "period-selector-sidecar/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		bodyStr := string(respBody)

		c.logger.Warn("Home platform API request failed",
			"method", method,
			"path", path,
			"status_code", resp.StatusCode,
			"response_body", bodyStr)

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrEntityNotFound, path)
		case http.StatusTooManyRequests:
			retryAfter := resp.Header.Get("Retry-After")
			return fmt.Errorf("%w: retry after %s", ErrRateLimited, retryAfter)
		default:
			return fmt.Errorf("%w: HTTP %d: %s", ErrServiceFailure, resp.StatusCode, bodyStr)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
