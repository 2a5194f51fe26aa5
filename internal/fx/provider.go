package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/kimchibot/internal/domain"
)

// Provider yields the local-currency-per-USD exchange rate used to bring
// KRW-quoted books onto the USD axis.
type Provider interface {
	Rate(ctx context.Context) (domain.ExchangeRate, error)
}

// APIProvider fetches the rate from an exchangeratesapi-compatible endpoint.
// Responses quote both USD and the local currency against a common base, so
// the cross rate is rates[local]/rates[USD].
type APIProvider struct {
	client    *http.Client
	endpoint  string
	accessKey string
	local     string
	logger    *slog.Logger
}

func NewAPIProvider(endpoint, accessKey, local string, logger *slog.Logger) *APIProvider {
	return &APIProvider{
		client:    &http.Client{Timeout: 10 * time.Second},
		endpoint:  endpoint,
		accessKey: accessKey,
		local:     local,
		logger:    logger.With("component", "fx"),
	}
}

type apiResponse struct {
	Success bool               `json:"success"`
	Rates   map[string]float64 `json:"rates"`
	Error   struct {
		Code int    `json:"code"`
		Type string `json:"type"`
	} `json:"error"`
}

func (p *APIProvider) Rate(ctx context.Context) (domain.ExchangeRate, error) {
	q := url.Values{}
	q.Set("access_key", p.accessKey)
	q.Set("symbols", "USD,"+p.local)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("fx: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("fx: fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ExchangeRate{}, fmt.Errorf("fx: fetch rate: HTTP %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("fx: decode response: %w", err)
	}
	if !body.Success {
		return domain.ExchangeRate{}, fmt.Errorf("fx: provider error %d (%s): %w", body.Error.Code, body.Error.Type, domain.ErrMalformedResponse)
	}

	usd, local := body.Rates["USD"], body.Rates[p.local]
	if usd <= 0 || local <= 0 {
		return domain.ExchangeRate{}, fmt.Errorf("fx: missing %s or USD rate: %w", p.local, domain.ErrMalformedResponse)
	}

	now := time.Now().UTC()
	rate := domain.ExchangeRate{
		Rate:      local / usd,
		Hour:      now.Hour(),
		FetchedAt: now,
	}
	p.logger.Info("fetched exchange rate", "currency", p.local, "rate", rate.Rate)
	return rate, nil
}

var _ Provider = (*APIProvider)(nil)
