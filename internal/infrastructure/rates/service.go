package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
	"github.com/DucatusX/gold-crowdsale-backend/pkg/circuitbreaker"
	"github.com/DucatusX/gold-crowdsale-backend/pkg/httputil"
)

type service struct {
	apiURL string
	cb     *gobreaker.CircuitBreaker
}

// NewService returns a ports.RateSource backed by a REST endpoint answering
// with a JSON object mapping currency tickers to their USD rate.
func NewService(apiURL string) ports.RateSource {
	return &service{
		apiURL: apiURL,
		cb:     circuitbreaker.NewCircuitBreaker(),
	}
}

func (s *service) Rates(ctx context.Context) (map[domain.Currency]decimal.Decimal, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		status, body, err := httputil.NewHTTPRequest("GET", s.apiURL, "", nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf(body)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	raw := map[string]decimal.Decimal{}
	if err := json.Unmarshal([]byte(res.(string)), &raw); err != nil {
		return nil, fmt.Errorf("error on retrieving rates: %s", err)
	}

	rates := make(map[domain.Currency]decimal.Decimal, len(raw))
	for ticker, rate := range raw {
		currency := domain.Currency(strings.ToUpper(ticker))
		if !currency.IsSupported() {
			continue
		}
		if rate.IsNegative() || rate.IsZero() {
			return nil, fmt.Errorf("non-positive rate for %s", currency)
		}
		rates[currency] = rate
	}
	return rates, nil
}
