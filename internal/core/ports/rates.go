package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

// RateSource returns the exchange rate of every supported currency against
// one common quote basis. All rates of a single call share that basis.
type RateSource interface {
	Rates(ctx context.Context) (map[domain.Currency]decimal.Decimal, error)
}
