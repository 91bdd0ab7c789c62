package flow

import (
	"github.com/BoiseITGuru/project-toucans-v2/internal/constants"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

// tokenPricers keys a pricing function by the project's payment currency,
// mirroring the currency-keyed table the frontend uses. Both supported
// currencies price as quote-per-token from the pool reserves; FLOW-priced
// tokens are converted to USD by the aggregator afterwards.
var tokenPricers = map[string]func(models.PairInfo) float64{
	constants.CurrencyFlow: quotePerToken,
	constants.CurrencyUSDC: quotePerToken,
}

func quotePerToken(pair models.PairInfo) float64 {
	if pair.TokenReserve == 0 {
		return 0
	}
	return pair.QuoteReserve / pair.TokenReserve
}

// TokenPriceFor returns the pool-implied token price in the payment
// currency. The second return is false when the currency has no pricer.
func TokenPriceFor(currency string, pair models.PairInfo) (float64, bool) {
	pricer, ok := tokenPricers[currency]
	if !ok {
		return 0, false
	}
	return pricer(pair), true
}
