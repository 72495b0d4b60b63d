package ledger

import (
	"fmt"
	"strings"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Exchange and quote suffixes appended during normalization.
const (
	auStockSuffix = ".AX"
	cryptoSuffix  = "-USD"
)

// NormalizeSymbol canonicalizes a raw ticker for its asset class so that
// provider lookups and the (portfolio, symbol) uniqueness key agree on
// one spelling. US tickers are assumed to already be in exchange form;
// AU tickers get the ASX suffix and crypto tickers the USD quote suffix.
// Normalization is idempotent.
func NormalizeSymbol(raw, assetClass string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))

	switch assetClass {
	case models.AssetClassUSStock:
		return symbol, nil
	case models.AssetClassAUStock:
		if !strings.HasSuffix(symbol, auStockSuffix) {
			symbol += auStockSuffix
		}
		return symbol, nil
	case models.AssetClassCrypto:
		if !strings.HasSuffix(symbol, cryptoSuffix) {
			symbol += cryptoSuffix
		}
		return symbol, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidAssetClass, assetClass)
	}
}
