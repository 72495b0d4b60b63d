package ledger

import "errors"

// Typed failures surfaced to callers. Handlers map these onto HTTP
// status codes; anything else coming out of the ledger is a storage or
// programming error and propagates as-is.
var (
	ErrInvalidQuantity        = errors.New("quantity must be positive")
	ErrInvalidPrice           = errors.New("price must be positive")
	ErrFutureTimestamp        = errors.New("transaction timestamp is in the future")
	ErrInvalidAssetClass      = errors.New("invalid asset class")
	ErrInvalidTransactionKind = errors.New("invalid transaction kind")
	ErrNoSuchHolding          = errors.New("cannot sell an asset that is not in the portfolio")
	ErrInsufficientHolding    = errors.New("insufficient holding for sale")
	ErrAssetInfoUnavailable   = errors.New("asset info unavailable")
)
