package chain

const (
	// ChainPolygon is the only network payouts settle on
	ChainPolygon = 137

	// ChainSolana and ChainBase are recognized so login can name the
	// mismatch instead of failing opaquely
	ChainSolana = 101
	ChainBase   = 8453

	// ClaimFeePointsFixed is the flat platform fee when the wallet pays
	// gas out of its rewards
	ClaimFeePointsFixed = 5
)

// Transaction status values reported by the settlement API
const (
	TxStatusPending = "PENDING"
	TxStatusSuccess = "SUCCESS"
	TxStatusDropped = "DROPPED"
	TxStatusFailed  = "FAILED"
)

// IsSupportedChain reports whether payouts can settle on the chain
func IsSupportedChain(chainID int) bool {
	return chainID == ChainPolygon
}
