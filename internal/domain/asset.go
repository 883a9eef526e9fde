package domain

// AssetClass decides which price sources are tried for a symbol and in what order.
type AssetClass string

const (
	AssetClassStablecoin AssetClass = "stablecoin"
	AssetClassCrypto     AssetClass = "crypto"
	AssetClassEquity     AssetClass = "equity"
)
