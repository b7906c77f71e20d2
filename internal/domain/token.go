package domain

import "time"

// NativeMint is the reserved mint representing SOL wrapped as an SPL token.
const NativeMint = "So11111111111111111111111111111111111111112"

// TokenMeta is cached metadata for a token mint. Unknown mints get a
// synthesized fallback symbol (first three + "..." + last three characters
// of the mint) so the UI always has something to render.
type TokenMeta struct {
	ID          int64
	Address     string
	Symbol      string
	Name        string
	Decimals    *int
	Verified    bool
	LastPrice   *float64
	LastUpdated time.Time
	Metadata    []byte
}

// FallbackSymbol derives the short display symbol for a mint with no known
// metadata.
func FallbackSymbol(mint string) string {
	if len(mint) <= 6 {
		return mint
	}
	return mint[:3] + "..." + mint[len(mint)-3:]
}
