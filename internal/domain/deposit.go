package domain

// DepositAddress is a static per-asset receiving address. The address
// book is fixed at startup; no address rotation is simulated.
type DepositAddress struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
	Network string `json:"network"`
	Memo    string `json:"memo,omitempty"`
}
