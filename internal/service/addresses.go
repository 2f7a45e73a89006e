package service

import (
	"cryptodesk/internal/domain"
)

// AddressBook resolves deposit addresses for supported assets. The set
// is fixed for the lifetime of the process.
type AddressBook struct {
	bySymbol map[string]domain.DepositAddress
	order    []string
}

// NewAddressBook builds an address book from the given entries.
func NewAddressBook(addresses []domain.DepositAddress) *AddressBook {
	book := &AddressBook{
		bySymbol: make(map[string]domain.DepositAddress, len(addresses)),
		order:    make([]string, 0, len(addresses)),
	}
	for _, addr := range addresses {
		if _, dup := book.bySymbol[addr.Symbol]; !dup {
			book.order = append(book.order, addr.Symbol)
		}
		book.bySymbol[addr.Symbol] = addr
	}
	return book
}

// DefaultAddresses returns the demo deposit addresses.
func DefaultAddresses() []domain.DepositAddress {
	return []domain.DepositAddress{
		{Symbol: "BTC", Address: "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh", Network: "Bitcoin"},
		{Symbol: "ETH", Address: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", Network: "Ethereum (ERC20)"},
		{Symbol: "ADA", Address: "addr1qxqs59lphg8g6qndelq8xwqn60ag3aeyfcp33c2kdp46a429mgz6j9z8m9m0d5qmjz8j9z8m9m0d5qmjz8j9z8m9m0d5qmjz8j9z8m9m0d5", Network: "Cardano"},
		{Symbol: "DOT", Address: "13UVJyLnbVp9RBZYFwFGyDvVd1y27Tt8tkntv6Q7JVPhFsTB", Network: "Polkadot"},
		{Symbol: "SOL", Address: "7xKXtg2CW87UeRQp8QQ1C7dHnTdjCVnSf2cK7m9c2qgk", Network: "Solana"},
		{Symbol: "LINK", Address: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", Network: "Ethereum (ERC20)"},
	}
}

// Lookup returns the deposit address for symbol.
func (b *AddressBook) Lookup(symbol string) (domain.DepositAddress, error) {
	addr, ok := b.bySymbol[symbol]
	if !ok {
		return domain.DepositAddress{}, domain.ErrUnknownSymbol
	}
	return addr, nil
}

// All returns every deposit address in registration order.
func (b *AddressBook) All() []domain.DepositAddress {
	out := make([]domain.DepositAddress, 0, len(b.order))
	for _, sym := range b.order {
		out = append(out, b.bySymbol[sym])
	}
	return out
}
