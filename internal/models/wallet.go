package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet types
const (
	WalletTypeMetaMask      = "metamask"
	WalletTypeCoinbase      = "coinbase"
	WalletTypeWalletConnect = "walletconnect"
	WalletTypeOther         = "other"
)

var walletTypes = map[string]bool{
	WalletTypeMetaMask:      true,
	WalletTypeCoinbase:      true,
	WalletTypeWalletConnect: true,
	WalletTypeOther:         true,
}

func IsValidWalletType(t string) bool {
	return walletTypes[t]
}

type Wallet struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Address    string    `json:"address"` // 0x + 40 lowercase hex
	WalletType string    `json:"wallet_type"`
	IsPrimary  bool      `json:"is_primary"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CountPrimary returns how many of the given wallets are flagged primary.
func CountPrimary(wallets []Wallet) int {
	n := 0
	for _, w := range wallets {
		if w.IsPrimary {
			n++
		}
	}
	return n
}
