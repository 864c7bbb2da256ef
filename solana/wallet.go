package solana_chainlink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

const (
	defaultConfigDirName = ".config"
	solanaConfigDirName  = "solana"
	walletFileName       = "id.json"
)

// AccountIdentity is a keypair generated for the account the program creates.
// It exists only in memory for the duration of one run.
type AccountIdentity struct {
	PrivateKey solana.PrivateKey
}

// PublicKey returns the address of the account.
func (a *AccountIdentity) PublicKey() solana.PublicKey {
	return a.PrivateKey.PublicKey()
}

// NewAccountIdentity generates a fresh keypair. Every call returns a distinct address.
func NewAccountIdentity() *AccountIdentity {
	return &AccountIdentity{PrivateKey: solana.NewWallet().PrivateKey}
}

// DefaultWalletPath returns the Solana CLI keypair location,
// e.g. /home/user/.config/solana/id.json
func DefaultWalletPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, defaultConfigDirName, solanaConfigDirName, walletFileName), nil
}
