package storage

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// WalletData is the JSON object form of a keypair file.
type WalletData struct {
	ID         int    `json:"id"`
	PrivateKey string `json:"private_key"` // Stored as base64 encoded string
}

// LoadKeypair reads the fee payer keypair at path. Three encodings are accepted:
// the Solana CLI JSON array of 64 bytes, a WalletData object with a base64 key, and
// a bare base58 string. The file is never written.
func LoadKeypair(path string) (solana.PrivateKey, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read keypair file: %w", err)
	}

	key, err := ParseKeypair(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse keypair file %s: %w", path, err)
	}
	return key, nil
}

// ParseKeypair decodes keypair bytes in any of the formats LoadKeypair accepts.
func ParseKeypair(data []byte) (solana.PrivateKey, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("keypair file is empty")
	}

	var raw []byte
	switch data[0] {
	case '[':
		var ints []int
		if err := json.Unmarshal(data, &ints); err != nil {
			return nil, fmt.Errorf("could not unmarshal key array: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("key array value %d at index %d is not a byte", v, i)
			}
			raw[i] = byte(v)
		}

	case '{':
		var walletData WalletData
		if err := json.Unmarshal(data, &walletData); err != nil {
			return nil, fmt.Errorf("could not parse wallet file: %w", err)
		}
		if walletData.PrivateKey == "" {
			return nil, fmt.Errorf("no wallet found")
		}
		decoded, err := base64.StdEncoding.DecodeString(walletData.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("could not decode private key: %w", err)
		}
		raw = decoded

	default:
		decoded, err := base58.Decode(strings.Trim(string(data), `"`))
		if err != nil {
			return nil, fmt.Errorf("could not decode base58 private key: %w", err)
		}
		raw = decoded
	}

	if len(raw) != solana.PrivateKeyLength {
		return nil, fmt.Errorf("invalid private key length: expected %d, got %d", solana.PrivateKeyLength, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

// ExpandPath resolves a leading "~" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}
