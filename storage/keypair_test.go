package storage

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, contents []byte) string {
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, contents, 0600))
	return path
}

func TestLoadKeypair(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	array, err := json.Marshal(toInts(key))
	require.NoError(t, err)
	object, err := json.Marshal(WalletData{ID: 1, PrivateKey: base64.StdEncoding.EncodeToString(key)})
	require.NoError(t, err)

	tests := []struct {
		name     string
		contents []byte
	}{
		{name: "solana cli array", contents: array},
		{name: "base64 wallet object", contents: object},
		{name: "base58 string", contents: []byte(base58.Encode(key) + "\n")},
		{name: "quoted base58 string", contents: []byte(`"` + key.String() + `"`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loaded, err := LoadKeypair(writeFile(t, tt.contents))
			require.NoError(t, err)
			assert.Equal(t, key, loaded)
			assert.Equal(t, key.PublicKey(), loaded.PublicKey())
		})
	}
}

func TestLoadKeypairErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents []byte
		errMsg   string
	}{
		{name: "empty", contents: []byte("  \n"), errMsg: "empty"},
		{name: "short array", contents: []byte("[1,2,3]"), errMsg: "invalid private key length"},
		{name: "not a byte", contents: []byte("[256]"), errMsg: "not a byte"},
		{name: "empty object", contents: []byte(`{"id": 1}`), errMsg: "no wallet found"},
		{name: "bad base64", contents: []byte(`{"private_key": "%%%"}`), errMsg: "could not decode private key"},
		{name: "bad base58", contents: []byte("0OIl"), errMsg: "base58"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadKeypair(writeFile(t, tt.contents))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := LoadKeypair(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "could not read keypair file")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/.config/solana/id.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/solana/id.json"), got)

	got, err = ExpandPath("/tmp/id.json")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/id.json", got)
}

func toInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
