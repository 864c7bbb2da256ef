package cmd

import (
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	solana_chainlink "chainlink-consumer/solana"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

const (
	testPrice    = 15234000000
	testDecimals = 8
)

// fakeValidator answers the JSON-RPC calls of one CLI run in memory.
type fakeValidator struct {
	t *testing.T

	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte
	txs      map[solana.Signature][]string
	created  solana.PublicKey
	layout   solana_chainlink.Layout
	hash     solana.Hash

	// reject fails every transaction in preflight.
	reject bool
	// pending never reports a signature status.
	pending bool
}

func newFakeValidator(t *testing.T) *fakeValidator {
	idl, _, err := solana_chainlink.LoadIDL(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	layout, err := idl.DecimalLayout(0)
	require.NoError(t, err)

	return &fakeValidator{
		t:        t,
		accounts: map[solana.PublicKey][]byte{solana_chainlink.DefaultFeed: make([]byte, 200)},
		txs:      map[solana.Signature][]string{},
		layout:   layout,
		hash:     solana.Hash(solana.NewWallet().PublicKey()),
	}
}

func (v *fakeValidator) serve() string {
	server := httptest.NewServer(http.HandlerFunc(v.handle))
	v.t.Cleanup(server.Close)
	return server.URL
}

func (v *fakeValidator) createdAccount() solana.PublicKey {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.created
}

func (v *fakeValidator) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	v.mu.Lock()
	result, rpcErr := v.dispatch(req.Method, req.Params)
	v.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (v *fakeValidator) dispatch(method string, params []json.RawMessage) (interface{}, map[string]interface{}) {
	ctx := map[string]interface{}{"slot": 1}
	switch method {
	case "getLatestBlockhash":
		return map[string]interface{}{
			"context": ctx,
			"value": map[string]interface{}{
				"blockhash":            v.hash.String(),
				"lastValidBlockHeight": 150,
			},
		}, nil

	case "getAccountInfo":
		var s string
		_ = json.Unmarshal(params[0], &s)
		data, ok := v.accounts[solana.MustPublicKeyFromBase58(s)]
		if !ok {
			return map[string]interface{}{"context": ctx, "value": nil}, nil
		}
		return map[string]interface{}{"context": ctx, "value": accountJSON(data)}, nil

	case "sendTransaction":
		return v.sendTransaction(params)

	case "getProgramAccounts":
		var out []interface{}
		for address, data := range v.accounts {
			if address == solana_chainlink.DefaultFeed {
				continue
			}
			out = append(out, map[string]interface{}{"pubkey": address.String(), "account": accountJSON(data)})
		}
		return out, nil

	case "getSignatureStatuses":
		var sigs []string
		_ = json.Unmarshal(params[0], &sigs)
		values := make([]interface{}, len(sigs))
		for i, s := range sigs {
			if _, ok := v.txs[solana.MustSignatureFromBase58(s)]; !ok || v.pending {
				continue
			}
			values[i] = map[string]interface{}{
				"slot":               7,
				"confirmations":      nil,
				"err":                nil,
				"confirmationStatus": "finalized",
			}
		}
		return map[string]interface{}{"context": ctx, "value": values}, nil

	case "getTransaction":
		var s string
		_ = json.Unmarshal(params[0], &s)
		logs, ok := v.txs[solana.MustSignatureFromBase58(s)]
		if !ok {
			return nil, nil
		}
		return map[string]interface{}{
			"slot":      7,
			"blockTime": nil,
			"meta": map[string]interface{}{
				"err":          nil,
				"fee":          5000,
				"preBalances":  []uint64{},
				"postBalances": []uint64{},
				"logMessages":  logs,
			},
		}, nil
	}
	return nil, map[string]interface{}{"code": -32601, "message": "method not found: " + method}
}

func (v *fakeValidator) sendTransaction(params []json.RawMessage) (interface{}, map[string]interface{}) {
	var encoded string
	_ = json.Unmarshal(params[0], &encoded)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(v.t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(v.t, err)

	ix := tx.Message.Instructions[0]
	program := tx.Message.AccountKeys[ix.ProgramIDIndex].String()

	if v.reject {
		return nil, map[string]interface{}{
			"code":    -32002,
			"message": "Transaction simulation failed: Error processing Instruction 0: custom program error: 0xbc4",
			"data": map[string]interface{}{
				"err": map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 3012}}},
				"logs": []string{
					"Program " + program + " invoke [1]",
					"Program log: Instruction: Execute",
					"Program " + program + " failed: custom program error: 0xbc4",
				},
			},
		}
	}

	v.created = tx.Message.AccountKeys[ix.Accounts[0]]
	data, err := solana_chainlink.EncodeAccount(v.layout, []solana_chainlink.FieldValue{
		solana_chainlink.IntValue("value", solana_chainlink.KindI128, big.NewInt(testPrice)),
		solana_chainlink.IntValue("decimals", solana_chainlink.KindU32, big.NewInt(testDecimals)),
	})
	require.NoError(v.t, err)
	v.accounts[v.created] = data

	v.txs[tx.Signatures[0]] = []string{
		"Program " + program + " invoke [1]",
		"Program log: Instruction: Execute",
		"Program log: SOL / USD price is 152.34000000",
		"Program " + program + " success",
	}
	return tx.Signatures[0].String(), nil
}

func accountJSON(data []byte) map[string]interface{} {
	return map[string]interface{}{
		"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
		"executable": false,
		"lamports":   1586880,
		"owner":      solana.SystemProgramID.String(),
		"rentEpoch":  0,
		"space":      len(data),
	}
}

// writeWallet stores a fresh fee payer keypair as a base58 secret and returns its path.
func writeWallet(t *testing.T) (string, solana.PrivateKey) {
	key := solana.NewWallet().PrivateKey
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, []byte(key.String()), 0o600))
	return path, key
}
