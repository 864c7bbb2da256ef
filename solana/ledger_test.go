package solana_chainlink

import (
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testLedger is an in-memory JSON-RPC endpoint that behaves like the solana_chainlink
// program running on a validator.
type testLedger struct {
	t *testing.T

	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte
	txs      map[solana.Signature]*ledgerTx
	calls    map[string]int
	reads    map[solana.PublicKey]int
	sent     []*solana.Transaction

	blockhash solana.Hash
	layout    Layout
	price     *big.Int
	decimals  uint32

	// statuses is the confirmation status reported on successive polls; "" reports
	// the signature as unknown. The last entry repeats.
	statuses []string
	polls    int

	preflightFailure bool
	executionFailure bool
	// withholdAccount lands the transaction without creating the account.
	withholdAccount bool
	// failMethod answers every call of the named method with an internal error.
	failMethod string
}

type ledgerTx struct {
	slot uint64
	logs []string
	err  interface{}
}

func newTestLedger(t *testing.T) *testLedger {
	idl, err := ParseIDL([]byte(defaultIDLJSON))
	require.NoError(t, err)
	layout, err := idl.Layout(DecimalAccount)
	require.NoError(t, err)

	return &testLedger{
		t:         t,
		accounts:  map[solana.PublicKey][]byte{DefaultFeed: make([]byte, 200)},
		txs:       map[solana.Signature]*ledgerTx{},
		calls:     map[string]int{},
		reads:     map[solana.PublicKey]int{},
		blockhash: solana.Hash(solana.NewWallet().PublicKey()),
		layout:    layout.WithSpace(DefaultAccountSpace),
		price:     big.NewInt(15234000000),
		decimals:  8,
		statuses:  []string{"", "processed", "confirmed", "finalized"},
	}
}

func (l *testLedger) serve() *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(l.handle))
	l.t.Cleanup(server.Close)
	return server
}

func (l *testLedger) callCount(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

func (l *testLedger) readCount(address solana.PublicKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads[address]
}

func (l *testLedger) sentTransactions() []*solana.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*solana.Transaction(nil), l.sent...)
}

func (l *testLedger) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	l.mu.Lock()
	l.calls[req.Method]++
	var result interface{}
	var rpcErr map[string]interface{}
	if req.Method == l.failMethod {
		rpcErr = map[string]interface{}{"code": -32603, "message": "internal error"}
	} else {
		result, rpcErr = l.dispatch(req.Method, req.Params)
	}
	l.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (l *testLedger) dispatch(method string, params []json.RawMessage) (interface{}, map[string]interface{}) {
	switch method {
	case "getLatestBlockhash":
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"blockhash":            l.blockhash.String(),
				"lastValidBlockHeight": 150,
			},
		}, nil

	case "sendTransaction":
		return l.sendTransaction(params)

	case "getSignatureStatuses":
		var sigs []string
		_ = json.Unmarshal(params[0], &sigs)
		status := l.statuses[len(l.statuses)-1]
		if l.polls < len(l.statuses) {
			status = l.statuses[l.polls]
		}
		l.polls++

		values := make([]interface{}, len(sigs))
		for i, s := range sigs {
			tx, ok := l.txs[solana.MustSignatureFromBase58(s)]
			if !ok || status == "" {
				continue
			}
			values[i] = map[string]interface{}{
				"slot":               tx.slot,
				"confirmations":      nil,
				"err":                tx.err,
				"confirmationStatus": status,
			}
		}
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": values}, nil

	case "getTransaction":
		var s string
		_ = json.Unmarshal(params[0], &s)
		tx, ok := l.txs[solana.MustSignatureFromBase58(s)]
		if !ok {
			return nil, nil
		}
		return map[string]interface{}{
			"slot":      tx.slot,
			"blockTime": nil,
			"meta": map[string]interface{}{
				"err":          tx.err,
				"fee":          5000,
				"preBalances":  []uint64{},
				"postBalances": []uint64{},
				"logMessages":  tx.logs,
			},
		}, nil

	case "getAccountInfo":
		var s string
		_ = json.Unmarshal(params[0], &s)
		address := solana.MustPublicKeyFromBase58(s)
		l.reads[address]++
		data, ok := l.accounts[address]
		if !ok {
			return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": nil}, nil
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value":   accountJSON(data),
		}, nil

	case "getProgramAccounts":
		var out []interface{}
		for address, data := range l.accounts {
			if address == DefaultFeed {
				continue
			}
			out = append(out, map[string]interface{}{"pubkey": address.String(), "account": accountJSON(data)})
		}
		return out, nil
	}
	return nil, map[string]interface{}{"code": -32601, "message": "method not found: " + method}
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

func (l *testLedger) sendTransaction(params []json.RawMessage) (interface{}, map[string]interface{}) {
	var encoded string
	_ = json.Unmarshal(params[0], &encoded)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(l.t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(l.t, err)
	require.NoError(l.t, tx.VerifySignatures())
	l.sent = append(l.sent, tx)

	program := "5FqDJPHp1KvztoNwQUh3s3bHxqn99RbkCK7BnR61foMz"
	if len(tx.Message.Instructions) > 0 {
		program = tx.Message.AccountKeys[tx.Message.Instructions[0].ProgramIDIndex].String()
	}

	if l.preflightFailure {
		return nil, map[string]interface{}{
			"code":    -32002,
			"message": "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x0",
			"data": map[string]interface{}{
				"err": map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 0}}},
				"logs": []string{
					"Program " + program + " invoke [1]",
					"Program log: Instruction: Execute",
					"Program " + program + " failed: custom program error: 0x0",
				},
			},
		}
	}

	sig := tx.Signatures[0]
	landed := &ledgerTx{slot: 4242}
	if l.executionFailure {
		landed.err = map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 3012}}}
		landed.logs = []string{
			"Program " + program + " invoke [1]",
			"Program log: Instruction: Execute",
			"Program log: AnchorError caused by account: chainlink_feed. Error Code: AccountNotInitialized. Error Number: 3012.",
			"Program " + program + " consumed 4500 of 200000 compute units",
			"Program " + program + " failed: custom program error: 0xbc4",
		}
	} else {
		landed.logs = []string{
			"Program " + program + " invoke [1]",
			"Program log: Instruction: Execute",
			"Program 11111111111111111111111111111111 invoke [2]",
			"Program 11111111111111111111111111111111 success",
			"Program " + ChainlinkProgramID.String() + " invoke [2]",
			"Program " + ChainlinkProgramID.String() + " success",
			"Program log: SOL / USD price is " + FormatDecimal(l.price, l.decimals),
			"Program " + program + " consumed 31000 of 200000 compute units",
			"Program " + program + " success",
		}
		if !l.withholdAccount {
			ix := tx.Message.Instructions[0]
			decimal := tx.Message.AccountKeys[ix.Accounts[0]]
			data, err := EncodeAccount(l.layout, []FieldValue{
				IntValue("value", KindI128, l.price),
				IntValue("decimals", KindU32, big.NewInt(int64(l.decimals))),
			})
			require.NoError(l.t, err)
			l.accounts[decimal] = data
		}
	}
	l.txs[sig] = landed
	return sig.String(), nil
}

func newTestClient(t *testing.T, ledger *testLedger) *Client {
	server := ledger.serve()
	client, err := NewClient(server.URL, solana.NewWallet().PrivateKey, ClientOptions{
		Commitment:     CommitmentConfirmed,
		PollInterval:   5 * time.Millisecond,
		ConfirmTimeout: 2 * time.Second,
	}, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	return client
}

func testIDL(t *testing.T) *IDL {
	idl, err := ParseIDL([]byte(defaultIDLJSON))
	require.NoError(t, err)
	return idl
}
