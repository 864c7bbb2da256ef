package solana_chainlink

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// rpcSimulationFailed is the JSON-RPC code for a transaction rejected during preflight.
const rpcSimulationFailed = -32002

// Submit signs ix into a transaction paid for by feePayer and sends it. Every signer the
// message requires must be the fee payer or one of additionalSigners. A fresh blockhash
// is fetched on every call, so calling Submit again submits a new transaction.
func (c *Client) Submit(
	ctx context.Context,
	ix solana.Instruction,
	feePayer solana.PrivateKey,
	additionalSigners ...solana.PrivateKey,
) (solana.Signature, error) {
	if len(feePayer) != solana.PrivateKeyLength {
		return solana.Signature{}, fmt.Errorf("%w: no fee payer key", ErrMissingSignature)
	}
	keys := map[solana.PublicKey]solana.PrivateKey{feePayer.PublicKey(): feePayer}
	for _, k := range additionalSigners {
		if len(k) == solana.PrivateKeyLength {
			keys[k.PublicKey()] = k
		}
	}

	// 1. Make sure every required signature can be produced
	// -----------------------------------------------------
	var unsigned []solana.PublicKey
	seen := map[solana.PublicKey]bool{}
	for _, meta := range ix.Accounts() {
		if !meta.IsSigner || seen[meta.PublicKey] {
			continue
		}
		seen[meta.PublicKey] = true
		if _, ok := keys[meta.PublicKey]; !ok {
			unsigned = append(unsigned, meta.PublicKey)
		}
	}
	if len(unsigned) > 0 {
		return solana.Signature{}, fmt.Errorf("%w: no key supplied for %s", ErrMissingSignature, joinKeys(unsigned))
	}

	// 2. Build the transaction
	// ------------------------
	latestBlockhash, err := c.RpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, transportError("get latest blockhash", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		latestBlockhash.Value.Blockhash,
		solana.TransactionPayer(feePayer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(
		func(key solana.PublicKey) *solana.PrivateKey {
			if k, ok := keys[key]; ok {
				return &k
			}
			return nil
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: failed to sign transaction: %v", ErrMissingSignature, err)
	}

	// 3. Send it
	// ----------
	sig, err := c.RpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       c.Options.SkipPreflight,
		PreflightCommitment: c.Options.Commitment.RPC(),
	})
	if err != nil {
		if failed := simulationFailure(err); failed != nil {
			c.logger.Warn().
				Str("reason", failed.Reason).
				Int("logs", len(failed.Logs)).
				Msg("transaction rejected in preflight")
			return solana.Signature{}, failed
		}
		return solana.Signature{}, transportError("send transaction", err)
	}

	c.logger.Info().
		Str("signature", sig.String()).
		Str("fee_payer", feePayer.PublicKey().String()).
		Int("signers", len(tx.Signatures)).
		Msg("transaction submitted")
	return sig, nil
}

// simulationFailure extracts the program error and logs from a preflight rejection.
func simulationFailure(err error) *ExecutionFailedError {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != rpcSimulationFailed {
		return nil
	}

	failed := &ExecutionFailedError{Reason: rpcErr.Message}
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return failed
	}
	if rawLogs, ok := data["logs"].([]interface{}); ok {
		for _, l := range rawLogs {
			if s, ok := l.(string); ok {
				failed.Logs = append(failed.Logs, s)
			}
		}
	}
	if data["err"] != nil {
		failed.Reason = fmt.Sprintf("%s: %v", rpcErr.Message, data["err"])
	}
	if parsed := ParseProgramLogs(failed.Logs); parsed.FailureReason != "" {
		failed.Reason = parsed.FailureReason
	}
	return failed
}
