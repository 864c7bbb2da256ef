package solana_chainlink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionStatus is the execution outcome the ledger reports for a landed transaction.
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

// TransactionRecord is what the ledger reports about a transaction once it reaches the requested commitment.
type TransactionRecord struct {
	Signature  solana.Signature
	Slot       uint64
	Status     TransactionStatus
	Reason     string
	Logs       []string
	Commitment Commitment
}

var maxSupportedTransactionVersion uint64 = 0

// AwaitConfirmation polls the signature status until it reaches level, then fetches the
// transaction's logs. It never reports success below level. Waiting is bounded by
// Options.ConfirmTimeout and ctx; either ending first yields ErrConfirmationTimeout.
// A transaction the program rejected yields *ExecutionFailedError.
func (c *Client) AwaitConfirmation(ctx context.Context, sig solana.Signature, level Commitment) (*TransactionRecord, error) {
	if level == 0 {
		level = c.Options.Commitment
	}
	ctx, cancel := context.WithTimeout(ctx, c.Options.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.Options.PollInterval)
	defer ticker.Stop()

	logger := c.logger.With().
		Str("signature", sig.String()).
		Str("level", level.String()).
		Logger()
	logger.Debug().Dur("timeout", c.Options.ConfirmTimeout).Msg("waiting for confirmation")

	var (
		reached Commitment
		slot    uint64
		lastErr error
		polls   int
	)
	for {
		polls++

		if !reached.AtLeast(level) {
			// 1. Wait for the requested commitment
			// ------------------------------------
			status, err := c.signatureStatus(ctx, sig)
			switch {
			case err != nil:
				lastErr = err
				logger.Warn().Err(err).Int("poll", polls).Msg("signature status poll failed")
			case status == nil:
				logger.Debug().Int("poll", polls).Msg("signature not yet visible")
			case status.Err != nil:
				return nil, c.executionFailure(ctx, sig, status.Slot, status.Err)
			default:
				reached = commitmentFromStatus(status.ConfirmationStatus)
				slot = status.Slot
				logger.Debug().
					Str("status", string(status.ConfirmationStatus)).
					Uint64("slot", status.Slot).
					Msg("signature status")
			}
		}

		if reached.AtLeast(level) {
			// 2. Fetch the transaction record
			// -------------------------------
			record, err := c.transactionRecord(ctx, sig, maxCommitment(level, CommitmentConfirmed))
			switch {
			case errors.Is(err, rpc.ErrNotFound):
				logger.Debug().Int("poll", polls).Msg("transaction record not yet available")
			case err != nil:
				lastErr = err
				logger.Warn().Err(err).Int("poll", polls).Msg("transaction fetch failed")
			case record.Status == StatusFailed:
				return nil, &ExecutionFailedError{Signature: sig, Reason: record.Reason, Logs: record.Logs}
			default:
				record.Commitment = reached
				if record.Slot == 0 {
					record.Slot = slot
				}
				logger.Info().
					Uint64("slot", record.Slot).
					Int("logs", len(record.Logs)).
					Int("polls", polls).
					Msg("transaction confirmed")
				return record, nil
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %s not %s after %d polls (last error: %v)", ErrConfirmationTimeout, sig, level, polls, lastErr)
			}
			return nil, fmt.Errorf("%w: %s not %s after %d polls: %v", ErrConfirmationTimeout, sig, level, polls, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	statuses, err := c.RpcClient.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, transportError("get signature status", err)
	}
	if statuses == nil || len(statuses.Value) == 0 {
		return nil, nil
	}
	return statuses.Value[0], nil
}

func (c *Client) transactionRecord(ctx context.Context, sig solana.Signature, level Commitment) (*TransactionRecord, error) {
	result, err := c.RpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     level.RPC(),
		MaxSupportedTransactionVersion: &maxSupportedTransactionVersion,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, transportError("get transaction", err)
	}
	if result == nil {
		return nil, rpc.ErrNotFound
	}

	record := &TransactionRecord{
		Signature: sig,
		Slot:      result.Slot,
		Status:    StatusSuccess,
	}
	if result.Meta != nil {
		record.Logs = append([]string(nil), result.Meta.LogMessages...)
		if result.Meta.Err != nil {
			record.Status = StatusFailed
			record.Reason = failureReason(result.Meta.Err, record.Logs)
		}
	}
	return record, nil
}

// executionFailure builds the error for a status that carries an error, attaching the
// logs when the record can be fetched.
func (c *Client) executionFailure(ctx context.Context, sig solana.Signature, slot uint64, statusErr interface{}) error {
	failed := &ExecutionFailedError{Signature: sig, Reason: failureReason(statusErr, nil)}
	record, err := c.transactionRecord(ctx, sig, CommitmentConfirmed)
	if err == nil {
		failed.Logs = record.Logs
		failed.Reason = failureReason(statusErr, record.Logs)
	}
	c.logger.Warn().
		Str("signature", sig.String()).
		Uint64("slot", slot).
		Str("reason", failed.Reason).
		Msg("transaction failed on chain")
	return failed
}

func failureReason(remote interface{}, logs []string) string {
	if parsed := ParseProgramLogs(logs); parsed.FailureReason != "" {
		return parsed.FailureReason
	}
	return fmt.Sprintf("%v", remote)
}
