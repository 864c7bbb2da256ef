package solana_chainlink

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// FlowState is a stage of one execute run.
type FlowState string

const (
	StatePending   FlowState = ""
	StateBuilt     FlowState = "Built"
	StateSubmitted FlowState = "Submitted"
	StateConfirmed FlowState = "Confirmed"
	StateFailed    FlowState = "Failed"
	StateTimedOut  FlowState = "TimedOut"
	StateDecoded   FlowState = "Decoded"
)

var flowTransitions = map[FlowState][]FlowState{
	StatePending:   {StateBuilt, StateFailed},
	StateBuilt:     {StateSubmitted, StateFailed},
	StateSubmitted: {StateConfirmed, StateFailed, StateTimedOut},
	StateConfirmed: {StateDecoded, StateFailed},
}

// CanTransition reports whether next may follow s. Terminal states have no successors.
func (s FlowState) CanTransition(next FlowState) bool {
	for _, allowed := range flowTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s FlowState) Terminal() bool {
	return s == StateFailed || s == StateTimedOut || s == StateDecoded
}

// FeedRequest names the accounts of one execute invocation.
type FeedRequest struct {
	IDL              *IDL
	ProgramID        solana.PublicKey
	Feed             solana.PublicKey
	ChainlinkProgram solana.PublicKey

	// Commitment to wait for. Zero uses the client commitment.
	Commitment Commitment
	// Space is the allocated size of the Decimal account. Zero or less uses DefaultAccountSpace.
	Space int
	// SkipFeedCheck disables the existence check of Feed before anything is submitted.
	SkipFeedCheck bool
}

// FeedResult records how far a run got.
type FeedResult struct {
	State       FlowState
	Transitions []FlowState

	Account   solana.PublicKey
	FeePayer  solana.PublicKey
	Signature solana.Signature
	Record    *TransactionRecord
	Logs      ProgramLogs
	Decoded   *DecodedAccount
	Decimal   *Decimal
}

func (r *FeedResult) transition(next FlowState) {
	if !r.State.CanTransition(next) {
		panic(fmt.Sprintf("invalid flow transition %q -> %q", r.State, next))
	}
	r.State = next
	r.Transitions = append(r.Transitions, next)
}

// fail moves the run to its terminal failure state for err and returns err.
func (r *FeedResult) fail(err error) error {
	if errors.Is(err, ErrConfirmationTimeout) && r.State == StateSubmitted {
		r.transition(StateTimedOut)
	} else {
		r.transition(StateFailed)
	}
	return err
}

// ExecuteFeed runs the whole flow once: it generates the account identity, builds and
// submits execute, waits for the requested commitment and finally re-reads and decodes
// the new Decimal account. The returned result is never nil. Nothing is retried.
func (c *Client) ExecuteFeed(ctx context.Context, req FeedRequest) (*FeedResult, error) {
	result := &FeedResult{FeePayer: c.FeePayer()}

	level := req.Commitment
	if level == 0 {
		level = c.Options.Commitment
	}
	if req.ChainlinkProgram.IsZero() {
		req.ChainlinkProgram = ChainlinkProgramID
	}
	if req.Feed.IsZero() {
		req.Feed = DefaultFeed
	}

	// 1. Resolve the layout and check the feed
	// ----------------------------------------
	if req.IDL == nil {
		return result, result.fail(schemaMismatch("no program descriptor supplied"))
	}
	layout, err := req.IDL.DecimalLayout(req.Space)
	if err != nil {
		return result, result.fail(err)
	}

	if !req.SkipFeedCheck {
		exists, err := c.AccountExists(ctx, req.Feed)
		if err != nil {
			return result, result.fail(fmt.Errorf("failed to check feed account: %w", err))
		}
		if !exists {
			return result, result.fail(fmt.Errorf("%w: feed %s", ErrAccountNotFound, req.Feed))
		}
	}

	// 2. Build the instruction
	// ------------------------
	identity := NewAccountIdentity()
	result.Account = identity.PublicKey()

	ix, err := BuildInstruction(req.IDL, req.ProgramID, ExecuteOperation, map[string]solana.PublicKey{
		"decimal":          identity.PublicKey(),
		"user":             c.FeePayer(),
		"chainlinkFeed":    req.Feed,
		"chainlinkProgram": req.ChainlinkProgram,
		"systemProgram":    solana.SystemProgramID,
	}, nil)
	if err != nil {
		return result, result.fail(err)
	}
	result.transition(StateBuilt)
	c.logger.Info().
		Str("account", result.Account.String()).
		Str("fee_payer", result.FeePayer.String()).
		Str("program", req.ProgramID.String()).
		Str("feed", req.Feed.String()).
		Msg("instruction built")

	// 3. Submit it
	// ------------
	sig, err := c.Submit(ctx, ix, c.Signer, identity.PrivateKey)
	if err != nil {
		var failed *ExecutionFailedError
		if errors.As(err, &failed) {
			result.Logs = ParseProgramLogs(failed.Logs)
		}
		return result, result.fail(err)
	}
	result.Signature = sig
	result.transition(StateSubmitted)

	// 4. Wait for confirmation
	// ------------------------
	record, err := c.AwaitConfirmation(ctx, sig, level)
	if err != nil {
		var failed *ExecutionFailedError
		if errors.As(err, &failed) {
			result.Logs = ParseProgramLogs(failed.Logs)
		}
		return result, result.fail(err)
	}
	result.Record = record
	result.Logs = ParseProgramLogs(record.Logs)
	result.transition(StateConfirmed)

	// 5. Re-read the account from the ledger
	// --------------------------------------
	decoded, err := c.FetchAndDecode(ctx, result.Account, layout)
	if err != nil {
		return result, result.fail(err)
	}
	value, err := decoded.Decimal()
	if err != nil {
		return result, result.fail(err)
	}
	result.Decoded = decoded
	result.Decimal = &value
	result.transition(StateDecoded)

	c.logger.Info().
		Str("account", result.Account.String()).
		Str("value", value.String()).
		Uint32("decimals", value.Decimals).
		Msg("account decoded")
	return result, nil
}
