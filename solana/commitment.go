package solana_chainlink

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
)

// Commitment is a ledger finality level. Levels are ordered: Processed < Confirmed < Finalized.
type Commitment int

const (
	CommitmentProcessed Commitment = iota + 1
	CommitmentConfirmed
	CommitmentFinalized
)

func ParseCommitment(s string) (Commitment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "processed", "recent":
		return CommitmentProcessed, nil
	case "confirmed", "single", "singlegossip":
		return CommitmentConfirmed, nil
	case "finalized", "max", "root":
		return CommitmentFinalized, nil
	}
	return 0, fmt.Errorf("unknown commitment level %q (want processed, confirmed or finalized)", s)
}

func (c Commitment) String() string {
	switch c {
	case CommitmentProcessed:
		return "processed"
	case CommitmentConfirmed:
		return "confirmed"
	case CommitmentFinalized:
		return "finalized"
	}
	return fmt.Sprintf("Commitment(%d)", int(c))
}

// AtLeast reports whether c is as final as level.
func (c Commitment) AtLeast(level Commitment) bool {
	return c >= level
}

// RPC maps the level to the JSON-RPC commitment type.
func (c Commitment) RPC() rpc.CommitmentType {
	switch c {
	case CommitmentProcessed:
		return rpc.CommitmentProcessed
	case CommitmentFinalized:
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

// commitmentFromStatus maps a signature status to a level. Unknown statuses map to zero,
// which is below every level.
func commitmentFromStatus(status rpc.ConfirmationStatusType) Commitment {
	switch status {
	case rpc.ConfirmationStatusProcessed:
		return CommitmentProcessed
	case rpc.ConfirmationStatusConfirmed:
		return CommitmentConfirmed
	case rpc.ConfirmationStatusFinalized:
		return CommitmentFinalized
	}
	return 0
}

func maxCommitment(a, b Commitment) Commitment {
	if a > b {
		return a
	}
	return b
}
