package solana_chainlink

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Error kinds surfaced by the client. Every error returned from this package wraps exactly one of them.
var (
	ErrSchemaMismatch      = errors.New("schema mismatch")
	ErrMissingSignature    = errors.New("missing signature")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrExecutionFailed     = errors.New("execution failed")
	ErrAccountNotFound     = errors.New("account not found")
	ErrLayoutMismatch      = errors.New("layout mismatch")
	ErrTransport           = errors.New("transport error")
)

// ExecutionFailedError is returned when the ledger reports that the program rejected the transaction,
// either during preflight simulation or after it landed.
type ExecutionFailedError struct {
	Signature solana.Signature
	Reason    string
	Logs      []string
}

func (e *ExecutionFailedError) Error() string {
	if e.Signature.IsZero() {
		return fmt.Sprintf("execution failed: %s", e.Reason)
	}
	return fmt.Sprintf("execution failed for %s: %s", e.Signature, e.Reason)
}

func (e *ExecutionFailedError) Unwrap() error {
	return ErrExecutionFailed
}

// ErrorKind returns the taxonomy name of err for display purposes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSchemaMismatch):
		return "SchemaMismatch"
	case errors.Is(err, ErrMissingSignature):
		return "MissingSignature"
	case errors.Is(err, ErrConfirmationTimeout):
		return "ConfirmationTimeout"
	case errors.Is(err, ErrExecutionFailed):
		return "ExecutionFailed"
	case errors.Is(err, ErrAccountNotFound):
		return "AccountNotFound"
	case errors.Is(err, ErrLayoutMismatch):
		return "LayoutMismatch"
	case errors.Is(err, ErrTransport):
		return "TransportError"
	default:
		return "Error"
	}
}

// transportError wraps an RPC failure so that it matches ErrTransport while keeping the cause.
func transportError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrTransport, op, err)
}

func schemaMismatch(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, fmt.Sprintf(format, args...))
}

func layoutMismatch(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrLayoutMismatch, fmt.Sprintf(format, args...))
}

func joinKeys(keys []solana.PublicKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}
