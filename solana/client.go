package solana_chainlink

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// Devnet addresses used by the solana_chainlink example program.
var (
	ChainlinkProgramID = solana.MustPublicKeyFromBase58("CaH12fwNTKJAG8PxEvo9R96Zc2j8qNHZaFj8ZW49yZNT")
	// SOL / USD
	DefaultFeed = solana.MustPublicKeyFromBase58("EdWr4ww1Dq82vPe8GFjjcVPo2Qno3Nhn6baCgM3dCy28")
)

const (
	// ExecuteOperation is the instruction the flow invokes.
	ExecuteOperation = "execute"
	// DecimalAccount is the account type it creates.
	DecimalAccount = "Decimal"
	// DefaultAccountSpace is what the program allocates for a Decimal account.
	DefaultAccountSpace = 100

	DefaultPollInterval   = 500 * time.Millisecond
	DefaultConfirmTimeout = 90 * time.Second
)

// ClientOptions tunes submission and confirmation.
type ClientOptions struct {
	// Commitment is used for account reads and preflight simulation.
	Commitment     Commitment
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	SkipPreflight  bool
}

// DefaultClientOptions returns the options used when none are given.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Commitment:     CommitmentConfirmed,
		PollInterval:   DefaultPollInterval,
		ConfirmTimeout: DefaultConfirmTimeout,
	}
}

func (o ClientOptions) withDefaults() ClientOptions {
	def := DefaultClientOptions()
	if o.Commitment == 0 {
		o.Commitment = def.Commitment
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = def.ConfirmTimeout
	}
	return o
}

// Client talks to a Solana RPC node on behalf of the feed consumer.
type Client struct {
	RpcClient *rpc.Client
	Signer    solana.PrivateKey
	Options   ClientOptions

	logger zerolog.Logger
}

// NewClient creates a new Client with a specific fee payer.
func NewClient(rpcEndpoint string, signer solana.PrivateKey, opts ClientOptions, logger zerolog.Logger) (*Client, error) {
	if rpcEndpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is empty")
	}
	if len(signer) != solana.PrivateKeyLength {
		return nil, fmt.Errorf("invalid fee payer key length: expected %d, got %d", solana.PrivateKeyLength, len(signer))
	}

	return &Client{
		RpcClient: rpc.New(rpcEndpoint),
		Signer:    signer,
		Options:   opts.withDefaults(),
		logger:    logger.With().Str("component", "feed_client").Logger(),
	}, nil
}

// NewReadOnlyClient creates a new client for read-only operations that don't require a signer.
// It uses a dummy keypair internally.
func NewReadOnlyClient(rpcEndpoint string, opts ClientOptions, logger zerolog.Logger) (*Client, error) {
	return NewClient(rpcEndpoint, solana.NewWallet().PrivateKey, opts, logger)
}

// FeePayer returns the address that pays for and signs submitted transactions.
func (c *Client) FeePayer() solana.PublicKey {
	return c.Signer.PublicKey()
}
