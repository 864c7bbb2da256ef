package solana_chainlink

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// FetchAndDecode re-reads the account at address from the ledger and decodes it with layout.
func (c *Client) FetchAndDecode(ctx context.Context, address solana.PublicKey, layout Layout) (*DecodedAccount, error) {
	data, err := c.fetchAccountData(ctx, address)
	if err != nil {
		return nil, err
	}

	account, err := DecodeAccount(data, layout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", address, err)
	}

	c.logger.Debug().
		Str("address", address.String()).
		Str("layout", layout.Name).
		Int("bytes", len(data)).
		Msg("account decoded")
	return account, nil
}

// AccountExists reports whether the ledger holds an account at address.
func (c *Client) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	_, err := c.fetchAccountData(ctx, address)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) fetchAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	resp, err := c.RpcClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.Options.Commitment.RPC(),
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	if err != nil {
		return nil, transportError("get account info", err)
	}
	if resp == nil || resp.Value == nil || resp.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}

	data := resp.Value.Data.GetBinary()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s holds no data", ErrAccountNotFound, address)
	}
	return data, nil
}

// ProgramAccount is a decoded account together with its address.
type ProgramAccount struct {
	PublicKey solana.PublicKey
	Account   *DecodedAccount
}

// FetchAllAccounts fetches every account owned by programID whose discriminator matches
// layout. Accounts that fail to decode are logged and skipped.
func (c *Client) FetchAllAccounts(ctx context.Context, programID solana.PublicKey, layout Layout) ([]ProgramAccount, error) {
	// Get all accounts owned by the program, filtered by the layout discriminator.
	resp, err := c.RpcClient.GetProgramAccountsWithOpts(
		ctx,
		programID,
		&rpc.GetProgramAccountsOpts{
			Commitment: c.Options.Commitment.RPC(),
			Encoding:   solana.EncodingBase64,
			Filters: []rpc.RPCFilter{
				{
					Memcmp: &rpc.RPCFilterMemcmp{
						Offset: 0,
						Bytes:  layout.Discriminator[:],
					},
				},
			},
		},
	)
	if err != nil {
		return nil, transportError("get program accounts", err)
	}

	var accounts []ProgramAccount
	for _, item := range resp {
		if item == nil || item.Account == nil || item.Account.Data == nil {
			continue
		}
		decoded, err := DecodeAccount(item.Account.Data.GetBinary(), layout)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("address", item.Pubkey.String()).
				Msg("skipping account that does not match layout")
			continue
		}
		accounts = append(accounts, ProgramAccount{PublicKey: item.Pubkey, Account: decoded})
	}
	return accounts, nil
}

// FetchAllDecimalAccounts lists every Decimal account the program owns.
func (c *Client) FetchAllDecimalAccounts(ctx context.Context, programID solana.PublicKey, idl *IDL, space int) ([]ProgramAccount, error) {
	layout, err := idl.DecimalLayout(space)
	if err != nil {
		return nil, err
	}
	return c.FetchAllAccounts(ctx, programID, layout)
}

// DecimalLayout returns the Decimal account layout allocated at space bytes.
// A space of zero or less means DefaultAccountSpace.
func (idl *IDL) DecimalLayout(space int) (Layout, error) {
	if space <= 0 {
		space = DefaultAccountSpace
	}
	layout, err := idl.Layout(DecimalAccount)
	if err != nil {
		return Layout{}, err
	}
	return layout.WithSpace(space), nil
}
