// Package rpcprovider adapts an Ethereum JSON-RPC endpoint with unlocked or
// node-managed accounts to wallet.Provider. It is what the command line
// minter and integration tests use in place of a browser wallet.
package rpcprovider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/Its-donkey/dynamix-mint/internal/wallet"
	"github.com/Its-donkey/dynamix-mint/logging"
)

// Options configures a Provider.
type Options struct {
	Logger *logging.Logger
}

// Provider is a wallet.Provider backed by an rpc.Client.
type Provider struct {
	client *rpc.Client
	logger *logging.Logger

	accountsChanged wallet.Listeners[[]string]
	chainChanged    wallet.Listeners[string]

	mu           sync.Mutex
	lastAccounts []string
	lastChain    string
	observed     bool
}

// Dial connects to an HTTP, WebSocket or IPC endpoint.
func Dial(ctx context.Context, endpoint string, opts Options) (*Provider, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return New(client, opts), nil
}

// New wraps an existing client.
func New(client *rpc.Client, opts Options) *Provider {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Provider{client: client, logger: opts.Logger}
}

// Client exposes the underlying connection for receipt lookups.
func (p *Provider) Client() *rpc.Client {
	return p.client
}

// RequestAccounts calls eth_requestAccounts. Nodes that do not implement it
// fall back to eth_accounts.
func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts")
	if err != nil {
		var perr *wallet.ProviderError
		if errors.As(convert(err), &perr) && perr.Code == wallet.CodeMethodNotFound {
			return p.Accounts(ctx)
		}
		return nil, convert(err)
	}
	return accounts, nil
}

// Accounts calls eth_accounts.
func (p *Provider) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, convert(err)
	}
	return accounts, nil
}

// ChainID calls eth_chainId and returns the hex quantity.
func (p *Provider) ChainID(ctx context.Context) (string, error) {
	var id hexutil.Big
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return "", convert(err)
	}
	return id.String(), nil
}

// SendTransaction calls eth_sendTransaction.
func (p *Provider) SendTransaction(ctx context.Context, tx wallet.Transaction) (string, error) {
	args := map[string]string{
		"from": tx.From,
		"to":   tx.To,
		"data": tx.Data,
	}
	if tx.Value != "" {
		args["value"] = tx.Value
	}
	if tx.Gas != "" {
		args["gas"] = tx.Gas
	}
	var hash common.Hash
	if err := p.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return "", convert(err)
	}
	return hash.Hex(), nil
}

// OnAccountsChanged implements wallet.Provider. Notifications are produced by Watch.
func (p *Provider) OnAccountsChanged(fn func([]string)) wallet.Subscription {
	return p.accountsChanged.Add(fn)
}

// OnChainChanged implements wallet.Provider. Notifications are produced by Watch.
func (p *Provider) OnChainChanged(fn func(string)) wallet.Subscription {
	return p.chainChanged.Add(fn)
}

// Watch polls eth_accounts and eth_chainId every interval and emits change
// notifications until ctx ends. The first poll only records a baseline.
func (p *Provider) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Provider) poll(ctx context.Context) {
	accounts, err := p.Accounts(ctx)
	if err != nil {
		p.logger.Debug("wallet", "account poll failed", map[string]any{"error": err.Error()})
		return
	}
	chain, err := p.ChainID(ctx)
	if err != nil {
		p.logger.Debug("wallet", "chain poll failed", map[string]any{"error": err.Error()})
		return
	}

	p.mu.Lock()
	first := !p.observed
	chainChanged := !first && chain != p.lastChain
	accountsChanged := !first && !slices.Equal(accounts, p.lastAccounts)
	p.observed = true
	p.lastChain = chain
	p.lastAccounts = accounts
	p.mu.Unlock()

	if chainChanged {
		p.chainChanged.Emit(chain)
	}
	if accountsChanged {
		p.accountsChanged.Emit(accounts)
	}
}

// Close releases the connection.
func (p *Provider) Close() {
	p.client.Close()
}

// convert maps JSON-RPC errors onto wallet.ProviderError so callers can
// classify them without importing go-ethereum.
func convert(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &wallet.ProviderError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
	return err
}
