// Package mock provides a scripted wallet provider for tests and offline demos.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/Its-donkey/dynamix-mint/internal/wallet"
)

// Provider implements wallet.Provider with controllable responses and call
// counters.
type Provider struct {
	mu              sync.Mutex
	accounts        []string
	requestErr      error
	accountsErr     error
	sendErr         error
	sendHash        string
	gate            chan struct{}
	requestCalls    int
	accountsCalls   int
	sent            []wallet.Transaction
	accountsChanged wallet.Listeners[[]string]
	chainChanged    wallet.Listeners[string]
}

// NewProvider returns a provider that authorises accounts on request.
func NewProvider(accounts ...string) *Provider {
	return &Provider{
		accounts: accounts,
		sendHash: "0x" + fmt.Sprintf("%064x", 1),
	}
}

// SetAccounts replaces the authorised accounts.
func (p *Provider) SetAccounts(accounts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = accounts
}

// FailRequests makes RequestAccounts return err.
func (p *Provider) FailRequests(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestErr = err
}

// FailAccounts makes Accounts return err.
func (p *Provider) FailAccounts(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accountsErr = err
}

// FailSends makes SendTransaction return err.
func (p *Provider) FailSends(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendErr = err
}

// SetTxHash sets the hash returned by successful sends.
func (p *Provider) SetTxHash(hash string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendHash = hash
}

// Hold makes RequestAccounts block until the returned release func is called
// or the request context ends.
func (p *Provider) Hold() (release func()) {
	gate := make(chan struct{})
	p.mu.Lock()
	p.gate = gate
	p.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// RequestAccounts implements wallet.Provider.
func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	p.requestCalls++
	gate := p.gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	return append([]string(nil), p.accounts...), nil
}

// Accounts implements wallet.Provider.
func (p *Provider) Accounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accountsCalls++
	if p.accountsErr != nil {
		return nil, p.accountsErr
	}
	return append([]string(nil), p.accounts...), nil
}

// SendTransaction implements wallet.Provider and records tx.
func (p *Provider) SendTransaction(ctx context.Context, tx wallet.Transaction) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, tx)
	if p.sendErr != nil {
		return "", p.sendErr
	}
	return p.sendHash, nil
}

// OnAccountsChanged implements wallet.Provider.
func (p *Provider) OnAccountsChanged(fn func([]string)) wallet.Subscription {
	return p.accountsChanged.Add(fn)
}

// OnChainChanged implements wallet.Provider.
func (p *Provider) OnChainChanged(fn func(string)) wallet.Subscription {
	return p.chainChanged.Add(fn)
}

// EmitAccountsChanged delivers an accountsChanged notification synchronously.
func (p *Provider) EmitAccountsChanged(accounts ...string) {
	p.SetAccounts(accounts...)
	p.accountsChanged.Emit(accounts)
}

// EmitChainChanged delivers a chainChanged notification synchronously.
func (p *Provider) EmitChainChanged(chainID string) {
	p.chainChanged.Emit(chainID)
}

// RequestCalls counts RequestAccounts invocations.
func (p *Provider) RequestCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requestCalls
}

// AccountsCalls counts Accounts invocations.
func (p *Provider) AccountsCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accountsCalls
}

// Sent returns the transactions passed to SendTransaction.
func (p *Provider) Sent() []wallet.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]wallet.Transaction(nil), p.sent...)
}

// ListenerCount reports active accountsChanged and chainChanged listeners.
func (p *Provider) ListenerCount() int {
	return p.accountsChanged.Len() + p.chainChanged.Len()
}
