//go:build js && wasm

// Package jsprovider exposes the browser's injected window.ethereum object
// (EIP-1193) as a wallet.Provider.
//
// Every method that waits on a Promise must be called from a goroutine, never
// directly from a JS callback, or the event loop deadlocks.
package jsprovider

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/Its-donkey/dynamix-mint/internal/wallet"
)

// Provider wraps window.ethereum.
type Provider struct {
	ethereum js.Value
	events   dispatcher
}

// Detect returns the injected provider, or false when no wallet is installed.
func Detect() (*Provider, bool) {
	ethereum := js.Global().Get("ethereum")
	if !ethereum.Truthy() {
		return nil, false
	}
	return &Provider{ethereum: ethereum}, true
}

func (p *Provider) request(ctx context.Context, method string, params ...any) (js.Value, error) {
	args := map[string]any{"method": method}
	if len(params) > 0 {
		args["params"] = params
	}
	promise := p.ethereum.Call("request", args)
	return await(ctx, promise)
}

// RequestAccounts implements wallet.Provider via eth_requestAccounts.
func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	v, err := p.request(ctx, "eth_requestAccounts")
	if err != nil {
		return nil, err
	}
	return stringSlice(v), nil
}

// Accounts implements wallet.Provider via eth_accounts.
func (p *Provider) Accounts(ctx context.Context) ([]string, error) {
	v, err := p.request(ctx, "eth_accounts")
	if err != nil {
		return nil, err
	}
	return stringSlice(v), nil
}

// SendTransaction implements wallet.Provider via eth_sendTransaction.
func (p *Provider) SendTransaction(ctx context.Context, tx wallet.Transaction) (string, error) {
	payload := map[string]any{
		"from": tx.From,
		"to":   tx.To,
		"data": tx.Data,
	}
	if tx.Value != "" {
		payload["value"] = tx.Value
	}
	if tx.Gas != "" {
		payload["gas"] = tx.Gas
	}
	v, err := p.request(ctx, "eth_sendTransaction", payload)
	if err != nil {
		return "", err
	}
	if v.Type() != js.TypeString {
		return "", fmt.Errorf("eth_sendTransaction returned %s", v.Type())
	}
	return v.String(), nil
}

// OnAccountsChanged implements wallet.Provider.
func (p *Provider) OnAccountsChanged(fn func([]string)) wallet.Subscription {
	return p.on("accountsChanged", func(v js.Value) { fn(stringSlice(v)) })
}

// OnChainChanged implements wallet.Provider.
func (p *Provider) OnChainChanged(fn func(string)) wallet.Subscription {
	return p.on("chainChanged", func(v js.Value) {
		if v.Type() == js.TypeString {
			fn(v.String())
		}
	})
}

// on registers a provider event listener. Handlers run on the provider's
// event goroutine, in emission order, so they may issue further provider
// requests.
func (p *Provider) on(event string, handle func(js.Value)) wallet.Subscription {
	cb := js.FuncOf(func(_ js.Value, args []js.Value) any {
		arg := js.Undefined()
		if len(args) > 0 {
			arg = args[0]
		}
		p.events.push(func() { handle(arg) })
		return nil
	})
	p.ethereum.Call("on", event, cb)
	return wallet.NewSubscription(func() {
		if remove := p.ethereum.Get("removeListener"); remove.Truthy() {
			p.ethereum.Call("removeListener", event, cb)
		}
		cb.Release()
	})
}

func await(ctx context.Context, promise js.Value) (js.Value, error) {
	settled := make(chan struct{})
	var (
		value  js.Value
		reason js.Value
		failed bool
	)
	onResolve := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) > 0 {
			value = args[0]
		}
		close(settled)
		return nil
	})
	onReject := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) > 0 {
			reason = args[0]
		}
		failed = true
		close(settled)
		return nil
	})
	release := func() {
		onResolve.Release()
		onReject.Release()
	}
	promise.Call("then", onResolve, onReject)

	select {
	case <-settled:
		release()
		if failed {
			return js.Undefined(), toError(reason)
		}
		return value, nil
	case <-ctx.Done():
		go func() {
			<-settled
			release()
		}()
		return js.Undefined(), ctx.Err()
	}
}

func toError(reason js.Value) error {
	if reason.Type() != js.TypeObject {
		return &wallet.ProviderError{Message: fmt.Sprint(reason)}
	}
	perr := &wallet.ProviderError{}
	if code := reason.Get("code"); code.Type() == js.TypeNumber {
		perr.Code = code.Int()
	}
	if msg := reason.Get("message"); msg.Type() == js.TypeString {
		perr.Message = msg.String()
	}
	return perr
}

func stringSlice(v js.Value) []string {
	if v.Type() != js.TypeObject {
		return nil
	}
	n := v.Length()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if item := v.Index(i); item.Type() == js.TypeString {
			out = append(out, item.String())
		}
	}
	return out
}
