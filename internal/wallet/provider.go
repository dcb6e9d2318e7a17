package wallet

import (
	"context"
	"slices"
	"sync"
)

// Transaction is the payload handed to the provider for signing and sending.
// Data is the 0x-prefixed hex encoding of the call data.
type Transaction struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value,omitempty"`
	Gas   string `json:"gas,omitempty"`
}

// Provider is an injected wallet (EIP-1193 or equivalent).
type Provider interface {
	// RequestAccounts asks the user to authorise account access.
	RequestAccounts(ctx context.Context) ([]string, error)
	// Accounts lists already-authorised accounts without prompting.
	Accounts(ctx context.Context) ([]string, error)
	// SendTransaction signs and submits tx, returning the transaction hash.
	SendTransaction(ctx context.Context, tx Transaction) (string, error)
	OnAccountsChanged(fn func(accounts []string)) Subscription
	OnChainChanged(fn func(chainID string)) Subscription
}

// Subscription is a registered provider listener. Unsubscribe may be called
// more than once.
type Subscription interface {
	Unsubscribe()
}

type funcSubscription struct {
	once sync.Once
	fn   func()
}

func (s *funcSubscription) Unsubscribe() {
	s.once.Do(s.fn)
}

// NewSubscription wraps fn so it runs at most once.
func NewSubscription(fn func()) Subscription {
	if fn == nil {
		fn = func() {}
	}
	return &funcSubscription{fn: fn}
}

// Listeners is a small registry used by providers to fan out notifications.
type Listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

// Add registers fn until the returned subscription is cancelled.
func (l *Listeners[T]) Add(fn func(T)) Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return NewSubscription(func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	})
}

// Emit calls every registered listener with v, in registration order.
func (l *Listeners[T]) Emit(v T) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	fns := make([]func(T), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the number of active listeners.
func (l *Listeners[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}
