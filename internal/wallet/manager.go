package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Its-donkey/dynamix-mint/logging"
)

const defaultProbeTimeout = 15 * time.Second

// Options configures a Manager.
type Options struct {
	Logger *logging.Logger
	// ProbeTimeout bounds the account probe that follows a chain change.
	ProbeTimeout time.Duration
}

// Manager is the single owner of the client's wallet Session. All methods are
// safe for concurrent use; provider notifications may arrive on any goroutine.
type Manager struct {
	provider     Provider
	logger       *logging.Logger
	probeTimeout time.Duration

	mu          sync.RWMutex
	session     Session
	invalidated chan struct{}
	watchers    map[int]func(Session)
	nextWatcher int
	// generation is bumped by Disconnect; a Connect whose generation moved
	// on while the provider call was outstanding drops its result.
	generation uint64

	connectMu  sync.Mutex
	listenOnce sync.Once
	subsMu     sync.Mutex
	subs       []Subscription
	closed     bool
}

// NewManager creates a manager in StatusUninitialized. provider may be nil
// when no wallet is installed.
func NewManager(provider Provider, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	return &Manager{
		provider:     provider,
		logger:       opts.Logger,
		probeTimeout: opts.ProbeTimeout,
		session:      Session{Status: StatusUninitialized},
		invalidated:  make(chan struct{}),
		watchers:     make(map[int]func(Session)),
	}
}

// CurrentSession returns a snapshot of the session without blocking on any
// provider call.
func (m *Manager) CurrentSession() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Invalidated returns a channel that is closed at the next chain change.
// Callers should fetch a fresh channel after it fires.
func (m *Manager) Invalidated() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invalidated
}

// Watch registers fn to receive every session change.
func (m *Manager) Watch(fn func(Session)) func() {
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers, id)
			m.mu.Unlock()
		})
	}
}

// Start runs the startup probe: it lists already-authorised accounts without
// prompting the user and registers the provider listeners. Calling Start
// after the session has left StatusUninitialized only returns the session.
// Without a provider the session passes through StatusConnecting and settles
// in StatusError.
func (m *Manager) Start(ctx context.Context) Session {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	if current := m.CurrentSession(); current.Status != StatusUninitialized {
		return current
	}
	epoch := m.update(func(s *Session) {
		s.Status = StatusConnecting
		s.Address = ""
	}).Epoch
	if m.provider == nil {
		m.logger.Warn("wallet", "no wallet provider available", nil)
		return m.fail(ErrProviderUnavailable)
	}
	m.listen()
	return m.probe(ctx, epoch)
}

// Connect asks the provider for account access. It is a no-op while already
// connected. Concurrent calls are serialised and each observes the outcome
// of the previous one.
func (m *Manager) Connect(ctx context.Context) Session {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	if current := m.CurrentSession(); current.Connected() {
		return current
	}
	if m.provider == nil {
		return m.fail(ErrProviderUnavailable)
	}
	m.listen()
	var gen uint64
	m.update(func(s *Session) {
		gen = m.generation
		s.Status = StatusConnecting
		s.Address = ""
		s.LastError = ""
		s.Cause = nil
	})

	accounts, err := m.provider.RequestAccounts(ctx)
	session, applied := m.settleConnect(gen, accounts, err)
	switch {
	case !applied:
		m.logger.Info("wallet", "connection result dropped after disconnect", nil)
	case errors.Is(err, ErrProviderRejected):
		m.logger.Warn("wallet", "connection request rejected", nil)
	case err != nil:
		m.logger.Error("wallet", "connection request failed", err, nil)
	case session.Connected():
		m.logger.Info("wallet", "connected", map[string]any{"address": session.Address})
	}
	return session
}

// Disconnect forgets the connected account locally. The provider is not
// contacted and the session always ends in StatusDisconnected. It does not
// wait for an outstanding Connect; that Connect's result is discarded.
func (m *Manager) Disconnect() Session {
	session := m.update(func(s *Session) {
		m.generation++
		s.Status = StatusDisconnected
		s.Address = ""
		s.LastError = ""
		s.Cause = nil
	})
	m.logger.Info("wallet", "disconnected", nil)
	return session
}

// Close removes the provider listeners. The session keeps its last value.
func (m *Manager) Close() {
	m.subsMu.Lock()
	subs := m.subs
	m.subs = nil
	m.closed = true
	m.subsMu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (m *Manager) listen() {
	m.listenOnce.Do(func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		if m.closed {
			return
		}
		m.subs = append(m.subs,
			m.provider.OnAccountsChanged(m.handleAccountsChanged),
			m.provider.OnChainChanged(m.handleChainChanged),
		)
	})
}

func (m *Manager) handleAccountsChanged(accounts []string) {
	if len(accounts) == 0 {
		if m.CurrentSession().Status == StatusDisconnected {
			return
		}
		m.update(func(s *Session) {
			s.Status = StatusDisconnected
			s.Address = ""
		})
		m.logger.Info("wallet", "provider reported no accounts", nil)
		return
	}

	address, err := NormalizeAddress(accounts[0])
	if err != nil {
		m.fail(err)
		return
	}

	// Only a live connection follows account switches; a locally
	// disconnected session stays disconnected until Connect.
	_, changed := m.mutate(func(s *Session) bool {
		if s.Status != StatusConnected || s.Address == address {
			return false
		}
		s.Address = address
		return true
	})
	if changed {
		m.logger.Info("wallet", "account switched", map[string]any{"address": address})
	}
}

func (m *Manager) handleChainChanged(chainID string) {
	session := m.update(func(s *Session) {
		close(m.invalidated)
		m.invalidated = make(chan struct{})
		s.Epoch++
		s.ChainID = chainID
		s.Status = StatusConnecting
		s.Address = ""
		s.LastError = ""
		s.Cause = nil
	})
	m.logger.Info("wallet", "chain changed", map[string]any{"chain_id": chainID, "epoch": session.Epoch})

	ctx, cancel := context.WithTimeout(context.Background(), m.probeTimeout)
	defer cancel()
	m.probe(ctx, session.Epoch)
}

// probe lists accounts and settles a Connecting session. A result is dropped
// if another transition happened while the provider call was outstanding.
func (m *Manager) probe(ctx context.Context, epoch uint64) Session {
	accounts, err := m.provider.Accounts(ctx)

	result, applied := m.mutate(func(s *Session) bool {
		if s.Epoch != epoch || s.Status != StatusConnecting {
			return false
		}
		if err != nil {
			setError(s, err)
			return true
		}
		if len(accounts) == 0 {
			s.Status = StatusDisconnected
			s.Address = ""
			return true
		}
		address, nerr := NormalizeAddress(accounts[0])
		if nerr != nil {
			setError(s, nerr)
			return true
		}
		s.Status = StatusConnected
		s.Address = address
		return true
	})
	if !applied {
		return result
	}
	if err != nil {
		m.logger.Error("wallet", "account probe failed", err, nil)
	} else {
		m.logger.Info("wallet", "account probe finished", map[string]any{"status": result.Status.String(), "address": result.Address})
	}
	return result
}

// settleConnect applies the outcome of RequestAccounts unless Disconnect ran
// since gen was taken.
func (m *Manager) settleConnect(gen uint64, accounts []string, err error) (Session, bool) {
	var address string
	if err == nil && len(accounts) > 0 {
		address, err = NormalizeAddress(accounts[0])
	}
	return m.mutate(func(s *Session) bool {
		if m.generation != gen {
			return false
		}
		switch {
		case err != nil:
			setError(s, err)
		case address == "":
			s.Status = StatusDisconnected
			s.Address = ""
		default:
			s.Status = StatusConnected
			s.Address = address
			s.LastError = ""
			s.Cause = nil
		}
		return true
	})
}

func (m *Manager) fail(err error) Session {
	return m.update(func(s *Session) { setError(s, err) })
}

func setError(s *Session, err error) {
	s.Status = StatusError
	s.Address = ""
	s.LastError = err.Error()
	s.Cause = err
}

func (m *Manager) update(fn func(*Session)) Session {
	session, _ := m.mutate(func(s *Session) bool {
		fn(s)
		return true
	})
	return session
}

// mutate applies fn under the write lock and notifies watchers if fn reports
// a change. It returns the session as left by fn.
func (m *Manager) mutate(fn func(*Session) bool) (Session, bool) {
	m.mu.Lock()
	changed := fn(&m.session)
	session := m.session
	watchers := make([]func(Session), 0, len(m.watchers))
	if changed {
		for _, w := range m.watchers {
			watchers = append(watchers, w)
		}
	}
	m.mu.Unlock()

	for _, w := range watchers {
		w(session)
	}
	return session, changed
}
