// Package wallet owns the connection between the client and an injected
// wallet provider. A single Manager per running client tracks which account is
// connected and reacts to the provider's account and chain notifications.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the connection state of a Session.
type Status int

const (
	StatusUninitialized Status = iota
	StatusConnecting
	StatusConnected
	StatusDisconnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is a snapshot of the wallet connection. Address is non-empty
// exactly when Status is StatusConnected.
type Session struct {
	Address   string `json:"address,omitempty"`
	Status    Status `json:"status"`
	LastError string `json:"lastError,omitempty"`
	Cause     error  `json:"-"`
	ChainID   string `json:"chainId,omitempty"`
	Epoch     uint64 `json:"epoch"`
}

// Connected reports whether the session has an active account.
func (s Session) Connected() bool {
	return s.Status == StatusConnected && s.Address != ""
}

var (
	// ErrProviderUnavailable means no wallet provider is present.
	ErrProviderUnavailable = errors.New("wallet: no provider available")
	// ErrProviderRejected means the user declined a provider request.
	ErrProviderRejected = errors.New("wallet: request rejected by user")
	// ErrInvalidAccount means the provider returned something that is not an address.
	ErrInvalidAccount = errors.New("wallet: provider returned an invalid account")
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected   = 4001
	CodeUnauthorized   = 4100
	CodeMethodNotFound = -32601
)

// ProviderError is an error reported by the wallet provider itself.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wallet provider error %d", e.Code)
	}
	return fmt.Sprintf("wallet provider error %d: %s", e.Code, e.Message)
}

// ErrorCode exposes the code the same way go-ethereum's rpc errors do.
func (e *ProviderError) ErrorCode() int {
	return e.Code
}

// Is makes a user-rejection error match ErrProviderRejected.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderRejected && e.Code == CodeUserRejected
}

// NormalizeAddress validates a hex account and returns it lower-cased.
func NormalizeAddress(account string) (string, error) {
	account = strings.TrimSpace(account)
	if !common.IsHexAddress(account) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}
	return strings.ToLower(common.HexToAddress(account).Hex()), nil
}
