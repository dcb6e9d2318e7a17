package forms

import (
	"strings"

	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
	"github.com/Its-donkey/dynamix-mint/internal/wallet"
)

// FormatAddress shortens an account to 0x1234...abcd for display.
func FormatAddress(address string) string {
	address = strings.TrimSpace(address)
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// ConnectLabel is the wallet button text for the navigation bar.
func ConnectLabel(view model.WalletView) string {
	switch {
	case view.Busy || view.Session.Status == wallet.StatusConnecting:
		return "Connecting..."
	case view.Session.Connected():
		return FormatAddress(view.Session.Address)
	default:
		return "Connect Wallet"
	}
}

// SubmitLabel is the mint button text.
func SubmitLabel(view model.WalletView, submitting bool) string {
	switch {
	case submitting:
		return "Minting..."
	case view.Session.Connected():
		return "Mint NFT"
	default:
		return "Connect Wallet to Mint"
	}
}

// WalletNotice returns the inline error shown under the wallet button, if
// any.
func WalletNotice(session wallet.Session) string {
	if session.Status != wallet.StatusError {
		return ""
	}
	if session.LastError == "" {
		return "Wallet error"
	}
	return session.LastError
}

// FieldClass returns the CSS class for a form field wrapper.
func FieldClass(errs map[string]string, field string) string {
	if _, ok := errs[field]; ok {
		return "form-field form-field-error"
	}
	return "form-field"
}
