package forms

import (
	"testing"

	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
	"github.com/Its-donkey/dynamix-mint/internal/wallet"
)

func TestFormatAddress(t *testing.T) {
	cases := []struct {
		name string
		in   string
		out  string
	}{
		{name: "blank", in: "", out: ""},
		{name: "full", in: "0x1234567890abcdef1234567890abcdef1234abcd", out: "0x1234...abcd"},
		{name: "short", in: "0x1", out: "0x1"},
	}
	for _, tc := range cases {
		if got := FormatAddress(tc.in); got != tc.out {
			t.Fatalf("%s: expected %q got %q", tc.name, tc.out, got)
		}
	}
}

func TestConnectLabel(t *testing.T) {
	connected := wallet.Session{Status: wallet.StatusConnected, Address: "0x1234567890abcdef1234567890abcdef1234abcd"}
	cases := []struct {
		name string
		view model.WalletView
		out  string
	}{
		{name: "idle", view: model.WalletView{}, out: "Connect Wallet"},
		{name: "disconnected", view: model.WalletView{Session: wallet.Session{Status: wallet.StatusDisconnected}}, out: "Connect Wallet"},
		{name: "probing", view: model.WalletView{Session: wallet.Session{Status: wallet.StatusConnecting}}, out: "Connecting..."},
		{name: "prompt open", view: model.WalletView{Busy: true}, out: "Connecting..."},
		{name: "connected", view: model.WalletView{Session: connected}, out: "0x1234...abcd"},
	}
	for _, tc := range cases {
		if got := ConnectLabel(tc.view); got != tc.out {
			t.Fatalf("%s: expected %q got %q", tc.name, tc.out, got)
		}
	}
}

func TestSubmitLabel(t *testing.T) {
	connected := model.WalletView{Session: wallet.Session{Status: wallet.StatusConnected, Address: "0xabc"}}
	if got := SubmitLabel(model.WalletView{}, false); got != "Connect Wallet to Mint" {
		t.Fatalf("expected connect prompt, got %q", got)
	}
	if got := SubmitLabel(connected, false); got != "Mint NFT" {
		t.Fatalf("expected mint label, got %q", got)
	}
	if got := SubmitLabel(connected, true); got != "Minting..." {
		t.Fatalf("expected busy label, got %q", got)
	}
}

func TestWalletNotice(t *testing.T) {
	if got := WalletNotice(wallet.Session{Status: wallet.StatusConnected}); got != "" {
		t.Fatalf("expected no notice, got %q", got)
	}
	if got := WalletNotice(wallet.Session{Status: wallet.StatusError, LastError: "no wallet"}); got != "no wallet" {
		t.Fatalf("expected last error, got %q", got)
	}
}

func TestFieldClass(t *testing.T) {
	errs := map[string]string{"name": "Name is required"}
	if got := FieldClass(errs, "name"); got != "form-field form-field-error" {
		t.Fatalf("unexpected class %q", got)
	}
	if got := FieldClass(errs, "goals"); got != "form-field" {
		t.Fatalf("unexpected class %q", got)
	}
}
