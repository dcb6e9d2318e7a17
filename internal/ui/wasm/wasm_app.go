//go:build js && wasm

package wasm

import (
	"context"
	"html"
	"strings"
	"syscall/js"

	"github.com/Its-donkey/dynamix-mint/internal/ui/forms"
	"github.com/Its-donkey/dynamix-mint/internal/ui/state"
	"github.com/Its-donkey/dynamix-mint/internal/wallet"
)

var (
	// Document references the global browser document for DOM interactions.
	Document js.Value
	manager  *wallet.Manager
	// walletHandlers stores bound js.Func callbacks so they can be released later.
	walletHandlers []js.Func
)

func mainLayout() string {
	return `<header class="navbar">
  <a class="brand" href="/">DynamiX</a>
  <div class="wallet" id="wallet-slot"></div>
</header>
<main class="page">
  <div id="mint-section"></div>
</main>`
}

func renderWallet() {
	slot := Document.Call("getElementById", "wallet-slot")
	if !slot.Truthy() {
		return
	}
	for _, fn := range walletHandlers {
		fn.Release()
	}
	walletHandlers = walletHandlers[:0]

	session := state.Wallet.Session
	var builder strings.Builder
	disabled := ""
	if state.Wallet.Busy || session.Status == wallet.StatusConnecting {
		disabled = " disabled"
	}
	builder.WriteString(`<button type="button" class="wallet-button" id="wallet-button"` + disabled + `>`)
	builder.WriteString(html.EscapeString(forms.ConnectLabel(state.Wallet)))
	builder.WriteString(`</button>`)
	if notice := forms.WalletNotice(session); notice != "" {
		builder.WriteString(`<span class="wallet-error" role="alert">` + html.EscapeString(notice) + `</span>`)
	}
	slot.Set("innerHTML", builder.String())

	button := Document.Call("getElementById", "wallet-button")
	if !button.Truthy() {
		return
	}
	fn := js.FuncOf(func(js.Value, []js.Value) any {
		toggleWallet()
		return nil
	})
	button.Call("addEventListener", "click", fn)
	walletHandlers = append(walletHandlers, fn)
}

// toggleWallet connects when there is no account and disconnects otherwise.
func toggleWallet() {
	if manager == nil || state.Wallet.Busy {
		return
	}
	if manager.CurrentSession().Connected() {
		manager.Disconnect()
		return
	}
	state.Wallet.Busy = true
	renderWallet()
	forms.RenderMintForm()
	go func() {
		manager.Connect(context.Background())
		state.Wallet.Busy = false
		renderWallet()
		forms.RenderMintForm()
	}()
}

// consoleWriter forwards log lines to the browser console.
type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	js.Global().Get("console").Call("log", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
