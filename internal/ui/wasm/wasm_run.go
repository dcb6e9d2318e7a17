//go:build js && wasm

package wasm

import (
	"context"
	"encoding/json"
	"strings"
	"syscall/js"
	"time"

	"github.com/Its-donkey/dynamix-mint/internal/contract"
	"github.com/Its-donkey/dynamix-mint/internal/mint"
	"github.com/Its-donkey/dynamix-mint/internal/ui/forms"
	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
	"github.com/Its-donkey/dynamix-mint/internal/ui/state"
	"github.com/Its-donkey/dynamix-mint/internal/upload"
	"github.com/Its-donkey/dynamix-mint/internal/wallet"
	"github.com/Its-donkey/dynamix-mint/internal/wallet/jsprovider"
	"github.com/Its-donkey/dynamix-mint/logging"
)

// RunApp bootstraps the DynamiX WASM UI and blocks forever.
func RunApp() {
	done := make(chan struct{})
	window := js.Global()
	Document = window.Get("document")

	state.Boot = readBootConfig()
	logger := logging.New("wasm", logging.ParseLevel(state.Boot.LogLevel), consoleWriter{})

	// Nil interface when no wallet is injected; the manager reports that as
	// an error session.
	var provider wallet.Provider
	if p, ok := jsprovider.Detect(); ok {
		provider = p
	} else {
		logger.Warn("wallet", "no injected wallet found", nil)
	}
	manager = wallet.NewManager(provider, wallet.Options{Logger: logger})

	buildShell()
	initMintForm(manager, provider, logger)

	manager.Watch(func(s wallet.Session) {
		state.Wallet.Session = s
		renderWallet()
		forms.RenderMintForm()
	})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		manager.Start(ctx)
	}()
	<-done
}

func readBootConfig() model.BootConfig {
	boot := model.BootConfig{}
	root := Document.Call("getElementById", "app-root")
	if root.Truthy() {
		if raw := root.Call("getAttribute", "data-boot"); raw.Type() == js.TypeString {
			if err := json.Unmarshal([]byte(raw.String()), &boot); err != nil {
				js.Global().Get("console").Call("warn", "invalid boot config", err.Error())
			}
		}
	}
	if strings.TrimSpace(boot.UploadURL) == "" {
		boot.UploadURL = js.Global().Get("location").Get("origin").String()
	}
	return boot
}

func buildShell() {
	root := Document.Call("getElementById", "app-root")
	if !root.Truthy() {
		js.Global().Get("console").Call("error", "app root missing")
		return
	}
	root.Set("innerHTML", mainLayout())
	renderWallet()
}

func initMintForm(manager *wallet.Manager, provider wallet.Provider, logger *logging.Logger) {
	state.Mint = model.MintFormState{Errors: make(map[string]string)}
	forms.OnWalletPrompt = func(bool) { renderWallet() }

	uploader := upload.NewClient(state.Boot.UploadURL, upload.Options{Logger: logger, StrictCID: true})

	var minter mint.Minter = unavailableMinter{}
	if provider != nil {
		m, err := contract.NewMinter(state.Boot.ContractAddress, provider, contract.Options{Logger: logger})
		if err != nil {
			logger.Error("contract", "contract not configured", err, map[string]any{"address": state.Boot.ContractAddress})
		} else {
			minter = m
		}
	}

	pipeline := mint.NewPipeline(manager, uploader, minter, mint.Options{Logger: logger})
	forms.Configure(pipeline, manager)
	forms.RenderMintForm()
}

// unavailableMinter fails every mint when no wallet or contract is available.
type unavailableMinter struct{}

func (unavailableMinter) Mint(context.Context, mint.MintCall) (string, error) {
	return "", &mint.MintError{Kind: mint.MintTransport, Err: wallet.ErrProviderUnavailable}
}
