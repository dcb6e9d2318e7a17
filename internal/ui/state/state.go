package state

import (
	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
)

var (
	// Mint holds the reactive state for the mint form.
	Mint = model.MintFormState{Errors: make(map[string]string)}

	// Wallet mirrors the last session published by the wallet manager.
	Wallet model.WalletView

	// Boot is the configuration the page was served with.
	Boot model.BootConfig
)
