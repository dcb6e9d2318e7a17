package model

import "github.com/Its-donkey/dynamix-mint/internal/wallet"

// Result states rendered on the mint form.
const (
	ResultNone    = ""
	ResultPending = "pending"
	ResultSuccess = "success"
	ResultError   = "error"
)

// ImageUpload holds the artwork picked in the file input.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MintFormState captures the mint form as typed, plus its submission status.
// Numeric fields stay strings until the form is parsed.
type MintFormState struct {
	Name        string
	Position    string
	Nationality string
	Goals       string
	Matches     string
	WorldCups   string
	Image       *ImageUpload

	Errors map[string]string

	Submitting    bool
	ResultState   string
	ResultMessage string
	// ResultLink points at the transaction or metadata of the last attempt.
	ResultLink string
}

// WalletView is what the navigation bar renders for the wallet button.
type WalletView struct {
	Session wallet.Session
	// Busy is set while a connect prompt is open.
	Busy bool
}

// BootConfig is injected into the page by the UI server and read by the
// browser bundle on start.
type BootConfig struct {
	UploadURL       string `json:"uploadUrl"`
	ContractAddress string `json:"contractAddress"`
	GatewayURL      string `json:"gatewayUrl,omitempty"`
	LogLevel        string `json:"logLevel,omitempty"`
}
