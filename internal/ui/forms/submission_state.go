package forms

import (
	"errors"

	"github.com/Its-donkey/dynamix-mint/internal/mint"
	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
	"github.com/Its-donkey/dynamix-mint/internal/ui/state"
	"github.com/Its-donkey/dynamix-mint/internal/wallet"
)

// ClearFormFields empties every input and field error.
func ClearFormFields() {
	state.Mint.Name = ""
	state.Mint.Position = ""
	state.Mint.Nationality = ""
	state.Mint.Goals = ""
	state.Mint.Matches = ""
	state.Mint.WorldCups = ""
	state.Mint.Image = nil
	state.Mint.Errors = make(map[string]string)
}

// ResetFormState clears the form and, optionally, the last result banner.
func ResetFormState(includeResult bool) {
	ClearFormFields()
	state.Mint.Submitting = false
	if includeResult {
		state.Mint.ResultMessage = ""
		state.Mint.ResultState = model.ResultNone
		state.Mint.ResultLink = ""
	}
}

// ClearFieldError drops the message for field once the user edits it.
func ClearFieldError(field string) bool {
	if _, ok := state.Mint.Errors[field]; !ok {
		return false
	}
	delete(state.Mint.Errors, field)
	return true
}

// NoteChainChanged updates a pending banner after the wallet switched
// networks. The attempt keeps the account and network it started with.
func NoteChainChanged() bool {
	if !state.Mint.Submitting || state.Mint.ResultState != model.ResultPending {
		return false
	}
	state.Mint.ResultMessage = "Network changed. Finishing the mint started on the previous network..."
	return true
}

// ApplyResult records the outcome of a submission on the form. current is
// the wallet session at the time the result arrives.
func ApplyResult(res mint.Result, current wallet.Session) {
	state.Mint.Submitting = false
	state.Mint.ResultLink = ""

	if res.Succeeded() {
		state.Mint.ResultState = model.ResultSuccess
		state.Mint.ResultMessage = "NFT Minted Successfully!"
		state.Mint.ResultLink = res.TxRef
		if res.StaleFor(current) {
			state.Mint.ResultMessage += " Minted to " + FormatAddress(res.Submitter) + "."
		}
		ClearFormFields()
		return
	}

	state.Mint.ResultState = model.ResultError
	state.Mint.ResultMessage = FailureMessage(res)

	var verr *mint.ValidationError
	if errors.As(res.Err, &verr) {
		state.Mint.Errors = make(map[string]string, len(verr.Fields))
		for field, msg := range verr.Fields {
			state.Mint.Errors[field] = msg
		}
	}
	if res.Stage == mint.StageMint && res.MetadataURI != "" {
		state.Mint.ResultLink = res.MetadataURI
	}
}

// FailureMessage turns a failed result into the banner text.
func FailureMessage(res mint.Result) string {
	switch res.Stage {
	case mint.StageValidation:
		var verr *mint.ValidationError
		if errors.As(res.Err, &verr) {
			if _, ok := verr.Fields[mint.FieldAccount]; ok && len(verr.Fields) == 1 {
				return "Connect a wallet before minting."
			}
		}
		return "Please fix the highlighted fields."
	case mint.StageUpload:
		var uerr *mint.UploadError
		if errors.As(res.Err, &uerr) && uerr.Kind == mint.UploadServerStatus {
			return "Upload service is unavailable, please try again."
		}
		return "Could not upload the card: " + res.Reason
	case mint.StageMint:
		var merr *mint.MintError
		if errors.As(res.Err, &merr) {
			switch merr.Kind {
			case mint.MintSignatureRejected:
				return "Transaction was rejected in the wallet."
			case mint.MintReverted:
				return "Error minting NFT: the transaction reverted."
			}
		}
		return "Error minting NFT: " + res.Reason
	default:
		return "Error minting NFT"
	}
}
