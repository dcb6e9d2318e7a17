//go:build js && wasm

package forms

import (
	"context"
	"html"
	"strings"
	"syscall/js"

	"github.com/Its-donkey/dynamix-mint/internal/mint"
	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
	"github.com/Its-donkey/dynamix-mint/internal/ui/state"
	"github.com/Its-donkey/dynamix-mint/internal/wallet"
)

// Submitter runs a mint attempt.
type Submitter interface {
	Submit(ctx context.Context, d mint.Draft) mint.Result
}

// Wallet is the part of the wallet manager the form needs.
type Wallet interface {
	CurrentSession() wallet.Session
	Connect(ctx context.Context) wallet.Session
	Invalidated() <-chan struct{}
}

var (
	formHandlers    []js.Func
	runtimeDocument js.Value

	submitter    Submitter
	walletSource Wallet
	// OnWalletPrompt is called around a connect prompt started from the form.
	OnWalletPrompt func(busy bool)
)

// Configure wires the form to the pipeline and wallet manager.
func Configure(s Submitter, w Wallet) {
	submitter = s
	walletSource = w
}

func formDocument() js.Value {
	if !runtimeDocument.Truthy() {
		runtimeDocument = js.Global().Get("document")
	}
	return runtimeDocument
}

type textField struct {
	id, field, label, kind string
	value                  *string
}

func textFields() []textField {
	return []textField{
		{id: "mint-name", field: mint.FieldName, label: "Player Name", kind: "text", value: &state.Mint.Name},
		{id: "mint-nationality", field: mint.FieldNationality, label: "Nationality", kind: "text", value: &state.Mint.Nationality},
		{id: "mint-goals", field: mint.FieldGoals, label: "Goals Scored", kind: "number", value: &state.Mint.Goals},
		{id: "mint-matches", field: mint.FieldMatches, label: "Matches Played", kind: "number", value: &state.Mint.Matches},
		{id: "mint-worldcups", field: mint.FieldTitles, label: "World Cups Won", kind: "number", value: &state.Mint.WorldCups},
	}
}

// RenderMintForm rebuilds the mint form in the DOM.
func RenderMintForm() {
	container := formDocument().Call("getElementById", "mint-section")
	if !container.Truthy() {
		return
	}

	focus := captureFocusSnapshot()
	releaseFormHandlers()
	if state.Mint.Errors == nil {
		state.Mint.Errors = make(map[string]string)
	}

	var builder strings.Builder
	formClass := "mint-form"
	if state.Mint.Submitting {
		formClass += " is-submitting"
	}
	builder.WriteString(`<section class="mint" aria-labelledby="mint-title"><h2 id="mint-title">Mint a player card</h2>`)
	builder.WriteString(`<form id="mint-form" class="` + formClass + `" aria-live="polite" novalidate><div class="form-grid">`)

	for _, f := range textFields() {
		builder.WriteString(`<label class="` + FieldClass(state.Mint.Errors, f.field) + `" id="field-` + f.field + `"><span>` + f.label + ` *</span>`)
		builder.WriteString(`<input type="` + f.kind + `" id="` + f.id + `" data-field="` + f.field + `" value="` + html.EscapeString(*f.value) + `"`)
		if f.kind == "number" {
			builder.WriteString(` min="0" step="1"`)
		}
		builder.WriteString(` />`)
		writeFieldError(&builder, f.field)
		builder.WriteString(`</label>`)
	}

	builder.WriteString(`<label class="` + FieldClass(state.Mint.Errors, mint.FieldPosition) + `" id="field-position"><span>Position *</span><select id="mint-position">`)
	builder.WriteString(`<option value="">Select a position</option>`)
	for _, p := range mint.Positions {
		builder.WriteString(`<option value="` + string(p) + `"`)
		if strings.EqualFold(state.Mint.Position, string(p)) {
			builder.WriteString(` selected`)
		}
		builder.WriteString(`>` + string(p) + `</option>`)
	}
	builder.WriteString(`</select>`)
	writeFieldError(&builder, mint.FieldPosition)
	builder.WriteString(`</label>`)

	builder.WriteString(`<label class="` + FieldClass(state.Mint.Errors, mint.FieldImage) + ` form-field-wide" id="field-image"><span>Card image *</span>`)
	builder.WriteString(`<input type="file" id="mint-image" accept="image/*" />`)
	if state.Mint.Image != nil {
		builder.WriteString(`<span class="file-name">` + html.EscapeString(state.Mint.Image.Filename) + `</span>`)
	}
	writeFieldError(&builder, mint.FieldImage)
	builder.WriteString(`</label></div>`)

	if msg, ok := state.Mint.Errors[mint.FieldAccount]; ok {
		builder.WriteString(`<p class="field-error-text">` + html.EscapeString(msg) + `</p>`)
	}

	disabled := ""
	if state.Mint.Submitting || state.Wallet.Busy {
		disabled = " disabled"
	}
	builder.WriteString(`<div class="mint-actions"><button type="submit" class="mint-submit"` + disabled + `>`)
	builder.WriteString(html.EscapeString(SubmitLabel(state.Wallet, state.Mint.Submitting)))
	builder.WriteString(`</button></div>`)

	if state.Mint.ResultState != model.ResultNone && state.Mint.ResultMessage != "" {
		builder.WriteString(`<div class="mint-result" data-state="` + html.EscapeString(state.Mint.ResultState) + `" role="status">` + html.EscapeString(state.Mint.ResultMessage))
		if link := state.Mint.ResultLink; link != "" {
			builder.WriteString(` <code class="mint-result-ref">` + html.EscapeString(link) + `</code>`)
		}
		builder.WriteString(`</div>`)
	}
	builder.WriteString(`</form></section>`)
	container.Set("innerHTML", builder.String())

	bindMintFormEvents()
	restoreFocusSnapshot(focus)
}

func writeFieldError(builder *strings.Builder, field string) {
	if msg, ok := state.Mint.Errors[field]; ok {
		builder.WriteString(`<p class="field-error-text">` + html.EscapeString(msg) + `</p>`)
	}
}

func scheduleRender() {
	var fn js.Func
	fn = js.FuncOf(func(js.Value, []js.Value) any {
		RenderMintForm()
		fn.Release()
		return nil
	})
	js.Global().Call("setTimeout", fn, 0)
}

type focusSnapshot struct {
	ID    string
	Start int
	End   int
}

func captureFocusSnapshot() focusSnapshot {
	active := formDocument().Get("activeElement")
	if !active.Truthy() {
		return focusSnapshot{Start: -1, End: -1}
	}
	idValue := active.Get("id")
	if idValue.Type() != js.TypeString {
		return focusSnapshot{Start: -1, End: -1}
	}
	snap := focusSnapshot{ID: idValue.String(), Start: -1, End: -1}
	if start := active.Get("selectionStart"); start.Type() == js.TypeNumber {
		snap.Start = start.Int()
	}
	if end := active.Get("selectionEnd"); end.Type() == js.TypeNumber {
		snap.End = end.Int()
	}
	return snap
}

func restoreFocusSnapshot(snap focusSnapshot) {
	if snap.ID == "" {
		return
	}
	node := formDocument().Call("getElementById", snap.ID)
	if !node.Truthy() {
		return
	}
	node.Call("focus")
	// number inputs throw on setSelectionRange
	if snap.Start >= 0 && node.Get("type").String() == "text" {
		node.Call("setSelectionRange", snap.Start, snap.End)
	}
}

func bindMintFormEvents() {
	doc := formDocument()
	for _, f := range textFields() {
		f := f
		addFormHandler(doc.Call("getElementById", f.id), "input", func(this js.Value, _ []js.Value) any {
			*f.value = this.Get("value").String()
			if ClearFieldError(f.field) {
				scheduleRender()
			}
			return nil
		})
	}

	addFormHandler(doc.Call("getElementById", "mint-position"), "change", func(this js.Value, _ []js.Value) any {
		state.Mint.Position = this.Get("value").String()
		ClearFieldError(mint.FieldPosition)
		scheduleRender()
		return nil
	})

	addFormHandler(doc.Call("getElementById", "mint-image"), "change", func(this js.Value, _ []js.Value) any {
		files := this.Get("files")
		if !files.Truthy() || files.Get("length").Int() == 0 {
			state.Mint.Image = nil
			scheduleRender()
			return nil
		}
		readImage(files.Index(0))
		return nil
	})

	addFormHandler(doc.Call("getElementById", "mint-form"), "submit", func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			args[0].Call("preventDefault")
		}
		handleSubmit()
		return nil
	})
}

// readImage copies the picked file into state.Mint.Image once the browser
// has read it.
func readImage(file js.Value) {
	name := file.Get("name").String()
	contentType := file.Get("type").String()

	var onLoad, onError js.Func
	release := func() {
		onLoad.Release()
		onError.Release()
	}
	onLoad = js.FuncOf(func(_ js.Value, args []js.Value) any {
		defer release()
		buf := js.Global().Get("Uint8Array").New(args[0])
		data := make([]byte, buf.Get("length").Int())
		js.CopyBytesToGo(data, buf)
		state.Mint.Image = &model.ImageUpload{Filename: name, ContentType: contentType, Data: data}
		ClearFieldError(mint.FieldImage)
		RenderMintForm()
		return nil
	})
	onError = js.FuncOf(func(js.Value, []js.Value) any {
		defer release()
		state.Mint.Image = nil
		state.Mint.Errors[mint.FieldImage] = "Could not read the selected file"
		RenderMintForm()
		return nil
	})
	file.Call("arrayBuffer").Call("then", onLoad).Call("catch", onError)
}

func addFormHandler(node js.Value, event string, handler func(js.Value, []js.Value) any) {
	if !node.Truthy() {
		return
	}
	fn := js.FuncOf(handler)
	node.Call("addEventListener", event, fn)
	formHandlers = append(formHandlers, fn)
}

func releaseFormHandlers() {
	for _, fn := range formHandlers {
		fn.Release()
	}
	formHandlers = formHandlers[:0]
}

func handleSubmit() {
	if state.Mint.Submitting || state.Wallet.Busy || submitter == nil || walletSource == nil {
		return
	}

	// Without an account the button doubles as the connect prompt. The
	// wallet owns the prompt's lifetime, so no deadline is set here.
	if !walletSource.CurrentSession().Connected() {
		setWalletBusy(true)
		go func() {
			walletSource.Connect(context.Background())
			setWalletBusy(false)
		}()
		return
	}

	draft, valid := validateSubmission()
	if !valid {
		RenderMintForm()
		return
	}

	state.Mint.Submitting = true
	state.Mint.ResultState = model.ResultPending
	state.Mint.ResultMessage = "Uploading card and waiting for the wallet..."
	state.Mint.ResultLink = ""
	RenderMintForm()

	invalidated := walletSource.Invalidated()
	finished := make(chan struct{})
	go func() {
		select {
		case <-invalidated:
			if NoteChainChanged() {
				RenderMintForm()
			}
		case <-finished:
		}
	}()

	go func() {
		defer close(finished)
		// A cancelled context would abandon a wallet prompt the user can
		// still sign, so the attempt runs until the wallet answers.
		res := submitter.Submit(context.Background(), draft)
		if !res.Succeeded() {
			js.Global().Get("console").Call("error", "Minting failed:", res.Reason)
		}
		ApplyResult(res, walletSource.CurrentSession())
		RenderMintForm()
	}()
}

func setWalletBusy(busy bool) {
	state.Wallet.Busy = busy
	if OnWalletPrompt != nil {
		OnWalletPrompt(busy)
	}
	RenderMintForm()
}
