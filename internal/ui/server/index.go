package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
)

// BootAttr is the attribute on #app-root that carries the boot config.
const BootAttr = "data-boot"

// renderIndex writes the boot config onto the page shell's #app-root so the
// browser bundle can start without another request.
func renderIndex(shell []byte, boot model.BootConfig) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(shell))
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	root := doc.Find("#app-root")
	if root.Length() == 0 {
		return nil, fmt.Errorf("index has no #app-root element")
	}

	payload, err := json.Marshal(boot)
	if err != nil {
		return nil, fmt.Errorf("encode boot config: %w", err)
	}
	root.SetAttr(BootAttr, string(payload))
	if boot.ContractAddress != "" {
		doc.Find("head").AppendHtml(`<meta name="dynamix:contract" />`)
		doc.Find(`meta[name="dynamix:contract"]`).SetAttr("content", boot.ContractAddress)
	}

	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return []byte(html), nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
