//go:build js && wasm

package main

import "github.com/Its-donkey/dynamix-mint/internal/ui/wasm"

func main() {
	wasm.RunApp()
}
