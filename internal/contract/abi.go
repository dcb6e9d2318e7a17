// Package contract binds the player card contract's mint entry point.
package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Its-donkey/dynamix-mint/internal/mint"
)

const mintABI = `[{
  "type": "function",
  "name": "mint",
  "stateMutability": "nonpayable",
  "inputs": [
    {"name": "to", "type": "address"},
    {"name": "name", "type": "string"},
    {"name": "nationality", "type": "string"},
    {"name": "position", "type": "string"},
    {"name": "goals", "type": "uint256"},
    {"name": "worldCupsWon", "type": "uint256"},
    {"name": "matchesPlayed", "type": "uint256"},
    {"name": "metadataURI", "type": "string"}
  ],
  "outputs": [{"name": "tokenId", "type": "uint256"}]
}]`

var parsedABI = mustParse(mintABI)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("contract: parse abi: %v", err))
	}
	return parsed
}

// PackMint encodes call data for mint(...).
func PackMint(call mint.MintCall) ([]byte, error) {
	if !common.IsHexAddress(call.To) {
		return nil, fmt.Errorf("pack mint: invalid recipient %q", call.To)
	}
	return parsedABI.Pack("mint",
		common.HexToAddress(call.To),
		call.Name,
		call.Nationality,
		call.Position,
		new(big.Int).SetUint64(call.Goals),
		new(big.Int).SetUint64(call.TitlesWon),
		new(big.Int).SetUint64(call.MatchesPlayed),
		call.MetadataURI,
	)
}

// UnpackMint decodes call data produced by PackMint. From is left empty.
func UnpackMint(data []byte) (mint.MintCall, error) {
	method, ok := parsedABI.Methods["mint"]
	if !ok || len(data) < 4 || string(data[:4]) != string(method.ID) {
		return mint.MintCall{}, fmt.Errorf("unpack mint: not a mint call")
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return mint.MintCall{}, fmt.Errorf("unpack mint: %w", err)
	}
	if len(values) != 8 {
		return mint.MintCall{}, fmt.Errorf("unpack mint: expected 8 arguments, got %d", len(values))
	}
	to, _ := values[0].(common.Address)
	goals, _ := values[4].(*big.Int)
	titles, _ := values[5].(*big.Int)
	matches, _ := values[6].(*big.Int)
	call := mint.MintCall{To: strings.ToLower(to.Hex())}
	call.MetadataURI, _ = values[7].(string)
	call.Name, _ = values[1].(string)
	call.Nationality, _ = values[2].(string)
	call.Position, _ = values[3].(string)
	if goals != nil {
		call.Goals = goals.Uint64()
	}
	if titles != nil {
		call.TitlesWon = titles.Uint64()
	}
	if matches != nil {
		call.MatchesPlayed = matches.Uint64()
	}
	return call, nil
}
