package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Its-donkey/dynamix-mint/internal/mint"
	"github.com/Its-donkey/dynamix-mint/internal/wallet"
	"github.com/Its-donkey/dynamix-mint/logging"
)

// codeExecutionReverted is the JSON-RPC error code nodes use for reverts.
const codeExecutionReverted = 3

// Sender submits a transaction through the user's wallet.
type Sender interface {
	SendTransaction(ctx context.Context, tx wallet.Transaction) (string, error)
}

// ReceiptFetcher looks up mined transactions. *ethclient.Client satisfies it.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Options configures a Minter.
type Options struct {
	Logger *logging.Logger
	// Receipts, when set, makes Mint wait for the transaction to be mined and
	// report reverted receipts as failures.
	Receipts     ReceiptFetcher
	PollInterval time.Duration
}

// Minter implements mint.Minter against a deployed contract.
type Minter struct {
	address  string
	sender   Sender
	receipts ReceiptFetcher
	poll     time.Duration
	logger   *logging.Logger
}

// NewMinter binds the contract at address.
func NewMinter(address string, sender Sender, opts Options) (*Minter, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("contract address %q is not a hex address", address)
	}
	if sender == nil {
		return nil, errors.New("contract: sender is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Minter{
		address:  strings.ToLower(common.HexToAddress(address).Hex()),
		sender:   sender,
		receipts: opts.Receipts,
		poll:     opts.PollInterval,
		logger:   opts.Logger,
	}, nil
}

// Address is the bound contract address.
func (m *Minter) Address() string {
	return m.address
}

// Mint packs call, sends it from call.From and returns the transaction hash.
func (m *Minter) Mint(ctx context.Context, call mint.MintCall) (string, error) {
	data, err := PackMint(call)
	if err != nil {
		return "", &mint.MintError{Kind: mint.MintTransport, Err: err}
	}

	hash, err := m.sender.SendTransaction(ctx, wallet.Transaction{
		From: call.From,
		To:   m.address,
		Data: hexutil.Encode(data),
	})
	if err != nil {
		return "", Classify(err)
	}
	m.logger.Info("contract", "mint transaction sent", map[string]any{"tx": hash, "to": call.To})

	if m.receipts == nil {
		return hash, nil
	}
	if err := m.waitMined(ctx, common.HexToHash(hash)); err != nil {
		return "", err
	}
	return hash, nil
}

func (m *Minter) waitMined(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		receipt, err := m.receipts.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return &mint.MintError{Kind: mint.MintReverted, Err: fmt.Errorf("transaction %s reverted in block %v", hash.Hex(), receipt.BlockNumber)}
			}
			m.logger.Info("contract", "mint transaction mined", map[string]any{"tx": hash.Hex(), "block": receipt.BlockNumber.String()})
			return nil
		case !errors.Is(err, ethereum.NotFound):
			return &mint.MintError{Kind: mint.MintTransport, Err: fmt.Errorf("fetch receipt: %w", err)}
		}

		select {
		case <-ctx.Done():
			return &mint.MintError{Kind: mint.MintTransport, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// Classify maps a wallet or node error onto a mint.MintError.
func Classify(err error) error {
	var merr *mint.MintError
	if errors.As(err, &merr) {
		return err
	}
	if errors.Is(err, wallet.ErrProviderRejected) {
		return &mint.MintError{Kind: mint.MintSignatureRejected, Err: err}
	}
	var perr *wallet.ProviderError
	if errors.As(err, &perr) {
		if perr.Code == codeExecutionReverted || strings.Contains(strings.ToLower(perr.Message), "revert") {
			return &mint.MintError{Kind: mint.MintReverted, Err: err}
		}
	}
	return &mint.MintError{Kind: mint.MintTransport, Err: err}
}
