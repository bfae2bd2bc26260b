package txadapter

import (
	"context"
	"errors"
	"fmt"

	"ix-decoder-sol/internal/logic/core"
	"ix-decoder-sol/internal/types"

	"github.com/blocto/solana-go-sdk/client"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

var ErrTxNotFound = errors.New("transaction not found")

// TxFetcher 由 *client.Client 实现，测试中可替换
type TxFetcher interface {
	GetTransaction(ctx context.Context, txhash string) (*client.Transaction, error)
}

// FetchTx 通过 JSON-RPC getTransaction 拉取交易并转换为 AdaptedTx
func FetchTx(ctx context.Context, fetcher TxFetcher, signature string) (*core.AdaptedTx, error) {
	tx, err := fetcher.GetTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("getTransaction %s: %w", signature, err)
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, signature)
	}
	return AdaptRpcTx(tx)
}

// AdaptRpcTx 将 RPC 返回的交易转换为 AdaptedTx。
// v0 交易的 Address Lookup Table 地址位于 meta.loadedAddresses，按 writable、readonly 顺序追加到 accountKeys 之后。
func AdaptRpcTx(tx *client.Transaction) (_ *core.AdaptedTx, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("AdaptRpcTx panic: %v", r)
		}
	}()

	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrInvalidTx)
	}
	msg := tx.Transaction.Message
	if len(tx.Transaction.Signatures) == 0 {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidTx)
	}

	accountKeys, err := buildRpcAccountKeys(tx)
	if err != nil {
		return nil, err
	}

	signers, err := signersOf(accountKeys, int(msg.Header.NumRequireSignatures))
	if err != nil {
		return nil, err
	}

	instructions, err := buildRpcInstructions(tx, accountKeys)
	if err != nil {
		return nil, err
	}

	txCtx := &core.TxContext{Slot: tx.Slot}
	if tx.BlockTime != nil {
		txCtx.BlockTime = *tx.BlockTime
	}

	var logs []string
	if tx.Meta != nil {
		logs = tx.Meta.LogMessages
	}

	return &core.AdaptedTx{
		TxCtx:        txCtx,
		Signature:    tx.Transaction.Signatures[0],
		Signers:      signers,
		Instructions: instructions,
		LogMessages:  logs,
	}, nil
}

func buildRpcAccountKeys(tx *client.Transaction) ([]types.Pubkey, error) {
	static := tx.Transaction.Message.Accounts
	var writable, readonly []string
	if tx.Meta != nil {
		writable = tx.Meta.LoadedAddresses.Writable
		readonly = tx.Meta.LoadedAddresses.Readonly
	}

	keys := make([]types.Pubkey, 0, len(static)+len(writable)+len(readonly))
	for _, pk := range static {
		keys = append(keys, types.Pubkey(pk))
	}

	loaded, err := types.TryPubkeysFromBase58(append(append([]string{}, writable...), readonly...))
	if err != nil {
		return nil, fmt.Errorf("%w: loaded addresses: %v", ErrInvalidTx, err)
	}
	return append(keys, loaded...), nil
}

func buildRpcInstructions(tx *client.Transaction, accountKeys []types.Pubkey) ([]*core.AdaptedInstruction, error) {
	rawInstructions := tx.Transaction.Message.Instructions

	// RPC 返回的 inner 块按 Index 升序排列，这里按主指令下标建索引，兼容乱序
	inners := make(map[int][]sdktypes.CompiledInstruction)
	if tx.Meta != nil {
		for _, block := range tx.Meta.InnerInstructions {
			inners[int(block.Index)] = append(inners[int(block.Index)], block.Instructions...)
		}
	}

	instructions := make([]*core.AdaptedInstruction, 0, max(len(rawInstructions)*2, 32))
	adapt := func(ix sdktypes.CompiledInstruction, ixIndex, innerIndex int) error {
		programID, err := resolveProgram(ix.ProgramIDIndex, accountKeys)
		if err != nil {
			return err
		}
		accounts, err := resolveAccounts(ix.Accounts, accountKeys)
		if err != nil {
			return err
		}
		instructions = append(instructions, &core.AdaptedInstruction{
			IxIndex:    uint16(ixIndex),
			InnerIndex: uint16(innerIndex),
			ProgramID:  programID,
			Accounts:   accounts,
			Data:       ix.Data,
		})
		return nil
	}

	for i, ix := range rawInstructions {
		if err := adapt(ix, i, 0); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		for j, inner := range inners[i] {
			if err := adapt(inner, i, j+1); err != nil {
				return nil, fmt.Errorf("instruction %d inner %d: %w", i, j+1, err)
			}
		}
	}
	return instructions, nil
}
