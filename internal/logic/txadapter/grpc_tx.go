package txadapter

import (
	"errors"
	"fmt"

	"ix-decoder-sol/internal/logic/core"
	"ix-decoder-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
)

var ErrInvalidTx = errors.New("invalid transaction")

// buildFullAccountKeys 构造交易中完整的账户 Pubkey 列表。
// 拼接 message.accountKeys 与 Address Lookup Table 中的 writable / readonly 地址，
// 顺序与链上 accountIndex 一致。
func buildFullAccountKeys(accountKeys, loadedWritable, loadedReadonly [][]byte) ([]types.Pubkey, error) {
	pubkeys := make([]types.Pubkey, 0, len(accountKeys)+len(loadedWritable)+len(loadedReadonly))

	for _, part := range [][][]byte{accountKeys, loadedWritable, loadedReadonly} {
		for _, b := range part {
			key, err := types.PubkeyFromBytes(b)
			if err != nil {
				return nil, fmt.Errorf("%w: account key %d: %v", ErrInvalidTx, len(pubkeys), err)
			}
			pubkeys = append(pubkeys, key)
		}
	}
	return pubkeys, nil
}

// resolveAccounts 将账户下标转换为 Pubkey，下标越界返回 error
func resolveAccounts[I uint8 | int](indexes []I, accountKeys []types.Pubkey) ([]types.Pubkey, error) {
	accounts := make([]types.Pubkey, 0, len(indexes))
	for _, idx := range indexes {
		i := int(idx)
		if i < 0 || i >= len(accountKeys) {
			return nil, fmt.Errorf("%w: account index %d out of range (%d keys)", ErrInvalidTx, i, len(accountKeys))
		}
		accounts = append(accounts, accountKeys[i])
	}
	return accounts, nil
}

func resolveProgram(index int, accountKeys []types.Pubkey) (types.Pubkey, error) {
	if index < 0 || index >= len(accountKeys) {
		return types.Pubkey{}, fmt.Errorf("%w: program index %d out of range (%d keys)", ErrInvalidTx, index, len(accountKeys))
	}
	return accountKeys[index], nil
}

// buildGrpcInstructions 扁平化主指令与 inner 指令：
//   - IxIndex：主指令索引；
//   - InnerIndex：0 表示主指令，1 及以上表示对应的 inner 指令序号。
//
// inner 列表按主指令索引（Index）递增排列，且每条主指令最多对应一个 inner 块，因此顺序匹配即可。
func buildGrpcInstructions(tx *pb.SubscribeUpdateTransactionInfo, accountKeys []types.Pubkey) ([]*core.AdaptedInstruction, error) {
	rawInstructions := tx.Transaction.Message.Instructions
	var rawInners []*pb.InnerInstructions
	if tx.Meta != nil {
		rawInners = tx.Meta.InnerInstructions
	}

	instructions := make([]*core.AdaptedInstruction, 0, max(len(rawInstructions)*2, 32))
	innerIndex := 0

	for i, inst := range rawInstructions {
		programID, err := resolveProgram(int(inst.ProgramIdIndex), accountKeys)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		accounts, err := resolveAccounts(inst.Accounts, accountKeys)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		instructions = append(instructions, &core.AdaptedInstruction{
			IxIndex:   uint16(i),
			ProgramID: programID,
			Accounts:  accounts,
			Data:      inst.Data,
		})

		if innerIndex < len(rawInners) && int(rawInners[innerIndex].Index) == i {
			for j, inner := range rawInners[innerIndex].Instructions {
				programID, err := resolveProgram(int(inner.ProgramIdIndex), accountKeys)
				if err != nil {
					return nil, fmt.Errorf("instruction %d inner %d: %w", i, j+1, err)
				}
				accounts, err := resolveAccounts(inner.Accounts, accountKeys)
				if err != nil {
					return nil, fmt.Errorf("instruction %d inner %d: %w", i, j+1, err)
				}
				instructions = append(instructions, &core.AdaptedInstruction{
					IxIndex:    uint16(i),
					InnerIndex: uint16(j + 1),
					ProgramID:  programID,
					Accounts:   accounts,
					Data:       inner.Data,
				})
			}
			innerIndex++
		}
	}
	return instructions, nil
}

// signersOf 交易前 N 个账户即为 signer
func signersOf(accountKeys []types.Pubkey, signerCount int) ([]types.Pubkey, error) {
	if signerCount == 0 || len(accountKeys) < signerCount {
		return nil, fmt.Errorf("%w: signer count %d with %d keys", ErrInvalidTx, signerCount, len(accountKeys))
	}
	signers := make([]types.Pubkey, signerCount)
	copy(signers, accountKeys[:signerCount])
	return signers, nil
}

// AdaptGrpcTx 将 gRPC 推送的交易数据转换为 AdaptedTx：
//  1. 构建 accountKeys（含 Address Lookup）；
//  2. 展平主指令与 inner 指令；
//  3. 提取 signer。
//
// 任何结构异常都以 error 返回，panic 会被 recover。
func AdaptGrpcTx(txCtx *core.TxContext, tx *pb.SubscribeUpdateTransactionInfo) (_ *core.AdaptedTx, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("AdaptGrpcTx panic: %v", r)
		}
	}()

	if tx == nil || tx.Transaction == nil || tx.Transaction.Message == nil {
		return nil, fmt.Errorf("%w: missing transaction message", ErrInvalidTx)
	}
	if len(tx.Transaction.Signatures) == 0 {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidTx)
	}

	var loadedWritable, loadedReadonly [][]byte
	if tx.Meta != nil {
		loadedWritable = tx.Meta.LoadedWritableAddresses
		loadedReadonly = tx.Meta.LoadedReadonlyAddresses
	}
	accountKeys, err := buildFullAccountKeys(tx.Transaction.Message.AccountKeys, loadedWritable, loadedReadonly)
	if err != nil {
		return nil, err
	}

	var signerCount int
	if tx.Transaction.Message.Header != nil {
		signerCount = int(tx.Transaction.Message.Header.NumRequiredSignatures)
	}
	signers, err := signersOf(accountKeys, signerCount)
	if err != nil {
		return nil, err
	}

	instructions, err := buildGrpcInstructions(tx, accountKeys)
	if err != nil {
		return nil, err
	}

	var logs []string
	if tx.Meta != nil {
		logs = tx.Meta.LogMessages
	}

	return &core.AdaptedTx{
		TxCtx:        txCtx,
		TxIndex:      uint32(tx.Index),
		Signature:    tx.Transaction.Signatures[0],
		Signers:      signers,
		Instructions: instructions,
		LogMessages:  logs,
	}, nil
}
