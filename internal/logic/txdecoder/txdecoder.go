// Package txdecoder 对展平后的交易逐条调用 decoder：主指令与 inner 指令一视同仁，各自独立解码。
package txdecoder

import (
	"ix-decoder-sol/internal/decoder"
	"ix-decoder-sol/internal/logic/core"
	"ix-decoder-sol/pkg/utils"
)

// DecodeTx 解码一笔交易中的全部指令，结果顺序与 tx.Instructions 一致
func DecodeTx(d decoder.Decoder, tx *core.AdaptedTx) *core.DecodedTx {
	out := &core.DecodedTx{
		TxIndex:      tx.TxIndex,
		Signature:    tx.SignatureBase58(),
		Signers:      tx.Signers,
		Instructions: make([]core.DecodedInstruction, len(tx.Instructions)),
		LogMessages:  tx.LogMessages,
	}
	if tx.TxCtx != nil {
		out.Slot = tx.TxCtx.Slot
		out.BlockTime = tx.TxCtx.BlockTime
	}

	for i, ix := range tx.Instructions {
		out.Instructions[i] = core.DecodedInstruction{
			IxIndex:    ix.IxIndex,
			InnerIndex: ix.InnerIndex,
			ProgramID:  ix.ProgramID,
			Accounts:   ix.Accounts,
			Result:     d.Decode(ix.ProgramID, ix.Data),
		}
	}
	return out
}

// DecodeBlock 并发解码同一区块内的多笔交易，结果顺序与输入一致
func DecodeBlock(d decoder.Decoder, txs []*core.AdaptedTx, workers int) []*core.DecodedTx {
	return utils.ParallelMap(txs, workers, func(tx *core.AdaptedTx) *core.DecodedTx {
		return DecodeTx(d, tx)
	})
}
