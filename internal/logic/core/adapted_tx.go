package core

import (
	"ix-decoder-sol/internal/types"

	"github.com/mr-tron/base58"
)

// TxContext 表示交易所属区块的上下文信息。RPC 拉取的单笔交易没有 BlockHash / ParentSlot，保持零值。
type TxContext struct {
	BlockTime  int64      // 区块时间戳（Unix 秒），未知时为 0
	Slot       uint64     // 当前 Slot（Solana 高度单位）
	ParentSlot uint64     // 父 Slot（用于漏块检测）
	BlockHash  types.Hash // 区块哈希
}

// AdaptedInstruction 表示一条主指令或 inner 指令，来源于 Solana Transaction 中的 message.instructions 或 innerInstructions。
// 所有指令在预处理阶段已展平，并补充了位置信息（IxIndex、InnerIndex），按执行顺序排列。
type AdaptedInstruction struct {
	IxIndex    uint16         // 主指令索引（从 0 开始）
	InnerIndex uint16         // Inner 指令在主指令中的序号，主指令本身为 0，CPI 调用从 1 开始
	ProgramID  types.Pubkey   // 指令对应的程序 ID
	Accounts   []types.Pubkey // 指令涉及的账户列表，保持原始顺序
	Data       []byte         // 指令原始数据，交给 decoder 解析
}

// IsInner 是否为 CPI 产生的 inner 指令
func (ix *AdaptedInstruction) IsInner() bool {
	return ix.InnerIndex > 0
}

// AdaptedTx 是 gRPC / RPC 两种来源交易的统一结构，是解码流程的输入。
type AdaptedTx struct {
	TxCtx     *TxContext     // 所属区块上下文
	TxIndex   uint32         // 当前交易在区块中的序号，RPC 来源为 0
	Signature []byte         // 交易签名（64 字节原始数据）
	Signers   []types.Pubkey // 交易签名者列表（前 N 个 accountKeys）

	// Instructions 表示交易中的所有指令（包括主指令和 inner 指令），已按 Solana 执行顺序展平。
	Instructions []*AdaptedInstruction

	// LogMessages 交易执行日志，仅用于展示
	LogMessages []string
}

// SignatureBase58 返回 base58 编码的交易签名
func (tx *AdaptedTx) SignatureBase58() string {
	return base58.Encode(tx.Signature)
}
