package core

import (
	"ix-decoder-sol/internal/decoder"
	"ix-decoder-sol/internal/types"
)

// DecodedInstruction 单条指令的解码结果，保留其在交易中的位置
type DecodedInstruction struct {
	IxIndex    uint16         `json:"ix_index"`
	InnerIndex uint16         `json:"inner_index"`
	ProgramID  types.Pubkey   `json:"program_id"`
	Accounts   []types.Pubkey `json:"accounts,omitempty"`
	Result     decoder.Result `json:"result"`
}

// DecodedTx 一笔交易全部指令（主指令 + inner 指令）的解码结果，可直接 JSON 序列化写入缓存
type DecodedTx struct {
	Slot         uint64               `json:"slot"`
	BlockTime    int64                `json:"block_time,omitempty"`
	TxIndex      uint32               `json:"tx_index"`
	Signature    string               `json:"signature"`
	Signers      []types.Pubkey       `json:"signers,omitempty"`
	Instructions []DecodedInstruction `json:"instructions"`
	LogMessages  []string             `json:"log_messages,omitempty"`
}

// Stats 统计成功解码与未能解码的指令数量
func (tx *DecodedTx) Stats() (decoded, undecoded int) {
	for i := range tx.Instructions {
		if tx.Instructions[i].Result.OK() {
			decoded++
		} else {
			undecoded++
		}
	}
	return decoded, undecoded
}

// BuildRecordID 构造指令在 slot 内的唯一标识（uint32）：
//
//	[ 16 bits txIndex ] [ 8 bits ixIndex ] [ 8 bits innerIndex ]
//
// innerIndex 主指令为 0，inner 指令从 1 开始，与 AdaptedInstruction 一致。
func BuildRecordID(txIndex uint32, ixIndex, innerIndex uint16) uint32 {
	return (txIndex << 16) | (uint32(ixIndex&0xff) << 8) | uint32(innerIndex&0xff)
}
