package mq

import (
	"fmt"
	"strconv"

	"ix-decoder-sol/internal/config"
	"ix-decoder-sol/internal/consts"
	"ix-decoder-sol/internal/decoder"
	"ix-decoder-sol/internal/logic/core"
	"ix-decoder-sol/internal/utils"

	"google.golang.org/protobuf/types/known/structpb"
)

// BuildDecodedJobs 将一个 slot 内全部交易的解码结果展开为 Kafka 消息，每条指令一条记录：
// 成功解码的写入 decoded topic，其余写入 undecoded topic；同一 Program 的记录落在同一分区。
func BuildDecodedJobs(txs []*core.DecodedTx, cfg *config.KafkaProducerConfig) ([]*KafkaJob, error) {
	total := 0
	for _, tx := range txs {
		total += len(tx.Instructions)
	}
	jobs := make([]*KafkaJob, 0, total)

	for _, tx := range txs {
		for i := range tx.Instructions {
			ix := &tx.Instructions[i]
			record, err := BuildRecord(tx, ix)
			if err != nil {
				return nil, err
			}
			value, err := utils.EncodeRecord(consts.RecordTypeInstruction, record)
			if err != nil {
				return nil, err
			}

			topic, partitions := cfg.Topics.Decoded, cfg.Partitions.Decoded
			if !ix.Result.OK() {
				topic, partitions = cfg.Topics.Undecoded, cfg.Partitions.Undecoded
			}
			jobs = append(jobs, &KafkaJob{
				Topic:     topic,
				Partition: int32(utils.PartitionHashBytes(ix.ProgramID[:], uint32(max(partitions, 1)))),
				Key:       []byte(tx.Signature),
				Value:     value,
			})
		}
	}
	return jobs, nil
}

// BuildRecord 构造单条指令的记录。opcode 可能是 8 字节 discriminator，超出 float64 精度，以十进制字符串输出。
func BuildRecord(tx *core.DecodedTx, ix *core.DecodedInstruction) (*structpb.Struct, error) {
	res := ix.Result
	m := map[string]any{
		"chain_id":    consts.ChainIDSolana,
		"slot":        tx.Slot,
		"block_time":  tx.BlockTime,
		"tx_index":    tx.TxIndex,
		"record_id":   core.BuildRecordID(tx.TxIndex, ix.IxIndex, ix.InnerIndex),
		"ix_index":    uint32(ix.IxIndex),
		"inner_index": uint32(ix.InnerIndex),
		"signature":   tx.Signature,
		"program_id":  ix.ProgramID.String(),
		"kind":        res.Kind.String(),
	}
	if res.Kind != decoder.KindUnknownProgram {
		m["family"] = res.Family
	}
	if res.Instruction != "" {
		m["instruction"] = res.Instruction
	}
	if res.Kind == decoder.KindUnknownOpcode || res.Instruction != "" {
		m["opcode"] = strconv.FormatUint(res.Opcode, 10)
	}
	if res.RawHex != "" {
		m["raw_hex"] = res.RawHex
	}
	if res.Reason != "" {
		m["reason"] = res.Reason
	}
	if len(res.Fields) > 0 {
		fields := make([]any, len(res.Fields))
		for i, f := range res.Fields {
			field := map[string]any{
				"name": f.Name,
				"text": f.Value.Text,
			}
			if f.Value.Kind == decoder.ValueLamports {
				field["sol"] = f.Value.Scaled
			}
			fields[i] = field
		}
		m["fields"] = fields
	}

	record, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build record %s #%d.%d: %w", tx.Signature, ix.IxIndex, ix.InnerIndex, err)
	}
	return record, nil
}
