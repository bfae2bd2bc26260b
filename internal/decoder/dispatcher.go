// Package decoder 根据 layout.Registry 将指令数据解码为结构化结果（Instruction Dispatcher）。
//
// Dispatcher 本身没有任何 Program 相关分支：opcode 的位置、宽度、字节序与字段规则全部来自 Registry。
package decoder

import (
	"encoding/hex"
	"strconv"

	"ix-decoder-sol/internal/layout"
	"ix-decoder-sol/internal/types"
)

const (
	reasonShortForOpcode      = "buffer too short for opcode"
	reasonShortForOpcodeField = "buffer too short for opcode field"
	reasonShortForField       = "buffer too short for field "
)

// Decoder 是解码能力的抽象，txdecoder 等协作方依赖该接口
type Decoder interface {
	Decode(programID types.Pubkey, data []byte) Result
}

// Dispatcher 持有只读 Registry，自身无状态，可被多个 goroutine 并发调用
type Dispatcher struct {
	registry *layout.Registry
}

// New 创建 Dispatcher，registry 为 nil 时使用内置规则
func New(registry *layout.Registry) *Dispatcher {
	if registry == nil {
		registry = layout.Default()
	}
	return &Dispatcher{registry: registry}
}

// Registry 返回 Dispatcher 使用的规则表
func (d *Dispatcher) Registry() *layout.Registry {
	return d.registry
}

// Decode 解码单条指令数据。对任意输入都不会 panic：
//  1. Program 未注册 → UnknownProgram（附带全部数据 hex）
//  2. 长度小于 MinLength → Malformed
//  3. 读取 opcode 越界 → Malformed
//  4. opcode 未建模 → UnknownOpcode，指令名为 "Unknown(<十进制 opcode>)"
//  5. 任一字段越界 → Malformed（附带指令名与 hex），不返回部分字段
func (d *Dispatcher) Decode(programID types.Pubkey, data []byte) Result {
	program, ok := d.registry.Lookup(programID)
	if !ok {
		return Result{Kind: KindUnknownProgram, RawHex: hex.EncodeToString(data)}
	}

	if len(data) < program.MinLength {
		return Result{Kind: KindMalformed, Family: program.Family, Reason: reasonShortForOpcode}
	}

	loc := program.Opcode
	if !inBounds(data, loc.Offset, loc.Width) {
		return Result{Kind: KindMalformed, Family: program.Family, Reason: reasonShortForOpcodeField}
	}
	opcode := readUint(data, loc.Offset, loc.Width, loc.Endian)

	rule, ok := program.Rule(opcode)
	if !ok {
		return Result{
			Kind:        KindUnknownOpcode,
			Family:      program.Family,
			Instruction: UnknownLabel(opcode),
			Opcode:      opcode,
			RawHex:      hex.EncodeToString(data),
		}
	}

	fields, missing, ok := extractFields(data, rule.Fields)
	if !ok {
		return Result{
			Kind:        KindMalformed,
			Family:      program.Family,
			Instruction: rule.Name,
			Opcode:      opcode,
			RawHex:      hex.EncodeToString(data),
			Reason:      reasonShortForField + missing,
		}
	}

	return Result{
		Kind:        KindDecoded,
		Family:      program.Family,
		Instruction: rule.Name,
		Opcode:      opcode,
		Fields:      fields,
	}
}

// UnknownLabel 未知 opcode 的展示名
func UnknownLabel(opcode uint64) string {
	return "Unknown(" + strconv.FormatUint(opcode, 10) + ")"
}
