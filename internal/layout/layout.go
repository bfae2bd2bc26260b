// Package layout 定义指令解码规则（Layout Registry）。
//
// 每个 Program 对应一个 ProgramLayout：记录 opcode 所在位置（offset + width + endian）
// 以及 opcode → 指令名 + 字段提取规则。opcode 的位置是数据而不是代码，
// 解码器本身不针对任何 Program 写分支逻辑。
package layout

import (
	"fmt"
	"ix-decoder-sol/internal/types"
	"strings"
)

// Endian 表示整数字节序
type Endian uint8

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// ParseEndian 解析配置中的字节序，空字符串默认小端
func ParseEndian(s string) (Endian, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "little", "le":
		return LittleEndian, nil
	case "big", "be":
		return BigEndian, nil
	default:
		return 0, fmt.Errorf("unknown endian %q", s)
	}
}

// Interpretation 表示字段字节区间的解释方式
type Interpretation uint8

const (
	InterpUnsigned Interpretation = iota + 1 // 无符号整数
	InterpSigned                             // 有符号整数（按声明宽度做符号扩展）
	InterpRaw                                // 原始字节，输出 hex
	InterpLamports                           // lamports 定点数，同时输出原始整数与 /10^9 后的 SOL 值
	InterpPubkey                             // 32 字节地址，输出 base58
	InterpBool                               // 1 字节布尔，非 0 即 true
)

var interpNames = map[Interpretation]string{
	InterpUnsigned: "unsigned_integer",
	InterpSigned:   "signed_integer",
	InterpRaw:      "raw_bytes",
	InterpLamports: "fixed_point_lamports",
	InterpPubkey:   "pubkey",
	InterpBool:     "bool",
}

func (i Interpretation) String() string {
	if name, ok := interpNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Interpretation(%d)", uint8(i))
}

// ParseInterpretation 解析配置中的字段类型名
func ParseInterpretation(s string) (Interpretation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for interp, name := range interpNames {
		if s == name {
			return interp, nil
		}
	}
	switch s {
	case "u", "uint", "unsigned":
		return InterpUnsigned, nil
	case "i", "int", "signed":
		return InterpSigned, nil
	case "bytes", "raw":
		return InterpRaw, nil
	case "lamports":
		return InterpLamports, nil
	}
	return 0, fmt.Errorf("unknown interpretation %q", s)
}

// FieldRule 描述一个字段的提取规则。
// Offset + Width 不在定义时与任何 buffer 比较，只在解码时检查。
type FieldRule struct {
	Name   string
	Offset int
	Width  int
	Endian Endian
	Interp Interpretation
}

// End 返回字段结束位置（不含）
func (f FieldRule) End() int {
	return f.Offset + f.Width
}

// OpcodeRule 表示一个 opcode 对应的指令名与有序字段列表
type OpcodeRule struct {
	Opcode uint64
	Name   string
	Fields []FieldRule
}

// OpcodeLocation 描述 opcode 在指令数据中的位置
type OpcodeLocation struct {
	Offset int
	Width  int // 1 / 2 / 4 / 8
	Endian Endian
}

// End 返回 opcode 结束位置（不含）
func (l OpcodeLocation) End() int {
	return l.Offset + l.Width
}

// ProgramLayout 是单个 Program 的完整解码规则
type ProgramLayout struct {
	Family    string         // 程序族名称，如 SplToken
	ProgramID types.Pubkey   // 程序地址
	Opcode    OpcodeLocation // opcode 所在位置
	MinLength int            // 解码所需最小长度，0 表示默认为 Opcode.End()
	Rules     []OpcodeRule

	index map[uint64]*OpcodeRule
}

// Rule 按 opcode 查找指令规则
func (p *ProgramLayout) Rule(opcode uint64) (*OpcodeRule, bool) {
	r, ok := p.index[opcode]
	return r, ok
}

// ==================== 规则声明辅助函数 ====================
// 以下辅助函数均为小端序，大端字段直接构造 FieldRule。

// ByteOpcode 单字节 opcode
func ByteOpcode(offset int) OpcodeLocation {
	return OpcodeLocation{Offset: offset, Width: 1}
}

// U32Opcode 4 字节小端 opcode（System Program）
func U32Opcode() OpcodeLocation {
	return OpcodeLocation{Offset: 0, Width: 4, Endian: LittleEndian}
}

// DiscriminatorOpcode 8 字节 Anchor discriminator，按大端读为 uint64，与 hex 书写顺序一致
func DiscriminatorOpcode() OpcodeLocation {
	return OpcodeLocation{Offset: 0, Width: 8, Endian: BigEndian}
}

func U8(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 1, Interp: InterpUnsigned}
}

func U16(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 2, Interp: InterpUnsigned}
}

func U32(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 4, Interp: InterpUnsigned}
}

func U64(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 8, Interp: InterpUnsigned}
}

func I32(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 4, Interp: InterpSigned}
}

func I64(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 8, Interp: InterpSigned}
}

// U128 Solana 中的 u128（如 sqrt_price / liquidity）超出 uint64，按原始字节输出
func U128(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 16, Interp: InterpRaw}
}

func Lamports(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 8, Interp: InterpLamports}
}

func Address(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 32, Interp: InterpPubkey}
}

func Flag(name string, offset int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: 1, Interp: InterpBool}
}

func Raw(name string, offset, width int) FieldRule {
	return FieldRule{Name: name, Offset: offset, Width: width, Interp: InterpRaw}
}
