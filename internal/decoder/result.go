package decoder

import (
	"fmt"
	"strings"
)

// Kind 解码结果类型
type Kind uint8

const (
	KindDecoded        Kind = iota + 1 // 成功解码
	KindUnknownOpcode                  // Program 已注册，opcode 未建模
	KindUnknownProgram                 // Program 未注册
	KindMalformed                      // 数据长度不足以容纳 opcode 或声明的字段
)

var kindNames = map[Kind]string{
	KindDecoded:        "decoded",
	KindUnknownOpcode:  "unknown_opcode",
	KindUnknownProgram: "unknown_program",
	KindMalformed:      "malformed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown result kind %q", text)
}

// ValueKind 字段值类型，与 layout.Interpretation 一一对应
type ValueKind uint8

const (
	ValueUnsigned ValueKind = iota + 1
	ValueSigned
	ValueBytes
	ValueLamports
	ValuePubkey
	ValueBool
)

// Value 是单个字段的解码值。
//   - Text 为展示用字符串：整数为十进制，raw 为 hex，pubkey 为 base58；
//   - Lamports 同时保留原始整数 Uint 与按 10^9 缩放后的精确十进制 Scaled。
type Value struct {
	Kind   ValueKind `json:"kind"`
	Uint   uint64    `json:"uint,omitempty"`
	Int    int64     `json:"int,omitempty"`
	Bool   bool      `json:"bool,omitempty"`
	Bytes  []byte    `json:"bytes,omitempty"`
	Text   string    `json:"text"`
	Scaled string    `json:"scaled,omitempty"`
}

func (v Value) String() string {
	if v.Kind == ValueLamports {
		return fmt.Sprintf("%s (%s SOL)", v.Text, v.Scaled)
	}
	return v.Text
}

// Field 有序字段列表中的一项
type Field struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Result 是 Decode 唯一的输出类型。
// 未注册 Program / 未知 opcode / 数据过短均以 Kind 表达，不会以 error 或 panic 返回。
type Result struct {
	Kind        Kind    `json:"kind"`
	Family      string  `json:"family,omitempty"`
	Instruction string  `json:"instruction,omitempty"`
	Opcode      uint64  `json:"opcode,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	RawHex      string  `json:"raw_hex,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// OK 是否成功解码出全部字段
func (r Result) OK() bool {
	return r.Kind == KindDecoded
}

// Get 按字段名取值
func (r Result) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// String 单行摘要，日志使用
func (r Result) String() string {
	var b strings.Builder
	switch r.Kind {
	case KindDecoded:
		fmt.Fprintf(&b, "%s.%s", r.Family, r.Instruction)
		if len(r.Fields) > 0 {
			b.WriteString(" {")
			for i, f := range r.Fields {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s: %s", f.Name, f.Value)
			}
			b.WriteString("}")
		}
	case KindUnknownOpcode:
		fmt.Fprintf(&b, "%s.%s raw=%s", r.Family, r.Instruction, r.RawHex)
	case KindUnknownProgram:
		fmt.Fprintf(&b, "unknown program raw=%s", r.RawHex)
	case KindMalformed:
		if r.Instruction != "" {
			fmt.Fprintf(&b, "%s.%s malformed: %s raw=%s", r.Family, r.Instruction, r.Reason, r.RawHex)
		} else {
			fmt.Fprintf(&b, "%s malformed: %s", r.Family, r.Reason)
		}
	default:
		b.WriteString(r.Kind.String())
	}
	return b.String()
}
