package decoder

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"

	"ix-decoder-sol/internal/consts"
	"ix-decoder-sol/internal/layout"

	"github.com/mr-tron/base58"
)

// inBounds 判断 [offset, offset+width) 是否完整落在 data 内
func inBounds(data []byte, offset, width int) bool {
	return offset >= 0 && width >= 0 && offset <= len(data) && width <= len(data)-offset
}

// readUint 按宽度与字节序读取无符号整数，调用方保证区间合法且 width ∈ {1,2,4,8}
func readUint(data []byte, offset, width int, endian layout.Endian) uint64 {
	b := data[offset : offset+width]
	if endian == layout.BigEndian {
		switch width {
		case 1:
			return uint64(b[0])
		case 2:
			return uint64(binary.BigEndian.Uint16(b))
		case 4:
			return uint64(binary.BigEndian.Uint32(b))
		default:
			return binary.BigEndian.Uint64(b)
		}
	}
	switch width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

// signExtend 以声明宽度为符号位做符号扩展，如 1 字节 0xFF → -1
func signExtend(v uint64, width int) int64 {
	shift := uint(64 - 8*width)
	return int64(v<<shift) >> shift
}

// formatLamports 将 lamports 精确转换为 SOL 十进制字符串，不经过浮点
func formatLamports(v uint64) string {
	whole := v / consts.LamportsPerSOL
	frac := v % consts.LamportsPerSOL
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fracStr := strconv.FormatUint(frac, 10)
	fracStr = strings.Repeat("0", consts.LamportDecimals-len(fracStr)) + fracStr
	return strconv.FormatUint(whole, 10) + "." + strings.TrimRight(fracStr, "0")
}

// extractField 解释单个字段，调用方已完成越界检查
func extractField(data []byte, f layout.FieldRule) Value {
	switch f.Interp {
	case layout.InterpUnsigned:
		v := readUint(data, f.Offset, f.Width, f.Endian)
		return Value{Kind: ValueUnsigned, Uint: v, Text: strconv.FormatUint(v, 10)}

	case layout.InterpSigned:
		v := signExtend(readUint(data, f.Offset, f.Width, f.Endian), f.Width)
		return Value{Kind: ValueSigned, Int: v, Text: strconv.FormatInt(v, 10)}

	case layout.InterpLamports:
		v := readUint(data, f.Offset, f.Width, f.Endian)
		return Value{Kind: ValueLamports, Uint: v, Text: strconv.FormatUint(v, 10), Scaled: formatLamports(v)}

	case layout.InterpPubkey:
		b := cloneBytes(data[f.Offset:f.End()])
		return Value{Kind: ValuePubkey, Bytes: b, Text: base58.Encode(b)}

	case layout.InterpBool:
		v := data[f.Offset] != 0
		return Value{Kind: ValueBool, Bool: v, Text: strconv.FormatBool(v)}

	default:
		b := cloneBytes(data[f.Offset:f.End()])
		return Value{Kind: ValueBytes, Bytes: b, Text: hex.EncodeToString(b)}
	}
}

// extractFields 全部字段成功才返回；任一字段越界返回该字段名与 false，不暴露部分结果
func extractFields(data []byte, rules []layout.FieldRule) ([]Field, string, bool) {
	for _, f := range rules {
		if !inBounds(data, f.Offset, f.Width) {
			return nil, f.Name, false
		}
	}
	fields := make([]Field, len(rules))
	for i, f := range rules {
		fields[i] = Field{Name: f.Name, Value: extractField(data, f)}
	}
	return fields, "", true
}

// 结果持有的字节不与调用方 buffer 共享
func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
