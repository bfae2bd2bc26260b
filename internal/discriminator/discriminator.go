// Package discriminator 计算 Anchor 风格的 8 字节指令标识：sha256("<scope>:<name>")[:8]。
package discriminator

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/near/borsh-go"
)

// Size discriminator 字节数
const Size = 8

// ScopeGlobal Anchor 指令默认命名空间
const ScopeGlobal = "global"

// Discriminator 8 字节指令标识
type Discriminator [Size]byte

func (d Discriminator) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Discriminator) String() string {
	return d.Hex()
}

// Uint64 按大端读取，与 hex 书写顺序一致（如 0xf8c69e91e17587c8）
func (d Discriminator) Uint64() uint64 {
	return binary.BigEndian.Uint64(d[:])
}

// Of 计算 scope:name 的 discriminator
func Of(scope, name string) Discriminator {
	sum := sha256.Sum256([]byte(scope + ":" + name))
	var d Discriminator
	copy(d[:], sum[:Size])
	return d
}

// Global 等价于 Of("global", name)
func Global(name string) Discriminator {
	return Of(ScopeGlobal, name)
}

// FromHex 解析 16 位 hex 字符串
func FromHex(s string) (Discriminator, error) {
	var d Discriminator
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("decode discriminator %q: %w", s, err)
	}
	if len(b) != Size {
		return d, fmt.Errorf("invalid discriminator length: got %d, want %d, input=%q", len(b), Size, s)
	}
	copy(d[:], b)
	return d, nil
}

// Encode 构造 Anchor 指令数据：discriminator ‖ borsh(args)。
// args 为 nil 时只返回 discriminator。
func Encode(d Discriminator, args any) ([]byte, error) {
	if args == nil {
		return append([]byte(nil), d[:]...), nil
	}
	payload, err := borsh.Serialize(args)
	if err != nil {
		return nil, fmt.Errorf("borsh serialize %T: %w", args, err)
	}
	out := make([]byte, 0, Size+len(payload))
	out = append(out, d[:]...)
	return append(out, payload...), nil
}
