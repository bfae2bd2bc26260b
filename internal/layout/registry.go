package layout

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"ix-decoder-sol/internal/types"
)

// ErrInvalidLayout 表示规则表本身存在配置错误（构建期缺陷，而非输入数据问题）
var ErrInvalidLayout = errors.New("invalid layout")

// Registry 是 ProgramID → ProgramLayout 的只读路由表。
// 构建完成后不再修改，查找无需加锁，可被多个 goroutine 并发读取。
type Registry struct {
	programs map[types.Pubkey]*ProgramLayout
}

// NewRegistry 校验并构建 Registry。
// 所有规则错误（负 offset、宽度非法、重复 opcode 等）在此一次性汇总返回。
func NewRegistry(programs ...ProgramLayout) (*Registry, error) {
	r := &Registry{
		programs: make(map[types.Pubkey]*ProgramLayout, len(programs)),
	}

	var errs []error
	for i := range programs {
		p, err := buildProgram(programs[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, ok := r.programs[p.ProgramID]; ok {
			errs = append(errs, fmt.Errorf("%w: program %s registered twice (%s, %s)",
				ErrInvalidLayout, p.ProgramID, prev.Family, p.Family))
			continue
		}
		r.programs[p.ProgramID] = p
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// MustNewRegistry 同 NewRegistry，出错直接 panic（用于内置规则表）
func MustNewRegistry(programs ...ProgramLayout) *Registry {
	r, err := NewRegistry(programs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup 按 ProgramID 查找解码规则，未注册返回 false（正常结果，不是错误）
func (r *Registry) Lookup(programID types.Pubkey) (*ProgramLayout, bool) {
	p, ok := r.programs[programID]
	return p, ok
}

// Len 返回已注册 Program 数量
func (r *Registry) Len() int {
	return len(r.programs)
}

// ProgramIDs 返回所有已注册 ProgramID（按字节序排序，输出稳定）
func (r *Registry) ProgramIDs() []types.Pubkey {
	ids := make([]types.Pubkey, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return MustNewRegistry(BuiltinLayouts()...)
})

// Default 返回内置 Program 规则构成的 Registry（首次调用时构建）
func Default() *Registry {
	return defaultRegistry()
}

// WithBuiltins 在内置规则基础上追加额外规则（例如配置文件中声明的 Program）
func WithBuiltins(extra ...ProgramLayout) (*Registry, error) {
	all := append(BuiltinLayouts(), extra...)
	return NewRegistry(all...)
}

// buildProgram 校验单个 ProgramLayout 并生成不可变副本 + opcode 索引
func buildProgram(src ProgramLayout) (*ProgramLayout, error) {
	if src.Family == "" {
		return nil, fmt.Errorf("%w: program %s has empty family", ErrInvalidLayout, src.ProgramID)
	}

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: "+format, append([]any{ErrInvalidLayout, src.Family}, args...)...))
	}

	loc := src.Opcode
	if loc.Offset < 0 {
		fail("negative opcode offset %d", loc.Offset)
	}
	if !isIntWidth(loc.Width) {
		fail("opcode width %d not in {1,2,4,8}", loc.Width)
	} else if loc.Offset > math.MaxInt-loc.Width {
		fail("opcode offset %d overflows", loc.Offset)
	}

	minLength := src.MinLength
	if minLength == 0 {
		minLength = loc.End()
	}
	if minLength < loc.End() {
		fail("min length %d shorter than opcode end %d", minLength, loc.End())
	}

	p := &ProgramLayout{
		Family:    src.Family,
		ProgramID: src.ProgramID,
		Opcode:    loc,
		MinLength: minLength,
		Rules:     make([]OpcodeRule, len(src.Rules)),
		index:     make(map[uint64]*OpcodeRule, len(src.Rules)),
	}

	for i, rule := range src.Rules {
		if rule.Name == "" {
			fail("opcode %d has empty name", rule.Opcode)
		}
		if isIntWidth(loc.Width) && loc.Width < 8 && rule.Opcode >= uint64(1)<<(8*loc.Width) {
			fail("opcode %d of %s does not fit in %d byte(s)", rule.Opcode, rule.Name, loc.Width)
		}
		if _, dup := p.index[rule.Opcode]; dup {
			fail("duplicate opcode %d (%s)", rule.Opcode, rule.Name)
		}

		seen := make(map[string]struct{}, len(rule.Fields))
		for _, f := range rule.Fields {
			if err := validateField(f); err != nil {
				fail("%s.%s: %v", rule.Name, f.Name, err)
			}
			if _, dup := seen[f.Name]; dup {
				fail("%s: duplicate field %q", rule.Name, f.Name)
			}
			seen[f.Name] = struct{}{}
		}

		fields := make([]FieldRule, len(rule.Fields))
		copy(fields, rule.Fields)
		p.Rules[i] = OpcodeRule{Opcode: rule.Opcode, Name: rule.Name, Fields: fields}
		p.index[rule.Opcode] = &p.Rules[i]
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return p, nil
}

func validateField(f FieldRule) error {
	if f.Name == "" {
		return errors.New("empty field name")
	}
	if f.Offset < 0 {
		return fmt.Errorf("negative offset %d", f.Offset)
	}
	switch f.Interp {
	case InterpUnsigned, InterpSigned, InterpLamports:
		if !isIntWidth(f.Width) {
			return fmt.Errorf("integer width %d not in {1,2,4,8}", f.Width)
		}
	case InterpPubkey:
		if f.Width != 32 {
			return fmt.Errorf("pubkey width must be 32, got %d", f.Width)
		}
	case InterpBool:
		if f.Width != 1 {
			return fmt.Errorf("bool width must be 1, got %d", f.Width)
		}
	case InterpRaw:
		if f.Width <= 0 {
			return fmt.Errorf("raw width must be positive, got %d", f.Width)
		}
	default:
		return fmt.Errorf("unknown interpretation %d", f.Interp)
	}
	// 宽度已校验为正数，Offset+Width 不得溢出
	if f.Offset > math.MaxInt-f.Width {
		return fmt.Errorf("offset %d overflows with width %d", f.Offset, f.Width)
	}
	return nil
}

func isIntWidth(w int) bool {
	return w == 1 || w == 2 || w == 4 || w == 8
}
