package layout

import (
	"errors"
	"fmt"
	"os"

	"ix-decoder-sol/internal/discriminator"
	"ix-decoder-sol/internal/types"

	"gopkg.in/yaml.v3"
)

// 配置文件格式示例：
//
//	programs:
//	  - family: MyAmm
//	    program_id: 9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP
//	    opcode: {offset: 0, width: 8, endian: big}
//	    instructions:
//	      - anchor: swap            # opcode 由 sha256("global:swap")[:8] 计算
//	        name: Swap
//	        fields:
//	          - {name: amount_in, offset: 8, width: 8, type: unsigned_integer}
//	      - opcode: 3
//	        name: Close
type fileDocument struct {
	Programs []fileProgram `yaml:"programs"`
}

type fileProgram struct {
	Family    string            `yaml:"family"`
	ProgramID string            `yaml:"program_id"`
	Opcode    fileOpcode        `yaml:"opcode"`
	MinLength int               `yaml:"min_length"`
	Rules     []fileInstruction `yaml:"instructions"`
}

type fileOpcode struct {
	Offset int    `yaml:"offset"`
	Width  int    `yaml:"width"`
	Endian string `yaml:"endian"`
}

type fileInstruction struct {
	Opcode *uint64     `yaml:"opcode"`
	Anchor string      `yaml:"anchor"`
	Name   string      `yaml:"name"`
	Fields []fileField `yaml:"fields"`
}

type fileField struct {
	Name   string `yaml:"name"`
	Offset int    `yaml:"offset"`
	Width  int    `yaml:"width"`
	Endian string `yaml:"endian"`
	Type   string `yaml:"type"`
}

// LoadFile 读取 YAML 规则文件
func LoadFile(path string) ([]ProgramLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout file %s: %w", path, err)
	}
	programs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("layout file %s: %w", path, err)
	}
	return programs, nil
}

// Parse 解析 YAML 规则文档。这里只做格式转换，规则合法性由 NewRegistry 统一校验。
func Parse(data []byte) ([]ProgramLayout, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal layouts: %w", err)
	}

	var errs []error
	out := make([]ProgramLayout, 0, len(doc.Programs))
	for i, fp := range doc.Programs {
		p, err := fp.toLayout()
		if err != nil {
			errs = append(errs, fmt.Errorf("programs[%d] (%s): %w", i, fp.Family, err))
			continue
		}
		out = append(out, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (fp fileProgram) toLayout() (ProgramLayout, error) {
	id, err := types.TryPubkeyFromBase58(fp.ProgramID)
	if err != nil {
		return ProgramLayout{}, fmt.Errorf("program_id: %w", err)
	}
	endian, err := ParseEndian(fp.Opcode.Endian)
	if err != nil {
		return ProgramLayout{}, fmt.Errorf("opcode: %w", err)
	}

	p := ProgramLayout{
		Family:    fp.Family,
		ProgramID: id,
		Opcode:    OpcodeLocation{Offset: fp.Opcode.Offset, Width: fp.Opcode.Width, Endian: endian},
		MinLength: fp.MinLength,
		Rules:     make([]OpcodeRule, 0, len(fp.Rules)),
	}

	for _, fi := range fp.Rules {
		var opcode uint64
		switch {
		case fi.Opcode != nil && fi.Anchor != "":
			return ProgramLayout{}, fmt.Errorf("instruction %s: opcode and anchor are mutually exclusive", fi.Name)
		case fi.Opcode != nil:
			opcode = *fi.Opcode
		case fi.Anchor != "":
			opcode = discriminator.Global(fi.Anchor).Uint64()
		default:
			return ProgramLayout{}, fmt.Errorf("instruction %s: missing opcode or anchor", fi.Name)
		}

		rule := OpcodeRule{Opcode: opcode, Name: fi.Name, Fields: make([]FieldRule, 0, len(fi.Fields))}
		for _, ff := range fi.Fields {
			f, err := ff.toRule()
			if err != nil {
				return ProgramLayout{}, fmt.Errorf("instruction %s field %s: %w", fi.Name, ff.Name, err)
			}
			rule.Fields = append(rule.Fields, f)
		}
		p.Rules = append(p.Rules, rule)
	}
	return p, nil
}

func (ff fileField) toRule() (FieldRule, error) {
	endian, err := ParseEndian(ff.Endian)
	if err != nil {
		return FieldRule{}, err
	}
	interp, err := ParseInterpretation(ff.Type)
	if err != nil {
		return FieldRule{}, err
	}
	return FieldRule{
		Name:   ff.Name,
		Offset: ff.Offset,
		Width:  ff.Width,
		Endian: endian,
		Interp: interp,
	}, nil
}

// LoadRegistry 内置规则 + path 中声明的额外规则；path 为空时直接返回 Default()
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	extra, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return WithBuiltins(extra...)
}
