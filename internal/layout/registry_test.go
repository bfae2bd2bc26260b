package layout

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"ix-decoder-sol/internal/consts"
	"ix-decoder-sol/internal/discriminator"
	"ix-decoder-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgram = types.PubkeyFromBase58("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP")

func validLayout() ProgramLayout {
	return ProgramLayout{
		Family:    "Test",
		ProgramID: testProgram,
		Opcode:    ByteOpcode(0),
		Rules: []OpcodeRule{
			{Opcode: 3, Name: "Transfer", Fields: []FieldRule{U64("amount", 1)}},
		},
	}
}

func TestDefault_Builtins(t *testing.T) {
	reg := Default()
	require.NotNil(t, reg)
	assert.Same(t, reg, Default())
	assert.Equal(t, len(BuiltinLayouts()), reg.Len())

	for _, id := range []types.Pubkey{
		consts.SystemProgram,
		consts.TokenProgram,
		consts.TokenProgram2022,
		consts.ComputeBudgetProgram,
		consts.RaydiumV4Program,
		consts.RaydiumCLMMProgram,
		consts.RaydiumCPMMProgram,
		consts.OrcaWhirlpoolProgram,
	} {
		_, ok := reg.Lookup(id)
		assert.True(t, ok, id.String())
	}

	_, ok := reg.Lookup(consts.AssociatedTokenProgram)
	assert.False(t, ok)
}

func TestDefault_OpcodeLocations(t *testing.T) {
	reg := Default()

	sys, _ := reg.Lookup(consts.SystemProgram)
	assert.Equal(t, OpcodeLocation{Offset: 0, Width: 4, Endian: LittleEndian}, sys.Opcode)
	assert.Equal(t, 4, sys.MinLength)

	token, _ := reg.Lookup(consts.TokenProgram)
	assert.Equal(t, 1, token.MinLength)

	cpmm, _ := reg.Lookup(consts.RaydiumCPMMProgram)
	assert.Equal(t, 8, cpmm.Opcode.Offset)
	assert.Equal(t, 9, cpmm.MinLength)

	whirl, _ := reg.Lookup(consts.OrcaWhirlpoolProgram)
	rule, ok := whirl.Rule(discriminator.Global("swap").Uint64())
	require.True(t, ok)
	assert.Equal(t, "Swap", rule.Name)
}

func TestDefault_TokenTablesShared(t *testing.T) {
	reg := Default()
	a, _ := reg.Lookup(consts.TokenProgram)
	b, _ := reg.Lookup(consts.TokenProgram2022)

	require.Equal(t, len(a.Rules), len(b.Rules))
	for i := range a.Rules {
		assert.Equal(t, a.Rules[i].Opcode, b.Rules[i].Opcode)
		assert.Equal(t, a.Rules[i].Name, b.Rules[i].Name)
		assert.Equal(t, a.Rules[i].Fields, b.Rules[i].Fields)
	}
	assert.NotEqual(t, a.Family, b.Family)
}

func TestNewRegistry_MinLengthDefault(t *testing.T) {
	l := validLayout()
	l.Opcode = ByteOpcode(8)

	reg, err := NewRegistry(l)
	require.NoError(t, err)
	p, ok := reg.Lookup(testProgram)
	require.True(t, ok)
	assert.Equal(t, 9, p.MinLength)
}

func TestNewRegistry_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(l *ProgramLayout)
	}{
		{"empty family", func(l *ProgramLayout) { l.Family = "" }},
		{"negative opcode offset", func(l *ProgramLayout) { l.Opcode.Offset = -1 }},
		{"opcode width 3", func(l *ProgramLayout) { l.Opcode.Width = 3 }},
		{"min length before opcode end", func(l *ProgramLayout) {
			l.Opcode = ByteOpcode(8)
			l.MinLength = 1
		}},
		{"opcode exceeds width", func(l *ProgramLayout) { l.Rules[0].Opcode = 256 }},
		{"empty rule name", func(l *ProgramLayout) { l.Rules[0].Name = "" }},
		{"duplicate opcode", func(l *ProgramLayout) {
			l.Rules = append(l.Rules, OpcodeRule{Opcode: 3, Name: "Again"})
		}},
		{"opcode offset overflow", func(l *ProgramLayout) { l.Opcode.Offset = math.MaxInt }},
		{"negative field offset", func(l *ProgramLayout) { l.Rules[0].Fields[0].Offset = -4 }},
		{"field offset overflow", func(l *ProgramLayout) { l.Rules[0].Fields[0].Offset = math.MaxInt - 7 }},
		{"integer width 16", func(l *ProgramLayout) { l.Rules[0].Fields[0].Width = 16 }},
		{"pubkey width", func(l *ProgramLayout) {
			l.Rules[0].Fields = []FieldRule{{Name: "owner", Offset: 1, Width: 31, Interp: InterpPubkey}}
		}},
		{"bool width", func(l *ProgramLayout) {
			l.Rules[0].Fields = []FieldRule{{Name: "flag", Offset: 1, Width: 2, Interp: InterpBool}}
		}},
		{"raw width zero", func(l *ProgramLayout) { l.Rules[0].Fields = []FieldRule{Raw("blob", 1, 0)} }},
		{"unknown interpretation", func(l *ProgramLayout) { l.Rules[0].Fields[0].Interp = 0 }},
		{"duplicate field", func(l *ProgramLayout) {
			l.Rules[0].Fields = append(l.Rules[0].Fields, U8("amount", 9))
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l := validLayout()
			c.mutate(&l)
			_, err := NewRegistry(l)
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}

func TestNewRegistry_DuplicateProgram(t *testing.T) {
	_, err := NewRegistry(validLayout(), validLayout())
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestMustNewRegistry_PanicsOnDefect(t *testing.T) {
	l := validLayout()
	l.Rules[0].Fields[0].Offset = -1
	assert.Panics(t, func() { MustNewRegistry(l) })
}

func TestNewRegistry_FieldsPastAnyBufferAccepted(t *testing.T) {
	// 字段区间只在解码时与 buffer 长度比较
	l := validLayout()
	l.Rules[0].Fields = []FieldRule{U64("far", 4096)}
	_, err := NewRegistry(l)
	assert.NoError(t, err)
}

func TestNewRegistry_CopiesRules(t *testing.T) {
	l := validLayout()
	reg, err := NewRegistry(l)
	require.NoError(t, err)

	l.Rules[0].Name = "Mutated"
	l.Rules[0].Fields[0].Offset = 2

	p, _ := reg.Lookup(testProgram)
	rule, ok := p.Rule(3)
	require.True(t, ok)
	assert.Equal(t, "Transfer", rule.Name)
	assert.Equal(t, 1, rule.Fields[0].Offset)
}

func TestProgramIDs_Sorted(t *testing.T) {
	ids := Default().ProgramIDs()
	require.Len(t, ids, Default().Len())
	for i := 1; i < len(ids); i++ {
		assert.Negative(t, compareKeys(ids[i-1], ids[i]))
	}
}

func compareKeys(a, b types.Pubkey) int {
	for i := range a {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return 0
}

const testLayoutsYAML = `
programs:
  - family: TestAmm
    program_id: 9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP
    opcode: {offset: 0, width: 8, endian: big}
    instructions:
      - anchor: swap
        name: Swap
        fields:
          - {name: amount_in, offset: 8, width: 8, type: unsigned_integer}
          - {name: tick, offset: 16, width: 4, type: signed_integer}
          - {name: fee, offset: 20, width: 8, type: lamports, endian: little}
      - opcode: 3
        name: Close
`

func TestParse(t *testing.T) {
	programs, err := Parse([]byte(testLayoutsYAML))
	require.NoError(t, err)
	require.Len(t, programs, 1)

	p := programs[0]
	assert.Equal(t, "TestAmm", p.Family)
	assert.Equal(t, testProgram, p.ProgramID)
	assert.Equal(t, OpcodeLocation{Offset: 0, Width: 8, Endian: BigEndian}, p.Opcode)
	require.Len(t, p.Rules, 2)

	assert.Equal(t, discriminator.Global("swap").Uint64(), p.Rules[0].Opcode)
	assert.Equal(t, []FieldRule{
		{Name: "amount_in", Offset: 8, Width: 8, Interp: InterpUnsigned},
		{Name: "tick", Offset: 16, Width: 4, Interp: InterpSigned},
		{Name: "fee", Offset: 20, Width: 8, Interp: InterpLamports},
	}, p.Rules[0].Fields)
	assert.Equal(t, uint64(3), p.Rules[1].Opcode)

	reg, err := WithBuiltins(programs...)
	require.NoError(t, err)
	assert.Equal(t, len(BuiltinLayouts())+1, reg.Len())
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"bad yaml": "programs: [",
		"bad program id": `
programs:
  - family: X
    program_id: not-base58-0OIl
    opcode: {width: 1}
`,
		"bad endian": `
programs:
  - family: X
    program_id: 9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP
    opcode: {width: 1, endian: middle}
`,
		"missing opcode": `
programs:
  - family: X
    program_id: 9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP
    opcode: {width: 1}
    instructions:
      - name: Nothing
`,
		"both opcode and anchor": `
programs:
  - family: X
    program_id: 9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP
    opcode: {width: 8}
    instructions:
      - name: Both
        opcode: 1
        anchor: swap
`,
		"bad field type": `
programs:
  - family: X
    program_id: 9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP
    opcode: {width: 1}
    instructions:
      - name: A
        opcode: 1
        fields:
          - {name: f, offset: 1, width: 4, type: float}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testLayoutsYAML), 0o644))

	programs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, programs, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseInterpretation(t *testing.T) {
	for in, want := range map[string]Interpretation{
		"unsigned_integer":     InterpUnsigned,
		"u":                    InterpUnsigned,
		"signed_integer":       InterpSigned,
		"raw_bytes":            InterpRaw,
		"fixed_point_lamports": InterpLamports,
		"lamports":             InterpLamports,
		"pubkey":               InterpPubkey,
		"BOOL":                 InterpBool,
	} {
		got, err := ParseInterpretation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseInterpretation("")
	assert.Error(t, err)
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)
	assert.Same(t, Default(), reg)

	reg, err = LoadRegistry("../../etc/layouts.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default().Len()+1, reg.Len())
	_, ok := reg.Lookup(consts.AssociatedTokenProgram)
	assert.True(t, ok)

	_, err = LoadRegistry("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestLoadRegistry_OffsetOverflow(t *testing.T) {
	// offset + width 超出 int 范围时在构建期报错，而不是得到负的 MinLength
	doc := `
programs:
  - family: X
    program_id: 9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP
    opcode: {offset: 9223372036854775807, width: 1}
`
	path := filepath.Join(t.TempDir(), "layouts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := LoadRegistry(path)
	assert.ErrorIs(t, err, ErrInvalidLayout)
}
