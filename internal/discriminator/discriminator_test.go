package discriminator

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobal_KnownValues(t *testing.T) {
	cases := []struct {
		name string
		want uint64
	}{
		{"swap", 0xf8c69e91e17587c8},
		{"swap_v2", 0x2b04ed0b1ac91e62},
		{"initialize", 0xafaf6d1f0d989bed},
		{"deposit", 0xf223c68952e1f2b6},
		{"withdraw", 0xb712469c946da122},
		{"swap_base_input", 0x8fbe5adac41e33de},
		{"swap_base_output", 0x37d96256a34ab4ad},
		{"increase_liquidity", 0x2e9cf3760dcdfbb2},
		{"decrease_liquidity", 0xa026d06f685b2c01},
		{"initialize_pool", 0x5fb40aac54aee828},
		{"create_pool", 0xe992d18ecf6840bc},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Global(c.name).Uint64())
		})
	}
}

func TestOf_Deterministic(t *testing.T) {
	a := Of("global", "transfer")
	b := Of("global", "transfer")
	assert.Equal(t, a, b)
	assert.Equal(t, "a334c8e78c0345ba", a.Hex())

	// scope 参与哈希
	assert.NotEqual(t, a, Of("state", "transfer"))
}

func TestFromHex(t *testing.T) {
	d, err := FromHex("f8c69e91e17587c8")
	require.NoError(t, err)
	assert.Equal(t, Global("swap"), d)

	_, err = FromHex("f8c6")
	assert.Error(t, err)

	_, err = FromHex("zz")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	names := []string{"initialize", "deposit", "withdraw", "swap_base_input", "swap_base_output"}
	table := Build(ScopeGlobal, names)

	assert.Len(t, table.FuncDisc, len(names))
	assert.Len(t, table.DiscFunc, len(names))

	for _, name := range names {
		disc := table.FuncDisc[name]
		back, ok := table.Lookup(disc)
		require.True(t, ok)
		assert.Equal(t, name, back)
	}

	_, ok := table.Lookup("0000000000000000")
	assert.False(t, ok)
}

func TestBuild_DuplicateNames(t *testing.T) {
	table := Build(ScopeGlobal, []string{"swap", "swap"})
	assert.Len(t, table.FuncDisc, 1)
	assert.Len(t, table.DiscFunc, 1)
}

type swapArgs struct {
	Amount               uint64
	OtherAmountThreshold uint64
	AToB                 bool
}

func TestEncode(t *testing.T) {
	data, err := Encode(Global("swap"), swapArgs{Amount: 1000, OtherAmountThreshold: 990, AToB: true})
	require.NoError(t, err)
	require.Len(t, data, 8+8+8+1)

	assert.Equal(t, uint64(0xf8c69e91e17587c8), binary.BigEndian.Uint64(data[:8]))
	assert.Equal(t, uint64(1000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(990), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, byte(1), data[24])

	only, err := Encode(Global("initialize"), nil)
	require.NoError(t, err)
	assert.Equal(t, Global("initialize").Hex(), hex.EncodeToString(only))
}

func TestBuildDocument(t *testing.T) {
	programs := map[string]ProgramMethods{
		"raydium_cpmm": {
			NumBytes: 8,
			Methods:  []string{"initialize", "swap_base_input"},
		},
		"spl_token": {
			NumBytes: 1,
			Methods:  []string{"transfer 03", "burn 08"},
		},
	}
	doc, err := BuildDocument(programs)
	require.NoError(t, err)
	require.Len(t, doc, 2)

	assert.Equal(t, "8fbe5adac41e33de", doc["raydium_cpmm"].FuncDisc["swap_base_input"])
	assert.Equal(t, "transfer", doc["spl_token"].DiscFunc["03"])
	assert.Equal(t, "08", doc["spl_token"].FuncDisc["burn"])

	_, err = BuildDocument(map[string]ProgramMethods{
		"bad": {NumBytes: 1, Methods: []string{"transfer"}},
	})
	assert.Error(t, err)
}

func TestDocumentFileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	methods := `
raydium_cpmm:
  num_bytes: 8
  methods:
    - initialize
    - deposit
spl_token:
  num_bytes: 1
  methods:
    - "transfer 03"
`
	in := filepath.Join(dir, "prog_func.yaml")
	require.NoError(t, os.WriteFile(in, []byte(methods), 0o644))

	programs, err := LoadProgramMethods(in)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, 8, programs["raydium_cpmm"].NumBytes)

	doc, err := BuildDocument(programs)
	require.NoError(t, err)

	out := filepath.Join(dir, "discriminators.json")
	require.NoError(t, doc.WriteFile(out))

	back, err := ReadDocument(out)
	require.NoError(t, err)
	assert.Equal(t, doc, back)
	assert.Equal(t, "deposit", back["raydium_cpmm"].DiscFunc["f223c68952e1f2b6"])
}
