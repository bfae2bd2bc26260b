package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenProgramStr = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func TestPubkeyBase58RoundTrip(t *testing.T) {
	p := PubkeyFromBase58(tokenProgramStr)
	assert.Equal(t, tokenProgramStr, p.String())
	assert.False(t, p.IsZero())

	// System Program 全 0
	sys := PubkeyFromBase58("11111111111111111111111111111111")
	assert.True(t, sys.IsZero())
}

func TestTryPubkeyFromBase58_Invalid(t *testing.T) {
	_, err := TryPubkeyFromBase58("0OIl")
	assert.Error(t, err)

	_, err = TryPubkeyFromBase58("abc")
	assert.Error(t, err, "长度不足 32 字节应报错")

	assert.Panics(t, func() { PubkeyFromBase58("abc") })
}

func TestPubkeyFromBytes(t *testing.T) {
	_, err := PubkeyFromBytes(make([]byte, 31))
	assert.Error(t, err)

	b := make([]byte, 32)
	b[31] = 7
	p, err := PubkeyFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, byte(7), p[31])
}

func TestPubkeyJSON(t *testing.T) {
	p := PubkeyFromBase58(tokenProgramStr)
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `"`+tokenProgramStr+`"`, string(data))

	var back Pubkey
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, back)
}
