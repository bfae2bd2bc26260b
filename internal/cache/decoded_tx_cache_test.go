package cache

import (
	"context"
	"testing"
	"time"

	"ix-decoder-sol/internal/consts"
	"ix-decoder-sol/internal/decoder"
	"ix-decoder-sol/internal/logic/core"
	"ix-decoder-sol/internal/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*DecodedTxCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewDecodedTxCache(rdb, ttl), mr
}

func sampleDecodedTx() *core.DecodedTx {
	d := decoder.New(nil)
	payer := types.PubkeyFromBase58("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP")
	return &core.DecodedTx{
		Slot:      123,
		BlockTime: 1700000000,
		Signature: "5sig",
		Signers:   []types.Pubkey{payer},
		Instructions: []core.DecodedInstruction{
			{
				ProgramID: consts.SystemProgram,
				Accounts:  []types.Pubkey{payer},
				Result:    d.Decode(consts.SystemProgram, []byte{2, 0, 0, 0, 0, 0x2f, 0x68, 0x59, 0, 0, 0, 0}),
			},
			{
				IxIndex:    0,
				InnerIndex: 1,
				ProgramID:  payer,
				Result:     d.Decode(payer, []byte{0xab}),
			},
		},
	}
}

func TestDecodedTxCache_Miss(t *testing.T) {
	c, _ := newTestCache(t, 0)
	tx, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, tx)
}

func TestDecodedTxCache_RoundTrip(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	want := sampleDecodedTx()

	require.NoError(t, c.Set(ctx, want))
	assert.True(t, mr.Exists("decoded:tx:5sig"))
	assert.Equal(t, time.Minute, mr.TTL("decoded:tx:5sig"))

	got, ok, err := c.Get(ctx, "5sig")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	lamports, ok := got.Instructions[0].Result.Get("lamports")
	require.True(t, ok)
	assert.Equal(t, "1500000000 (1.5 SOL)", lamports.String())
	assert.Equal(t, decoder.KindUnknownProgram, got.Instructions[1].Result.Kind)
}

func TestDecodedTxCache_Expire(t *testing.T) {
	c, mr := newTestCache(t, time.Second)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, sampleDecodedTx()))

	mr.FastForward(2 * time.Second)
	_, ok, err := c.Get(ctx, "5sig")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodedTxCache_Corrupted(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, mr.Set("decoded:tx:bad", "{not json"))
	_, ok, err := c.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewDecodedTxCache_DefaultTTL(t *testing.T) {
	c := NewDecodedTxCache(nil, 0)
	assert.Equal(t, defaultTTL, c.ttl)
}
