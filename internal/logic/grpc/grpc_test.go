package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"ix-decoder-sol/internal/consts"
	"ix-decoder-sol/internal/decoder"
	"ix-decoder-sol/internal/layout"
	"ix-decoder-sol/internal/logic/core"
	"ix-decoder-sol/internal/svc"
	"ix-decoder-sol/internal/types"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payer = types.PubkeyFromBase58("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP")

func validTx(index uint64) *pb.SubscribeUpdateTransactionInfo {
	return &pb.SubscribeUpdateTransactionInfo{
		Index: index,
		Transaction: &pb.Transaction{
			Signatures: [][]byte{make([]byte, 64)},
			Message: &pb.Message{
				Header:      &pb.MessageHeader{NumRequiredSignatures: 1},
				AccountKeys: [][]byte{payer[:], consts.TokenProgram[:]},
				Instructions: []*pb.CompiledInstruction{
					{ProgramIdIndex: 1, Accounts: []byte{0}, Data: []byte{3, 0xe8, 3, 0, 0, 0, 0, 0, 0}},
				},
			},
		},
		Meta: &pb.TransactionStatusMeta{},
	}
}

func TestIsValidGrpcTx(t *testing.T) {
	assert.True(t, IsValidGrpcTx(validTx(0)))
	assert.False(t, IsValidGrpcTx(nil))

	cases := map[string]func(tx *pb.SubscribeUpdateTransactionInfo){
		"vote":          func(tx *pb.SubscribeUpdateTransactionInfo) { tx.IsVote = true },
		"failed":        func(tx *pb.SubscribeUpdateTransactionInfo) { tx.Meta.Err = &pb.TransactionError{Err: []byte{1}} },
		"no meta":       func(tx *pb.SubscribeUpdateTransactionInfo) { tx.Meta = nil },
		"short sig":     func(tx *pb.SubscribeUpdateTransactionInfo) { tx.Transaction.Signatures[0] = []byte{1} },
		"no signatures": func(tx *pb.SubscribeUpdateTransactionInfo) { tx.Transaction.Signatures = nil },
		"no message":    func(tx *pb.SubscribeUpdateTransactionInfo) { tx.Transaction.Message = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tx := validTx(0)
			mutate(tx)
			assert.False(t, IsValidGrpcTx(tx))
		})
	}
}

func TestBuildSubscribeRequest(t *testing.T) {
	include := accountIncludeOf(layout.Default().ProgramIDs())
	require.Len(t, include, layout.Default().Len())
	assert.Contains(t, include, consts.TokenProgramStr)
	assert.Contains(t, include, consts.RaydiumCPMMProgramStr)

	req := buildSubscribeRequest(include)
	filter := req.Blocks["blocks"]
	require.NotNil(t, filter)
	assert.Equal(t, include, filter.AccountInclude)
	assert.True(t, filter.GetIncludeTransactions())
	assert.False(t, filter.GetIncludeAccounts())
	assert.Equal(t, pb.CommitmentLevel_CONFIRMED, req.GetCommitment())
}

func TestSlotGap(t *testing.T) {
	_, _, ok := slotGap(0, 100)
	assert.False(t, ok, "first block")

	_, _, ok = slotGap(100, 101)
	assert.False(t, ok)

	_, _, ok = slotGap(100, 99)
	assert.False(t, ok, "out of order")

	from, to, ok := slotGap(100, 104)
	require.True(t, ok)
	assert.Equal(t, uint64(101), from)
	assert.Equal(t, uint64(103), to)
}

type recordingGaps struct {
	ranges [][2]uint64
}

func (r *recordingGaps) Submit(from, to uint64) {
	r.ranges = append(r.ranges, [2]uint64{from, to})
}

func TestBlockProcessor_DecodeBlockAndGaps(t *testing.T) {
	gaps := &recordingGaps{}
	sc := &svc.GrpcServiceContext{Decoder: decoder.New(nil)}
	p := NewBlockProcessor(sc, nil, gaps)

	vote := validTx(1)
	vote.IsVote = true
	broken := validTx(2)
	broken.Transaction.Message.Instructions[0].ProgramIdIndex = 9

	block := &pb.SubscribeUpdateBlock{
		Slot:         500,
		ParentSlot:   499,
		BlockTime:    &pb.UnixTimestamp{Timestamp: 1700000000},
		Blockhash:    "4sGjMW1sUnHzSxGspuhpqLDx6wiyjNtZAMdL4VZHirAn",
		Transactions: []*pb.SubscribeUpdateTransactionInfo{validTx(0), vote, broken, validTx(3)},
	}

	txs := p.decodeBlock(block)
	require.Len(t, txs, 2)
	assert.Equal(t, uint32(0), txs[0].TxIndex)
	assert.Equal(t, uint32(3), txs[1].TxIndex)
	assert.Equal(t, uint64(500), txs[0].Slot)
	assert.Equal(t, int64(1700000000), txs[0].BlockTime)

	res := txs[0].Instructions[0].Result
	require.Equal(t, decoder.KindDecoded, res.Kind)
	assert.Equal(t, "Transfer", res.Instruction)

	p.checkGap(block)
	p.checkGap(&pb.SubscribeUpdateBlock{Slot: 503})
	p.checkGap(&pb.SubscribeUpdateBlock{Slot: 502}) // 乱序，不回退
	p.checkGap(&pb.SubscribeUpdateBlock{Slot: 504})
	assert.Equal(t, [][2]uint64{{501, 502}}, gaps.ranges)
}

func TestBuildTxContext_BadHash(t *testing.T) {
	txCtx := buildTxContext(&pb.SubscribeUpdateBlock{Slot: 1, Blockhash: "bad!"})
	assert.Equal(t, uint64(1), txCtx.Slot)
	assert.Equal(t, types.Hash{}, txCtx.BlockHash)
	assert.Zero(t, txCtx.BlockTime)
}

func TestMergeRanges(t *testing.T) {
	now := time.Now()
	assert.Nil(t, mergeRanges(nil))

	merged := mergeRanges([]SlotRange{
		{From: 20, To: 25, SubmitAt: now},
		{From: 1, To: 5, SubmitAt: now},
		{From: 6, To: 9, SubmitAt: now},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, uint64(1), merged[0].From)
	assert.Equal(t, uint64(25), merged[0].To)

	// 超过单次 getBlocks 上限时拆分
	merged = mergeRanges([]SlotRange{{From: 0, To: 25000, SubmitAt: now}})
	require.Len(t, merged, 3)
	assert.Equal(t, uint64(9999), merged[0].To)
	assert.Equal(t, uint64(10000), merged[1].From)
	assert.Equal(t, uint64(25000), merged[2].To)
}

func TestFillEmptySlots(t *testing.T) {
	empty := map[uint64]struct{}{}
	fillEmptySlots(10, 15, []uint64{14, 11}, empty)
	assert.Equal(t, map[uint64]struct{}{10: {}, 12: {}, 13: {}, 15: {}}, empty)

	empty = map[uint64]struct{}{}
	fillEmptySlots(1, 3, nil, empty)
	assert.Len(t, empty, 3)

	empty = map[uint64]struct{}{}
	fillEmptySlots(1, 2, []uint64{1, 2}, empty)
	assert.Empty(t, empty)
}

func TestSlotInFailedRanges(t *testing.T) {
	failed := []SlotRange{{From: 10, To: 20}, {From: 40, To: 50}}
	assert.True(t, slotInFailedRanges(15, failed))
	assert.True(t, slotInFailedRanges(40, failed))
	assert.False(t, slotInFailedRanges(30, failed))
	assert.False(t, slotInFailedRanges(5, failed))
}

// rpc.RpcClient 必须满足 BlockLister，否则 NewSlotChecker 无法编译
var _ BlockLister = (*rpc.RpcClient)(nil)

type fakeLister struct {
	blocks []uint64
	err    error
	calls  int
}

func (f *fakeLister) GetBlocks(context.Context, uint64, uint64) (rpc.JsonRpcResponse[[]uint64], error) {
	f.calls++
	if f.err != nil {
		return rpc.JsonRpcResponse[[]uint64]{}, f.err
	}
	return rpc.JsonRpcResponse[[]uint64]{Result: f.blocks}, nil
}

func TestSlotChecker_CheckSlotRanges(t *testing.T) {
	// 101、103 在链上存在却没有被处理，102 为空块
	lister := &fakeLister{blocks: []uint64{101, 103}}
	s := newSlotChecker(lister, 0)
	defer s.Stop()

	s.checkSlotRanges([]SlotRange{{From: 101, To: 103}})
	assert.Equal(t, uint64(2), s.MissingSlots())
	assert.Equal(t, 1, lister.calls)
}

func TestNewSlotChecker_UsesRpcClient(t *testing.T) {
	s := NewSlotChecker("http://127.0.0.1:8899", time.Second)
	defer s.Stop()
	_, ok := s.client.(*rpc.RpcClient)
	assert.True(t, ok)
}

func TestSlotChecker_RPCFailureNotCounted(t *testing.T) {
	lister := &fakeLister{err: errors.New("rpc down")}
	s := newSlotChecker(lister, 0)
	defer s.Stop()

	s.checkSlotRanges([]SlotRange{{From: 1, To: 3}})
	assert.Zero(t, s.MissingSlots())
	assert.Equal(t, 3, lister.calls)
}

func TestSlotChecker_Submit(t *testing.T) {
	s := newSlotChecker(&fakeLister{}, time.Second)
	defer s.Stop()

	s.Submit(5, 3) // 非法区间直接丢弃
	s.Submit(3, 5)
	require.Len(t, s.rangeCh, 1)
	r := <-s.rangeCh
	assert.Equal(t, uint64(3), r.From)
	assert.Equal(t, uint64(5), r.To)
}

func TestObserveDecoded(t *testing.T) {
	d := decoder.New(nil)
	unknown := types.PubkeyFromBase58("SysvarRent111111111111111111111111111111111")
	txs := []*core.DecodedTx{{
		Instructions: []core.DecodedInstruction{
			{Result: d.Decode(consts.TokenProgram, []byte{9})},
			{Result: d.Decode(consts.TokenProgram, []byte{9})},
			{Result: d.Decode(unknown, nil)},
		},
	}}

	closeAccount := instructionsDecoded.WithLabelValues("decoded", consts.FamilySplToken)
	unknownProgram := instructionsDecoded.WithLabelValues("unknown_program", "unknown")
	beforeBlocks := testutil.ToFloat64(blocksProcessed)
	beforeClose := testutil.ToFloat64(closeAccount)
	beforeUnknown := testutil.ToFloat64(unknownProgram)

	observeDecoded(txs)

	assert.Equal(t, beforeBlocks+1, testutil.ToFloat64(blocksProcessed))
	assert.Equal(t, beforeClose+2, testutil.ToFloat64(closeAccount))
	assert.Equal(t, beforeUnknown+1, testutil.ToFloat64(unknownProgram))
}
