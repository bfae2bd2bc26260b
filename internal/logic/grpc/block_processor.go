package grpc

import (
	"context"
	"errors"
	"time"

	"ix-decoder-sol/internal/consts"
	"ix-decoder-sol/internal/logic/core"
	"ix-decoder-sol/internal/logic/txadapter"
	"ix-decoder-sol/internal/logic/txdecoder"
	"ix-decoder-sol/internal/mq"
	"ix-decoder-sol/internal/svc"
	"ix-decoder-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
)

// GapReporter 接收 slot 缺口（闭区间），由 SlotChecker 实现
type GapReporter interface {
	Submit(from, to uint64)
}

type BlockProcessor struct {
	sc        *svc.GrpcServiceContext
	blockChan chan *pb.SubscribeUpdateBlock // 接收 block 的 channel
	gaps      GapReporter
	lastSlot  uint64 // 上一个处理完成的 slot，只在 Start 所在 goroutine 中读写
	ctx       context.Context
	cancel    func(err error)
	logx.Logger
}

func NewBlockProcessor(sc *svc.GrpcServiceContext, blockChan chan *pb.SubscribeUpdateBlock, gaps GapReporter) *BlockProcessor {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &BlockProcessor{
		sc:        sc,
		blockChan: blockChan,
		gaps:      gaps,
		Logger:    logx.WithContext(ctx).WithFields(logx.Field("service", "block_processor")),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (p *BlockProcessor) Start() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case block := <-p.blockChan:
			p.procBlock(block)
			if len(p.blockChan) > 10 {
				p.Debugf("block chan len:%v", len(p.blockChan))
			}
		}
	}
}

func (p *BlockProcessor) Stop() {
	p.cancel(errors.New("service stop"))
}

func (p *BlockProcessor) procBlock(block *pb.SubscribeUpdateBlock) {
	startTime := time.Now()
	defer func() {
		p.Infof("区块处理总耗时: %v, slot: %d", time.Since(startTime), block.Slot)
	}()

	p.checkGap(block)

	// 1. 展平 + 解码
	txs := p.decodeBlock(block)
	observeDecoded(txs)

	// 2. 构造 Kafka 消息
	kafkaConf := &p.sc.Config.KafkaProducerConf
	jobs, err := mq.BuildDecodedJobs(txs, kafkaConf)
	if err != nil {
		p.Errorf("构造 Kafka 消息失败: slot=%d, err=%v", block.Slot, err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	// 3. 发送并等待 ack
	timeConf := p.sc.Config.TimeConf
	ctx, cancel := context.WithTimeout(p.ctx, time.Duration(timeConf.SlotDispatchTimeoutMs)*time.Millisecond)
	defer cancel()

	ok, failed := mq.SendKafkaJobs(ctx, p.sc.Producer, jobs, time.Duration(timeConf.RecordSendTimeoutMs)*time.Millisecond)
	if len(failed) > 0 {
		kafkaSendFailures.Add(float64(len(failed)))
		p.Errorf("slot %d 发送失败 %d 条, 首个错误: %v", block.Slot, len(failed), failed[0].Err)
	}
	p.Infof("slot %d 发送完成 (ok=%d failed=%d)", block.Slot, len(ok), len(failed))
}

// decodeBlock 过滤无效交易，展平后并发解码；按区块内 tx 顺序返回
func (p *BlockProcessor) decodeBlock(block *pb.SubscribeUpdateBlock) []*core.DecodedTx {
	txCtx := buildTxContext(block)

	adapted := make([]*core.AdaptedTx, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		if !IsValidGrpcTx(tx) {
			continue
		}
		adaptedTx, err := txadapter.AdaptGrpcTx(txCtx, tx)
		if err != nil {
			p.Errorf("交易展平失败: slot=%d, txIndex=%d, err=%v", block.Slot, tx.Index, err)
			continue
		}
		adapted = append(adapted, adaptedTx)
	}

	workers := p.sc.Config.Workers
	if workers <= 0 {
		workers = consts.CpuCount + 2
	}
	decodeStart := time.Now()
	txs := txdecoder.DecodeBlock(p.sc.Decoder, adapted, workers)

	decoded, undecoded := 0, 0
	for _, tx := range txs {
		d, u := tx.Stats()
		decoded += d
		undecoded += u
	}
	p.Infof("解码耗时: %v, 总tx数量: %d, 有效tx数量: %d, 指令: decoded=%d undecoded=%d",
		time.Since(decodeStart), len(block.Transactions), len(adapted), decoded, undecoded)
	return txs
}

// checkGap 与上一个区块的 slot 比较，发现缺失的 slot 交给 SlotChecker 延迟确认
func (p *BlockProcessor) checkGap(block *pb.SubscribeUpdateBlock) {
	last := p.lastSlot
	if block.Slot > last {
		p.lastSlot = block.Slot
	}
	if from, to, ok := slotGap(last, block.Slot); ok && p.gaps != nil {
		p.gaps.Submit(from, to)
	}
}

// slotGap 返回 last 与 current 之间缺失的闭区间；首个区块或乱序到达时不报告
func slotGap(last, current uint64) (from, to uint64, ok bool) {
	if last == 0 || current <= last+1 {
		return 0, 0, false
	}
	return last + 1, current - 1, true
}

func buildTxContext(block *pb.SubscribeUpdateBlock) *core.TxContext {
	// blockHash 解析失败只打日志，使用零值继续
	blockHash, err := types.HashFromBase58(block.Blockhash)
	if err != nil {
		logx.Errorf("BlockHash 无法解析，将使用零值：slot=%d, blockhash=%s, err=%v",
			block.Slot, block.Blockhash, err)
	}

	var blockTime int64
	if block.BlockTime != nil {
		blockTime = block.BlockTime.Timestamp
	}
	return &core.TxContext{
		BlockTime:  blockTime,
		Slot:       block.Slot,
		ParentSlot: block.ParentSlot,
		BlockHash:  blockHash,
	}
}

func IsValidGrpcTx(tx *pb.SubscribeUpdateTransactionInfo) bool {
	if tx == nil || // - nil transaction info
		tx.Transaction == nil || // - missing Transaction field
		tx.Transaction.Message == nil || // - missing Message field in transaction
		len(tx.Transaction.Signatures) == 0 || // - missing transaction signature
		len(tx.Transaction.Signatures[0]) != 64 || // - invalid transaction signature length
		tx.IsVote || // - vote transaction skipped
		tx.Meta == nil || // - missing transaction meta data
		tx.Meta.Err != nil { // - transaction execution failed
		return false
	}
	return true
}
