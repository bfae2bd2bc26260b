package consts

import "runtime"

// ChainIDSolana 写入每条记录，下游多链消费时区分来源
const (
	ChainIDSolana uint32 = 100000
)

// CpuCount 表示逻辑 CPU 核心数，用于控制并发任务调度上限
var CpuCount = runtime.NumCPU()

// Record 类型，写入 Kafka 消息前 4 字节
const (
	RecordTypeInstruction uint32 = 1
)
