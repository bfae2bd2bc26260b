package config

import (
	"time"

	"ix-decoder-sol/internal/pkg/logger"
)

type LogConfig struct {
	Format   string `json:"format,default=console"` // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,optional"`       // 日志目录，为空时只输出到 stderr
	Level    string `json:"level,default=info"`     // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional"`      // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig Solana JSON-RPC 节点配置（tx 命令拉取交易使用）
type RpcConfig struct {
	Endpoint   string `json:"endpoint,default=https://api.mainnet-beta.solana.com"`
	TimeoutSec int    `json:"timeout_sec,default=15"`
}

func (c *RpcConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// RedisConfig 解码结果缓存，Addr 为空表示不启用
type RedisConfig struct {
	Addr     string `json:"addr,optional"`
	Password string `json:"password,optional"`
	DB       int    `json:"db,optional"`
	TTLSec   int    `json:"ttl_sec,default=86400"` // 缓存过期时间（秒）
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func (c *RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers   string `json:"brokers"`             // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    `json:"batch_size,optional"` // 批处理大小（单位字节）
	LingerMs  int    `json:"linger_ms,default=5"` // 批处理最大延迟（毫秒）
	ClientID  string `json:"client_id,optional"`  // 为空时使用 ix-decoder-<本机 IP>

	Topics struct {
		Decoded   string `json:"decoded,default=sol-ix-decoded"`     // 成功解码的指令
		Undecoded string `json:"undecoded,default=sol-ix-undecoded"` // 未知 Program / opcode 或数据不完整的指令
	} `json:"topics"`

	Partitions struct {
		Decoded   int `json:"decoded,default=12"`
		Undecoded int `json:"undecoded,default=3"`
	} `json:"partitions"`
}

// TimeConfig 表示各种超时配置（单位：毫秒）
type TimeConfig struct {
	SlotDispatchTimeoutMs int `json:"slot_dispatch_timeout_ms,default=3000"` // 每个 slot 发送 Kafka 的最大耗时
	RecordSendTimeoutMs   int `json:"record_send_timeout_ms,default=2000"`   // 单条记录发送到 Kafka 并等待 ack 的超时时间
}

// GrpcConnConfig yellowstone gRPC 连接相关配置
type GrpcConnConfig struct {
	Endpoint string `json:"endpoint"`         // gRPC 服务端地址
	XToken   string `json:"x_token,optional"` // x-token 认证

	// 应用级逻辑心跳（ping）配置
	StreamPingIntervalSec int `json:"stream_ping_interval_sec,default=10"`

	// gRPC Keepalive 底层连接检测配置
	KeepalivePingIntervalSec int `json:"keepalive_ping_interval_sec,default=10"`
	KeepalivePingTimeoutSec  int `json:"keepalive_ping_timeout_sec,default=5"`

	// gRPC 窗口大小调优（用于大数据流推送）
	InitialWindowSize     int `json:"initial_window_size,default=1073741824"`
	InitialConnWindowSize int `json:"initial_conn_window_size,default=1073741824"`

	// 消息体大小限制
	MaxCallSendMsgSize int `json:"max_call_send_msg_size,default=67108864"`
	MaxCallRecvMsgSize int `json:"max_call_recv_msg_size,default=67108864"`

	// 超时与重连策略
	ReconnectIntervalSec int `json:"reconnect_interval_sec,default=2"`
	ConnectTimeoutSec    int `json:"connect_timeout_sec,default=10"`
	SendTimeoutSec       int `json:"send_timeout_sec,default=5"`
	BlockRecvTimeoutSec  int `json:"block_recv_timeout_sec,default=30"` // 超过该时间未收到 block 触发重连
	MaxLatencyWarnMs     int `json:"max_latency_warn_ms,default=5000"`  // 延迟告警阈值（毫秒）

	// 漏块检测：slot 不连续时延迟 GapCheckDelaySec 秒再通过 RPC getBlocks 确认是否为空块
	GapCheckDelaySec int `json:"gap_check_delay_sec,default=30"`
}

// GrpcConfig 驱动 cmd/grpc 流式解码服务
type GrpcConfig struct {
	LogConf           LogConfig           `json:"logger"`         // 日志配置
	RpcConf           RpcConfig           `json:"rpc"`            // 漏块检测使用的 RPC 节点
	KafkaProducerConf KafkaProducerConfig `json:"kafka_producer"` // Kafka 生产者配置
	TimeConf          TimeConfig          `json:"time_conf"`      // 时间相关配置
	Grpc              GrpcConnConfig      `json:"grpc"`           // gRPC 客户端连接相关配置

	LayoutsFile string `json:"layouts_file,optional"` // 额外 Program 解码规则（YAML），与内置规则合并
	Workers     int    `json:"workers,optional"`      // 单个 block 内解码并发数，默认 CPU 数 + 2
	BlockBuffer int    `json:"block_buffer,default=200"`
	MetricsAddr string `json:"metrics_addr,optional"` // Prometheus 指标监听地址，为空时不启用
}

// DecoderConfig 驱动 cmd/decoder 命令行工具
type DecoderConfig struct {
	LogConf   LogConfig   `json:"logger"`
	RpcConf   RpcConfig   `json:"rpc"`
	RedisConf RedisConfig `json:"redis,optional"`

	LayoutsFile string `json:"layouts_file,optional"`
}
