package svc

import (
	"fmt"

	"ix-decoder-sol/internal/config"
	"ix-decoder-sol/internal/decoder"
	"ix-decoder-sol/internal/layout"
	"ix-decoder-sol/internal/mq"
	"ix-decoder-sol/internal/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// GrpcServiceContext 包含 gRPC 流式解码服务共享的资源
type GrpcServiceContext struct {
	Config   config.GrpcConfig
	Decoder  *decoder.Dispatcher
	Producer *kafka.Producer
}

// NewGrpcServiceContext 加载解码规则并初始化 Kafka 生产者
func NewGrpcServiceContext(c config.GrpcConfig) (*GrpcServiceContext, error) {
	// 1. 解码规则：内置 + layouts_file
	registry, err := layout.LoadRegistry(c.LayoutsFile)
	if err != nil {
		return nil, fmt.Errorf("load layouts: %w", err)
	}
	logger.Infof("解码规则加载完成，Program 数量: %d", registry.Len())

	// 2. 初始化 Kafka 生产者
	producer, err := mq.NewKafkaProducer(c.KafkaProducerConf)
	if err != nil {
		logger.Errorf("Kafka producer 初始化失败: %v", err)
		return nil, err
	}

	logger.Infof("gRPC 服务上下文初始化完成")
	return &GrpcServiceContext{
		Config:   c,
		Decoder:  decoder.New(registry),
		Producer: producer,
	}, nil
}

// Close 关闭服务上下文中的资源
func (ctx *GrpcServiceContext) Close() {
	if ctx.Producer != nil {
		ctx.Producer.Flush(5000)
		ctx.Producer.Close()
	}
}
