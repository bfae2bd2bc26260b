package utils

import (
	"encoding/binary"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// EncodeRecord 将 protobuf 消息编码为带记录类型前缀的二进制数据：
// - 前 4 字节为记录类型（uint32，小端序）
// - 后续为 protobuf 确定性序列化数据
func EncodeRecord(recordType uint32, msg proto.Message) ([]byte, error) {
	const extraBuffer = 32 // 多预留一些空间，降低 MarshalAppend 触发扩容的概率

	size := proto.Size(msg)
	buf := make([]byte, 4, 4+size+extraBuffer)
	binary.LittleEndian.PutUint32(buf[:4], recordType)

	opts := proto.MarshalOptions{Deterministic: true}
	result, err := opts.MarshalAppend(buf, msg)
	if err != nil {
		return nil, fmt.Errorf("EncodeRecord: marshal %T: %w", msg, err)
	}
	return result, nil
}

// DecodeRecord 拆分记录类型前缀并反序列化到 msg
func DecodeRecord(data []byte, msg proto.Message) (uint32, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("DecodeRecord: data too short: %d", len(data))
	}
	recordType := binary.LittleEndian.Uint32(data[:4])
	if err := proto.Unmarshal(data[4:], msg); err != nil {
		return 0, fmt.Errorf("DecodeRecord: unmarshal %T: %w", msg, err)
	}
	return recordType, nil
}
