package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"ix-decoder-sol/internal/logic/render"
	"ix-decoder-sol/internal/svc"
	"ix-decoder-sol/internal/types"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/jsonx"
)

var (
	programID    string
	dataInput    string
	dataEncoding string
)

func init() {
	decodeCmd.Flags().StringVarP(&programID, "program", "p", "", "program id (base58)")
	decodeCmd.Flags().StringVarP(&dataInput, "data", "d", "", "instruction data")
	decodeCmd.Flags().StringVarP(&dataEncoding, "encoding", "e", "auto", "data encoding: auto, hex or base58")
	_ = decodeCmd.MarkFlagRequired("program")
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a single instruction payload",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := types.TryPubkeyFromBase58(programID)
		if err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}
		data, err := parseData(dataInput, dataEncoding)
		if err != nil {
			return err
		}

		c, err := loadConfig()
		if err != nil {
			return err
		}
		sc, err := svc.NewDecoderServiceContext(c)
		if err != nil {
			return err
		}
		defer sc.Close()

		res := sc.Decoder.Decode(pid, data)
		if jsonOutput {
			return writeJSON(res)
		}
		return render.WriteResult(os.Stdout, res)
	},
}

// parseData 解析指令数据。auto 模式优先按 hex（可带 0x 前缀）解析，失败再按 base58（RPC 返回的格式）
func parseData(s, encoding string) ([]byte, error) {
	s = strings.TrimSpace(s)
	switch encoding {
	case "hex":
		return decodeHex(s)
	case "base58":
		return decodeBase58(s)
	case "auto":
		if data, err := decodeHex(s); err == nil {
			return data, nil
		}
		if data, err := decodeBase58(s); err == nil {
			return data, nil
		}
		return nil, fmt.Errorf("data %q is neither hex nor base58", s)
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return data, nil
}

func decodeBase58(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty base58 data")
	}
	data, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base58 data: %w", err)
	}
	return data, nil
}

func writeJSON(v any) error {
	data, err := jsonx.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
