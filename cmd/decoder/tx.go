package main

import (
	"context"
	"os"

	"ix-decoder-sol/internal/logic/core"
	"ix-decoder-sol/internal/logic/render"
	"ix-decoder-sol/internal/logic/txadapter"
	"ix-decoder-sol/internal/logic/txdecoder"
	"ix-decoder-sol/internal/pkg/logger"
	"ix-decoder-sol/internal/svc"

	"github.com/spf13/cobra"
)

var noCache bool

func init() {
	txCmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the redis cache")
}

var txCmd = &cobra.Command{
	Use:   "tx <signature>",
	Short: "Fetch a transaction over JSON-RPC and decode every instruction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		sc, err := svc.NewDecoderServiceContext(c)
		if err != nil {
			return err
		}
		defer sc.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), c.RpcConf.Timeout())
		defer cancel()

		tx, err := decodeSignature(ctx, sc, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(tx)
		}
		return render.WriteTx(os.Stdout, tx)
	},
}

func decodeSignature(ctx context.Context, sc *svc.DecoderServiceContext, signature string) (*core.DecodedTx, error) {
	useCache := sc.Cache != nil && !noCache
	if useCache {
		tx, ok, err := sc.Cache.Get(ctx, signature)
		if err != nil {
			logger.Warnf("读取缓存失败: %v", err)
		} else if ok {
			logger.Debugf("缓存命中: %s", signature)
			return tx, nil
		}
	}

	adapted, err := txadapter.FetchTx(ctx, sc.Client, signature)
	if err != nil {
		return nil, err
	}
	tx := txdecoder.DecodeTx(sc.Decoder, adapted)

	if useCache {
		if err := sc.Cache.Set(ctx, tx); err != nil {
			logger.Warnf("写入缓存失败: %v", err)
		}
	}
	return tx, nil
}
