// Package render 将解码结果渲染为终端可读文本。
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ix-decoder-sol/internal/decoder"
	"ix-decoder-sol/internal/logic/core"

	"github.com/fatih/color"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	nameColor    = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	programColor = color.New(color.Faint)
)

// WriteTx 输出一笔交易的签名、区块信息以及每条主指令 / inner 指令的解码结果
func WriteTx(w io.Writer, tx *core.DecodedTx) error {
	ew := &errWriter{w: w}

	titleColor.Fprintf(ew, "Signature: %s\n", tx.Signature)
	ew.printf("Slot: %d", tx.Slot)
	if tx.BlockTime > 0 {
		ew.printf("  BlockTime: %s", time.Unix(tx.BlockTime, 0).UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	ew.printf("\n")

	if len(tx.Signers) > 0 {
		signers := make([]string, len(tx.Signers))
		for i, s := range tx.Signers {
			signers[i] = s.String()
		}
		ew.printf("Signers: %s\n", strings.Join(signers, ", "))
	}

	decoded, undecoded := tx.Stats()
	ew.printf("Instructions: %d (decoded %d, undecoded %d)\n", len(tx.Instructions), decoded, undecoded)
	for i := range tx.Instructions {
		writeInstruction(ew, &tx.Instructions[i])
	}
	return ew.err
}

// WriteResult 输出单条指令的解码结果（decode 命令使用）
func WriteResult(w io.Writer, res decoder.Result) error {
	ew := &errWriter{w: w}
	writeResultBody(ew, res, "")
	return ew.err
}

func writeInstruction(ew *errWriter, ix *core.DecodedInstruction) {
	indent := "  "
	label := fmt.Sprintf("#%d", ix.IxIndex)
	if ix.InnerIndex > 0 {
		indent = "    "
		label = fmt.Sprintf("#%d.%d", ix.IxIndex, ix.InnerIndex)
	}
	ew.printf("%s%s ", indent, label)
	programColor.Fprintf(ew, "[%s] ", ix.ProgramID)
	writeResultBody(ew, ix.Result, indent+"    ")
}

func writeResultBody(ew *errWriter, res decoder.Result, indent string) {
	switch res.Kind {
	case decoder.KindDecoded:
		nameColor.Fprintf(ew, "%s.%s\n", res.Family, res.Instruction)
		for _, f := range res.Fields {
			ew.printf("%s%s: %s\n", indent, f.Name, f.Value)
		}
	case decoder.KindUnknownOpcode:
		warnColor.Fprintf(ew, "%s.%s\n", res.Family, res.Instruction)
		ew.printf("%sraw: %s\n", indent, res.RawHex)
	case decoder.KindUnknownProgram:
		warnColor.Fprintf(ew, "unknown program\n")
		if res.RawHex != "" {
			ew.printf("%sraw: %s\n", indent, res.RawHex)
		}
	case decoder.KindMalformed:
		name := res.Family
		if res.Instruction != "" {
			name += "." + res.Instruction
		}
		errorColor.Fprintf(ew, "%s (malformed: %s)\n", name, res.Reason)
		if res.RawHex != "" {
			ew.printf("%sraw: %s\n", indent, res.RawHex)
		}
	default:
		ew.printf("%s\n", res.Kind)
	}
}

// errWriter 记录第一个写入错误，之后的写入直接忽略
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e, format, args...)
}
