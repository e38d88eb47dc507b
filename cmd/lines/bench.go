package main

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/rm-tablet/lines/wire"
)

// cmdBench reports the raw block-stream size against its zstd-compressed
// size, as a rough proxy for how much structure the tagged block
// encoding already squeezes out versus a generic byte-level compressor.
func cmdBench(data []byte) {
	body, err := wire.ReadFileHeader(data)
	if err != nil {
		fatal("bad header: %v", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		fatal("new zstd writer: %v", err)
	}
	defer enc.Close()

	compressed := enc.EncodeAll(body, nil)

	var pct float64
	if len(body) > 0 {
		pct = 100 * (1 - float64(len(compressed))/float64(len(body)))
	}

	fmt.Printf("%-20s %10s\n", "metric", "value")
	fmt.Printf("%-20s %10d\n", "header bytes", wire.FileHeaderLen)
	fmt.Printf("%-20s %10d\n", "block stream bytes", len(body))
	fmt.Printf("%-20s %10d\n", "zstd bytes", len(compressed))
	fmt.Printf("%-20s %9.1f%%\n", "zstd savings", pct)

	if !bytes.Contains(data[:wire.FileHeaderLen], []byte("version=6")) {
		fmt.Println("warning: header does not advertise version=6")
	}
}
