// lines - reMarkable v6 .lines scene file inspector
//
// Usage:
//
//	lines dump [file]    Decode a scene file and print its tree
//	lines view [file]    Browse a scene file's tree interactively
//	lines bench [file]   Compare raw vs zstd-compressed block stream size
//	lines version        Print version info
//
// If no file is given, reads from stdin.
package main

import (
	"fmt"
	"io"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "dump":
		cmdDump(openInput(args))
	case "view":
		cmdView(openInput(args))
	case "bench":
		cmdBench(openInput(args))
	case "version", "-v", "--version":
		fmt.Printf("lines %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

// openInput reads the whole input named by the first positional
// argument in args, or stdin when none is given.
func openInput(args []string) []byte {
	var r io.Reader = os.Stdin
	for _, arg := range args {
		if arg == "-" || len(arg) == 0 {
			continue
		}
		f, err := os.Open(arg)
		if err != nil {
			fatal("open file: %v", err)
		}
		defer f.Close()
		r = f
		break
	}
	data, err := io.ReadAll(r)
	if err != nil {
		fatal("read input: %v", err)
	}
	return data
}

func printUsage() {
	fmt.Fprint(os.Stderr, `lines - reMarkable v6 .lines scene file inspector

Usage:
  lines dump [file]    Decode a scene file and print its tree
  lines view [file]    Browse a scene file's tree interactively
  lines bench [file]   Compare raw vs zstd-compressed block stream size
  lines version        Print version info

If no file is given, reads from stdin.
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "lines: "+format+"\n", args...)
	os.Exit(1)
}
