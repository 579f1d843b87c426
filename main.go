// Package main provides the entry point for rv32tb.
// rv32tb is a cycle-level verification harness for 5-stage RV32 pipelines.
//
// For the full CLI, use: go run ./cmd/rv32tb
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rv32tb - RV32 5-Stage Pipeline Testbench")
	fmt.Println("Built on Akita memory storage")
	fmt.Println("")
	fmt.Println("Usage: rv32tb <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run <program.elf>          Run a program on the reference pipeline")
	fmt.Println("  diff <expected> <actual>   Compare two recorded traces")
	fmt.Println("  config                     Print the default configuration")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rv32tb' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/benchmark' for the microbenchmarks.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rv32tb' instead.")
	}
}
