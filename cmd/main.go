package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crypto-movers/internal/cli"
)

func main() {
	// Ctrl+C / SIGTERM 结束 watch 循环和进行中的请求
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
