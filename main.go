package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vupar/vp-cache/internal/command"
)

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args))
}

// run 执行 CLI 并返回退出码，方便测试。SIGINT/SIGTERM 会取消 serve 的上下文以优雅退出。
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return command.Run(ctx, args, stdOut, stdErr)
}
