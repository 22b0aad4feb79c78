package main

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	fmt.Printf("[%s] [INFO] [引导] 开始启动 blog-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "blog-server failed: %v\n", err)
		os.Exit(1)
	}
}
