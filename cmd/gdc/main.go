// Package main provides the gdc binary, which clones an analytics
// organization into a directory of YAML files and deploys it back.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

func main() {
	// gd stderr is passed through glog; show it on the terminal.
	_ = flag.Set("logtostderr", "true")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
