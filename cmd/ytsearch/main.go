package main

import (
	"log/slog"
	"os"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		slog.Error("ytsearch failed", "error", err)
		os.Exit(1)
	}
}
