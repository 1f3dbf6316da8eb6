package main

import (
	"fmt"
	"os"

	"github.com/briangreenhill/mapty/internal/cli"
)

func main() {
	if err := cli.NewRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
