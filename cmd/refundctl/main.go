package main

import (
	"fmt"
	"os"
	"time"
)

var Version = "dev"

func main() {
	root := newRootCmd(func() time.Time { return time.Now().UTC() })
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
