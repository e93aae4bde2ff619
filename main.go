package main

import (
	"os"

	"github.com/stomp-org/stomp/cmd"
	"github.com/stomp-org/stomp/internal/build"
)

var version = "0.0.0"

func init() {
	build.Version = version
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
