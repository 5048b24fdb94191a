package main

import (
	"os"

	"github.com/bembido/video-to-quiz/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
