package main

import (
	"os"

	"github.com/coursechat/coursechat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
