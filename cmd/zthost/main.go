package main

import (
	"os"

	"github.com/MyStarInYourSky/zthost/cmd/zthost/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
