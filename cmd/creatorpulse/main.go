package main

import (
	"github.com/mchmarny/creatorpulse/pkg/cli"
)

func main() {
	cli.Execute()
}
