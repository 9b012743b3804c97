package main

import (
	"os"

	"github.com/woliveiras/imager/pkg/cli"
	"github.com/woliveiras/imager/pkg/log"
)

func main() {
	if err := cli.Run(os.Args); err != nil {
		log.ErrorStack(err)
		os.Exit(1)
	}
}
