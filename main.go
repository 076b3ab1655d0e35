package main

import (
	"os"

	"github.com/basescout/basescout/cmd"
)

func main() {
	cmd.Execute(os.Args[1:])
}
