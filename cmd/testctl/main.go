package main

import (
	"os"

	"lmgate/internal/testctl"
)

func main() { os.Exit(testctl.Main()) }
