package main

import (
	"fmt"
	"os"
	"runtime/debug"
)

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case runMode:
		runMain(cli.Run)
	case dumpMode:
		dumpMain(cli.Dump)
	case configMode:
		configMain(cli.Config, os.Stdout)
	case versionMode:
		printVersion()
	}
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("dspi", version)
}
