package main

import "os"

func main() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
}
