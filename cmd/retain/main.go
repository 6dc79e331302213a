package main

import (
	"os"
)

func main() {
	// Help styling must attach after all commands have registered.
	initHelp(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		outputError(os.Stderr, err)
		os.Exit(1)
	}
}
