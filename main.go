// qsh is a small interactive POSIX-ish shell.
package main

import (
	"fmt"
	"os"

	"qsh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "qsh:", err)
		os.Exit(1)
	}
}
