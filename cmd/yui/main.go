package main

import (
	"fmt"
	"os"

	// Embedded zone database so agent.timezone works on hosts without one.
	_ "time/tzdata"

	"github.com/soyeahso/yui/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "yui:", err)
		os.Exit(1)
	}
}
