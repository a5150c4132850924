// Command losc compiles, checks and solves LOS optimization models.
package main

import (
	"fmt"
	"os"

	"github.com/jowpereira/LOS/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
