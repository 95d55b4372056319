// Command sched2bt turns solved job-shop schedules into behavior trees.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sched2bt/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
