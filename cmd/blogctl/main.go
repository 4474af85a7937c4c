// Command blogctl administers the blog database: it creates the schema,
// seeds demo content and lists what is stored.
package main

import (
	"fmt"
	"os"

	"myblog/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
