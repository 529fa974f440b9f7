// The wsearchctl command provides a command-line interface for querying
// Wrale Search insights and triggering syncs.
package main

import "github.com/wrale/wrale-search/internal/wsearchctl/cmd"

func main() {
	cmd.Execute()
}
