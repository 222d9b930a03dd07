// Command meshbroker-demo exercises the client-side broker against a
// set of peer addresses supplied on the command line: it registers one
// demo client, prints whatever arrives on its BiQ, and periodically
// reports peer health.
package main

import (
	"fmt"
	"os"

	"github.com/plantd-io/meshbroker/cmd/meshbroker-demo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
