// Command searchctl talks to a running search backend.
//
// Usage:
//
//	searchctl [flags] <command> [args]
//
// Commands:
//
//	models  - List chat and embedding providers the server can bind
//	ask     - Open a session, ask one question and stream the answer
//	events  - Tail session lifecycle events from NATS
package main

import (
	"fmt"
	"os"

	"ai-search-be/cmd/searchctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
