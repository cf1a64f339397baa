// Command routectl ranks corridor routes offline and manages graph
// snapshots and API tokens for corridord.
package main

import (
	"fmt"
	"io"
	"os"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "route":
		err = runRoute(args[1:], stdout, stderr)
	case "snapshot":
		err = runSnapshot(args[1:], stdout, stderr)
	case "token":
		err = runToken(args[1:], stdout, stderr)
	case "cert":
		err = runCert(args[1:], stdout, stderr)
	case "audit-verify":
		err = runAuditVerify(args[1:], stdout, stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "routectl %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case isUsageError(err):
		return 2
	default:
		fmt.Fprintf(stderr, "routectl %s: %v\n", args[0], err)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `routectl - corridor routing tools

Usage:
  routectl <command> [options]

Commands:
  route         Rank routes between two countries
  snapshot      Build a graph from a source and write a snapshot file
  token         Mint an API token for corridord
  cert          Write a self-signed TLS certificate for development
  audit-verify  Check the hash chain of an audit log
  version       Show version information

Use "routectl <command> -h" for the options of a command.
`)
}
