// Package cli provides the command-line interface for certificate
// issuance, inspection and verification.
package cli

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// newLogger builds the operational logger used by the commands. Command
// output goes to stdout; the log stays on stderr.
func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		osExit(1)
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// Run executes the CLI with the given arguments.
// This is the main entry point for the CLI.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	command := args[1]

	switch command {
	case "issue":
		IssueCommand(args)
	case "inspect":
		InspectCommand(args)
	case "verify":
		VerifyCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		Usage()
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("certforge - certificate issuance and inspection tool\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  issue    Issue a certificate from a YAML profile")
	fmt.Println("  inspect  Print the fields and extensions of a certificate")
	fmt.Println("  verify   Verify a certificate signature against a key or issuer")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Printf("Run '%s <command> -h' for command options.\n", os.Args[0])
}

// VersionCommand implements the 'version' command.
func VersionCommand() {
	fmt.Printf("certforge %s (built %s)\n", Version, BuildTime)
}
