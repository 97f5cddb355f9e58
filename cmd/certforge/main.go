// Command certforge is a CLI tool for certificate issuance, inspection and
// verification.
//
// Usage:
//
//	certforge <command> [options] <args>
//
// Commands:
//
//	issue    Issue a certificate from a YAML profile
//	inspect  Print the fields and extensions of a certificate
//	verify   Verify a certificate signature against a key or issuer
//	version  Show version information
//	help     Show help message
//
// Examples:
//
//	# Issue a certificate
//	certforge issue ca-profile.yaml
//
//	# Inspect a certificate bundle
//	certforge inspect bundle.pem
//
//	# Verify against an issuer certificate
//	certforge verify -issuer ca.pem leaf.pem
package main

import (
	"os"

	"github.com/georgepadayatti/certforge/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/certforge
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime
	cli.Run(os.Args)
}
