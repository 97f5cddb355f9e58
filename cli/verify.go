// Package cli provides the command-line interface for certificate
// issuance, inspection and verification.
// This file contains the 'verify' command.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/georgepadayatti/certforge/cert"
	"github.com/georgepadayatti/certforge/keys"
)

// VerifyCommand implements the 'verify' command.
func VerifyCommand(args []string) {
	verifyFlags := flag.NewFlagSet("verify", flag.ExitOnError)

	var issuerFile string
	verifyFlags.StringVar(&issuerFile, "issuer", "", "Issuer certificate to verify against (default: the certificate's own key)")

	verifyFlags.Usage = func() {
		fmt.Printf("Usage: %s verify [options] <certificate.pem>\n\n", os.Args[0])
		fmt.Println("Verify a certificate signature.")
		fmt.Println("")
		fmt.Println("Without -issuer the certificate is checked against its own public")
		fmt.Println("key, i.e. treated as self-signed.")
		fmt.Println("")
		fmt.Println("Options:")
		verifyFlags.PrintDefaults()
	}

	if err := verifyFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
		return
	}
	if verifyFlags.NArg() != 1 {
		verifyFlags.Usage()
		osExit(1)
		return
	}

	log := newLogger()
	defer log.Sync() //nolint:errcheck

	c, err := keys.LoadCertificate(verifyFlags.Arg(0))
	if err != nil {
		log.Errorw("failed to load certificate", "file", verifyFlags.Arg(0), "error", err)
		osExit(1)
		return
	}

	pub := c.PublicKey()
	if issuerFile != "" {
		issuer, err := keys.LoadCertificate(issuerFile)
		if err != nil {
			log.Errorw("failed to load issuer certificate", "file", issuerFile, "error", err)
			osExit(1)
			return
		}
		pub = issuer.PublicKey()
	}

	ok, err := c.Verify(pub)
	if err != nil && !errors.Is(err, cert.ErrAlgorithmNotSupported) {
		log.Errorw("verification failed", "error", err)
		osExit(1)
		return
	}
	// An unsupported algorithm counts as a failed verification.
	if ok {
		fmt.Println("Signature: OK")
		return
	}
	fmt.Println("Signature: INVALID")
	osExit(1)
}
