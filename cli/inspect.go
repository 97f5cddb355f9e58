// Package cli provides the command-line interface for certificate
// issuance, inspection and verification.
// This file contains the 'inspect' command.
package cli

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/georgepadayatti/certforge/cert"
	"github.com/georgepadayatti/certforge/extensions"
	"github.com/georgepadayatti/certforge/keys"
)

// InspectCommand implements the 'inspect' command.
func InspectCommand(args []string) {
	inspectFlags := flag.NewFlagSet("inspect", flag.ExitOnError)

	var asJWK bool
	inspectFlags.BoolVar(&asJWK, "jwk", false, "Print the public key as a JSON Web Key")

	inspectFlags.Usage = func() {
		fmt.Printf("Usage: %s inspect [options] <certificate.pem>\n\n", os.Args[0])
		fmt.Println("Print the fields and extensions of a certificate.")
		fmt.Println("")
		fmt.Println("Options:")
		inspectFlags.PrintDefaults()
	}

	if err := inspectFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
		return
	}
	if inspectFlags.NArg() != 1 {
		inspectFlags.Usage()
		osExit(1)
		return
	}

	log := newLogger()
	defer log.Sync() //nolint:errcheck

	certList, err := keys.LoadCertificates(inspectFlags.Arg(0))
	if err != nil {
		log.Errorw("failed to load certificates", "file", inspectFlags.Arg(0), "error", err)
		osExit(1)
		return
	}

	for i, c := range certList {
		if i > 0 {
			fmt.Println()
		}
		printCertificate(c, asJWK, log)
	}
}

func printCertificate(c *cert.Certificate, asJWK bool, log *zap.SugaredLogger) {
	notBefore, notAfter := c.Validity()
	fmt.Printf("Subject:     %s\n", c.Subject().String())
	fmt.Printf("Issuer:      %s\n", c.Issuer().String())
	fmt.Printf("Serial:      %s\n", c.SerialNumber().String())
	fmt.Printf("Version:     %d\n", c.Version())
	fmt.Printf("Not Before:  %s\n", notBefore)
	fmt.Printf("Not After:   %s\n", notAfter)
	fmt.Printf("Sig Alg:     %s\n", c.SignatureAlgorithm().String())

	if ski, err := extensions.SubjectKeyID(c); err != nil {
		fmt.Printf("Subject Key ID:   <malformed: %v>\n", err)
	} else if ski != nil {
		fmt.Printf("Subject Key ID:   %s\n", hex.EncodeToString(ski))
	}
	if aki, err := extensions.AuthorityKeyID(c); err != nil {
		fmt.Printf("Authority Key ID: <malformed: %v>\n", err)
	} else if aki != nil {
		fmt.Printf("Authority Key ID: %s\n", hex.EncodeToString(aki))
	}
	if uris, err := extensions.CRLDistributionPointURIs(c); err == nil && uris != nil {
		fmt.Printf("CRL URIs:         %v\n", uris)
	}
	if uris, err := extensions.OCSPServerURIs(c); err == nil && uris != nil {
		fmt.Printf("OCSP URIs:        %v\n", uris)
	}
	if uris, err := extensions.CAIssuerURIs(c); err == nil && uris != nil {
		fmt.Printf("CA Issuer URIs:   %v\n", uris)
	}

	fmt.Printf("Extensions:  %d\n", len(c.Extensions()))
	for _, ext := range c.Extensions() {
		critical := ""
		if ext.Critical {
			critical = " critical"
		}
		fmt.Printf("  %s%s (%d bytes)\n", ext.Id.String(), critical, len(ext.Value))
	}

	if asJWK {
		jwk, err := keys.ExportJWK(c)
		if err != nil {
			log.Warnw("JWK export failed", "error", err)
			return
		}
		fmt.Printf("JWK: %s\n", string(jwk))
	}
}
