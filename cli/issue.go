// Package cli provides the command-line interface for certificate
// issuance, inspection and verification.
// This file contains the 'issue' command.
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/georgepadayatti/certforge/cert"
	"github.com/georgepadayatti/certforge/config"
	"github.com/georgepadayatti/certforge/issue"
	"github.com/georgepadayatti/certforge/keys"
)

// IssueCommand implements the 'issue' command.
func IssueCommand(args []string) {
	issueFlags := flag.NewFlagSet("issue", flag.ExitOnError)

	var outFile string
	issueFlags.StringVar(&outFile, "out", "", "Output file for the certificate (overrides the profile)")

	issueFlags.Usage = func() {
		fmt.Printf("Usage: %s issue [options] <profile.yaml>\n\n", os.Args[0])
		fmt.Println("Issue a certificate described by a YAML profile.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  profile.yaml  Issuance profile (subject, key, extensions, issuer)")
		fmt.Println("")
		fmt.Println("Options:")
		issueFlags.PrintDefaults()
	}

	if err := issueFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
		return
	}
	if issueFlags.NArg() != 1 {
		issueFlags.Usage()
		osExit(1)
		return
	}

	log := newLogger()
	defer log.Sync() //nolint:errcheck

	profileFile := issueFlags.Arg(0)
	profile, err := config.Load(profileFile)
	if err != nil {
		log.Errorw("failed to load profile", "file", profileFile, "error", err)
		osExit(1)
		return
	}

	subjectKey, err := keys.LoadPrivateKey(profile.KeyFile, nil)
	if err != nil {
		log.Errorw("failed to load subject key", "file", profile.KeyFile, "error", err)
		osExit(1)
		return
	}
	pub, err := cert.PublicKeyOf(subjectKey)
	if err != nil {
		log.Errorw("unsupported subject key", "error", err)
		osExit(1)
		return
	}

	var (
		issuerCert *cert.Certificate
		issuerKey  = subjectKey
	)
	if !profile.SelfSigned() {
		issuerCert, issuerKey, err = keys.LoadCertificateAndKey(profile.IssuerCertFile, profile.IssuerKeyFile, nil)
		if err != nil {
			log.Errorw("failed to load issuer credentials", "error", err)
			osExit(1)
			return
		}
	}

	req, err := profile.Request(pub)
	if err != nil {
		log.Errorw("invalid profile", "error", err)
		osExit(1)
		return
	}

	issued, err := issue.NewBuilder().Issue(req, issuerCert, issuerKey)
	if err != nil {
		log.Errorw("issuance failed", "subject", req.Subject.String(), "error", err)
		osExit(1)
		return
	}

	pemBytes, err := issued.EncodePEM()
	if err != nil {
		log.Errorw("failed to encode certificate", "error", err)
		osExit(1)
		return
	}

	target := profile.OutFile
	if outFile != "" {
		target = outFile
	}
	if target == "" {
		fmt.Print(string(pemBytes))
	} else if err := os.WriteFile(target, pemBytes, 0o644); err != nil {
		log.Errorw("failed to write certificate", "file", target, "error", err)
		osExit(1)
		return
	}

	log.Infow("certificate issued",
		"subject", issued.Subject().String(),
		"serial", issued.SerialNumber().String(),
		"self_signed", profile.SelfSigned(),
	)
}
