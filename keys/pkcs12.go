// Package keys provides utilities for loading certificates and private keys
// from PEM and DER encoded files.
// This file contains PKCS#12 credential loading.
package keys

import (
	"crypto"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/georgepadayatti/certforge/cert"
)

// PKCS12Credential holds a certificate and key loaded from a PKCS#12 file.
type PKCS12Credential struct {
	Certificate *cert.Certificate
	PrivateKey  crypto.PrivateKey
	CACerts     []*cert.Certificate
}

// LoadPKCS12 loads a credential from a PKCS#12 file.
func LoadPKCS12(filename string, passphrase string) (*PKCS12Credential, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ParsePKCS12Data(data, passphrase)
}

// ParsePKCS12Data parses a PKCS#12 archive.
func ParsePKCS12Data(data []byte, passphrase string) (*PKCS12Credential, error) {
	key, leaf, caCerts, err := pkcs12.DecodeChain(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKCS#12 data: %w", err)
	}

	c, err := cert.ParseCertificate(leaf.Raw)
	if err != nil {
		return nil, err
	}
	cred := &PKCS12Credential{Certificate: c, PrivateKey: key}
	for _, ca := range caCerts {
		cac, err := cert.ParseCertificate(ca.Raw)
		if err != nil {
			return nil, err
		}
		cred.CACerts = append(cred.CACerts, cac)
	}
	return cred, nil
}
