// Package keys provides utilities for loading certificates and private keys
// from PEM and DER encoded files.
package keys

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // legacy DSA support is part of the contract
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/georgepadayatti/certforge/cert"
)

// Common errors
var (
	ErrNoCertFound      = errors.New("no certificate found in data")
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoKeyFound       = errors.New("no private key found in data")
	ErrUnknownKeyType   = errors.New("unknown private key type")
	ErrInvalidPEMBlock  = errors.New("invalid PEM block")
	ErrDecryptionFailed = errors.New("failed to decrypt private key")
	ErrMultipleCerts    = errors.New("expected exactly one certificate")
)

// LoadCertificate loads a single certificate from a PEM or DER encoded file.
func LoadCertificate(filename string) (*cert.Certificate, error) {
	certs, err := LoadCertificates(filename)
	if err != nil {
		return nil, err
	}
	if len(certs) != 1 {
		return nil, fmt.Errorf("%w: found %d certificates in %s", ErrMultipleCerts, len(certs), filename)
	}
	return certs[0], nil
}

// LoadCertificates loads certificates from a PEM or DER encoded file. PEM
// content yields every CERTIFICATE block in file order; DER content yields
// exactly one certificate. An empty file or content without a certificate
// is an error, and any parse failure fails the whole load rather than
// returning partial results.
func LoadCertificates(filename string) ([]*cert.Certificate, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	certs, err := ParseCertificatesData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificates from %s: %w", filename, err)
	}
	return certs, nil
}

// ParseCertificatesData parses certificates from PEM or DER encoded data.
func ParseCertificatesData(data []byte) ([]*cert.Certificate, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	if !isPEM(data) {
		c, err := cert.ParseCertificate(data)
		if err != nil {
			return nil, err
		}
		return []*cert.Certificate{c}, nil
	}

	var certs []*cert.Certificate
	rest := data
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := cert.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		return nil, ErrNoCertFound
	}
	return certs, nil
}

// LoadPrivateKey loads a private key from a PEM or DER encoded file.
func LoadPrivateKey(filename string, passphrase []byte) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ParsePrivateKeyData(data, passphrase)
}

// ParsePrivateKeyData loads a private key from PEM or DER encoded data.
func ParsePrivateKeyData(data []byte, passphrase []byte) (crypto.PrivateKey, error) {
	if isPEM(data) {
		return parsePrivateKeyPEM(data, passphrase)
	}
	return parsePrivateKeyDER(data)
}

// parsePrivateKeyPEM parses a PEM encoded private key.
func parsePrivateKeyPEM(data []byte, passphrase []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMBlock
	}

	var keyBytes []byte
	var err error

	// Check if the key is encrypted
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		if passphrase == nil {
			return nil, fmt.Errorf("private key is encrypted but no passphrase provided")
		}
		keyBytes, err = x509.DecryptPEMBlock(block, passphrase) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
	} else {
		keyBytes = block.Bytes
	}

	return parsePrivateKeyByType(block.Type, keyBytes)
}

// parsePrivateKeyDER parses a DER encoded private key.
func parsePrivateKeyDER(data []byte) (crypto.PrivateKey, error) {
	// Try PKCS#8 first
	if key, err := x509.ParsePKCS8PrivateKey(data); err == nil {
		return toPrivateKey(key)
	}

	// Try PKCS#1 RSA
	if key, err := x509.ParsePKCS1PrivateKey(data); err == nil {
		return key, nil
	}

	// Try EC
	if key, err := x509.ParseECPrivateKey(data); err == nil {
		return key, nil
	}

	// Try the OpenSSL DSA format
	if key, err := parseDSAPrivateKey(data); err == nil {
		return key, nil
	}

	return nil, ErrNoKeyFound
}

// parsePrivateKeyByType parses a private key based on the PEM block type.
func parsePrivateKeyByType(blockType string, keyBytes []byte) (crypto.PrivateKey, error) {
	switch blockType {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(keyBytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(keyBytes)
	case "DSA PRIVATE KEY":
		return parseDSAPrivateKey(keyBytes)
	case "PRIVATE KEY", "ENCRYPTED PRIVATE KEY":
		// PKCS#8; encrypted blocks were decrypted by the caller.
		key, err := x509.ParsePKCS8PrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 private key: %w", err)
		}
		return toPrivateKey(key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyType, blockType)
	}
}

// openSSLDSAKey is the traditional OpenSSL DSA private key structure.
type openSSLDSAKey struct {
	Version int
	P, Q, G *big.Int
	Y, X    *big.Int
}

// parseDSAPrivateKey parses a DSA private key in the OpenSSL format, which
// the standard library does not handle.
func parseDSAPrivateKey(der []byte) (*dsa.PrivateKey, error) {
	var raw openSSLDSAKey
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSA private key: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("failed to parse DSA private key: trailing data")
	}
	return &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{
			Parameters: dsa.Parameters{P: raw.P, Q: raw.Q, G: raw.G},
			Y:          raw.Y,
		},
		X: raw.X,
	}, nil
}

// toPrivateKey converts a parsed key interface to a supported key type.
func toPrivateKey(key interface{}) (crypto.PrivateKey, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKeyType, key)
	}
}

// isPEM checks if the data appears to be PEM encoded.
func isPEM(data []byte) bool {
	return len(data) > 10 && string(data[:5]) == "-----"
}

// LoadCertificateAndKey loads a certificate and private key from files.
func LoadCertificateAndKey(certFile, keyFile string, passphrase []byte) (*cert.Certificate, crypto.PrivateKey, error) {
	c, err := LoadCertificate(certFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	key, err := LoadPrivateKey(keyFile, passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load private key: %w", err)
	}

	return c, key, nil
}
