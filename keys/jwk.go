// Package keys provides utilities for loading certificates and private keys
// from PEM and DER encoded files.
// This file contains JWK export of certificate public keys.
package keys

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	jose "gopkg.in/square/go-jose.v2"

	"github.com/georgepadayatti/certforge/cert"
)

// ExportJWK renders a certificate's public key as a JSON Web Key. The key
// identifier is the RFC 7638 SHA-256 thumbprint and the certificate itself
// is carried in the x5c chain. DSA keys have no JWK representation and are
// rejected.
func ExportJWK(c *cert.Certificate) ([]byte, error) {
	der, err := c.EncodeDER()
	if err != nil {
		return nil, err
	}
	// go-jose works on the standard library certificate type.
	stdCert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to re-parse certificate: %w", err)
	}

	jwk := jose.JSONWebKey{
		Key:          c.PublicKey(),
		Certificates: []*x509.Certificate{stdCert},
	}
	thumb, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("failed to compute JWK thumbprint: %w", err)
	}
	jwk.KeyID = base64.RawURLEncoding.EncodeToString(thumb)

	out, err := jwk.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode JWK: %w", err)
	}
	return out, nil
}
