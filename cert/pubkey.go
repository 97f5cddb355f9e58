// Package cert implements an X.509 certificate model with construction,
// signing, verification and DER/PEM serialization.
// This file contains SubjectPublicKeyInfo encoding and decoding.
package cert

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // legacy DSA support is part of the contract
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/big"
)

// OIDDSAPublicKey identifies a DSA subject public key.
var OIDDSAPublicKey = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}

// publicKeyInfo mirrors the ASN.1 SubjectPublicKeyInfo structure.
type publicKeyInfo struct {
	Raw       asn1.RawContent
	Algorithm pkixAlgorithmIdentifier
	PublicKey asn1.BitString
}

// pkixAlgorithmIdentifier is a local copy of pkix.AlgorithmIdentifier that
// keeps the optional parameters raw.
type pkixAlgorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

// dsaParameters holds the Dss-Parms structure from RFC 3279.
type dsaParameters struct {
	P, Q, G *big.Int
}

// MarshalPublicKey encodes a public key as a DER SubjectPublicKeyInfo.
// RSA, ECDSA and Ed25519 keys use the standard library encoding; DSA keys
// are encoded per RFC 3279 since the standard library cannot marshal them.
func MarshalPublicKey(pub crypto.PublicKey) ([]byte, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		der, err := x509.MarshalPKIXPublicKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to encode public key: %w", err)
		}
		return der, nil
	case *dsa.PublicKey:
		params, err := asn1.Marshal(dsaParameters{P: key.P, Q: key.Q, G: key.G})
		if err != nil {
			return nil, fmt.Errorf("failed to encode DSA parameters: %w", err)
		}
		y, err := asn1.Marshal(key.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to encode DSA public value: %w", err)
		}
		spki := struct {
			Algorithm pkixAlgorithmIdentifier
			PublicKey asn1.BitString
		}{
			Algorithm: pkixAlgorithmIdentifier{
				Algorithm:  OIDDSAPublicKey,
				Parameters: asn1.RawValue{FullBytes: params},
			},
			PublicKey: asn1.BitString{Bytes: y, BitLength: len(y) * 8},
		}
		der, err := asn1.Marshal(spki)
		if err != nil {
			return nil, fmt.Errorf("failed to encode DSA public key: %w", err)
		}
		return der, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKeyType, pub)
	}
}

// ParsePublicKey decodes a DER SubjectPublicKeyInfo into a typed public key.
func ParsePublicKey(der []byte) (crypto.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, NewDecodeError("subject public key info", err)
	}
	return pub, nil
}

// PublicKeyOf returns the public half of a supported private key.
func PublicKeyOf(key crypto.PrivateKey) (crypto.PublicKey, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return &k.PublicKey, nil
	case *ecdsa.PrivateKey:
		return &k.PublicKey, nil
	case ed25519.PrivateKey:
		return k.Public(), nil
	case *dsa.PrivateKey:
		return &k.PublicKey, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKeyType, key)
	}
}
