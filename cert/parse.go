// Package cert implements an X.509 certificate model with construction,
// signing, verification and DER/PEM serialization.
// This file contains the ASN.1 structures and the DER/PEM decoders.
package cert

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"
)

// validity is the ASN.1 validity window. encoding/asn1 picks UTCTime or
// GeneralizedTime as RFC 5280 requires, both of which carry whole seconds.
type validity struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// tbsCertificateEncode is the TBSCertificate layout used when encoding.
type tbsCertificateEncode struct {
	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       *big.Int
	SignatureAlgorithm pkixAlgorithmIdentifier
	Issuer             asn1.RawValue
	Validity           validity
	Subject            asn1.RawValue
	PublicKeyInfo      asn1.RawValue
	Extensions         []pkix.Extension `asn1:"optional,explicit,tag:3,omitempty"`
}

// certificateEncode is the outer Certificate layout used when encoding.
type certificateEncode struct {
	TBSCertificate     asn1.RawValue
	SignatureAlgorithm pkixAlgorithmIdentifier
	SignatureValue     asn1.BitString
}

// tbsCertificateDecode is the TBSCertificate layout used when decoding.
// The RawContent field captures the exact signed bytes.
type tbsCertificateDecode struct {
	Raw                asn1.RawContent
	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       *big.Int
	SignatureAlgorithm pkixAlgorithmIdentifier
	Issuer             asn1.RawValue
	Validity           validity
	Subject            asn1.RawValue
	PublicKeyInfo      publicKeyInfo
	IssuerUniqueID     asn1.BitString   `asn1:"optional,tag:1"`
	SubjectUniqueID    asn1.BitString   `asn1:"optional,tag:2"`
	Extensions         []pkix.Extension `asn1:"optional,explicit,tag:3"`
}

// certificateDecode is the outer Certificate layout used when decoding.
type certificateDecode struct {
	TBSCertificate     tbsCertificateDecode
	SignatureAlgorithm pkixAlgorithmIdentifier
	SignatureValue     asn1.BitString
}

// ParseCertificate decodes a single DER certificate. Trailing data or a
// malformed structure is a DecodeError.
func ParseCertificate(der []byte) (*Certificate, error) {
	var raw certificateDecode
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return nil, NewDecodeError("certificate", err)
	}
	if len(rest) != 0 {
		return nil, NewDecodeError("certificate", fmt.Errorf("trailing data after certificate"))
	}

	issuer, err := parseName(raw.TBSCertificate.Issuer.FullBytes)
	if err != nil {
		return nil, err
	}
	subject, err := parseName(raw.TBSCertificate.Subject.FullBytes)
	if err != nil {
		return nil, err
	}
	pub, err := ParsePublicKey(raw.TBSCertificate.PublicKeyInfo.Raw)
	if err != nil {
		return nil, err
	}
	version := raw.TBSCertificate.Version + 1
	if version < 1 || version > 3 {
		return nil, NewDecodeError("certificate", fmt.Errorf("invalid version %d", version))
	}
	if raw.TBSCertificate.SerialNumber == nil {
		return nil, NewDecodeError("certificate", fmt.Errorf("missing serial number"))
	}

	c := &Certificate{
		version:      version,
		serialNumber: raw.TBSCertificate.SerialNumber,
		issuer:       issuer,
		subject:      subject,
		notBefore:    raw.TBSCertificate.Validity.NotBefore.UTC().Truncate(time.Second),
		notAfter:     raw.TBSCertificate.Validity.NotAfter.UTC().Truncate(time.Second),
		publicKey:    pub,
		extensions:   raw.TBSCertificate.Extensions,
		sigAlg:       raw.SignatureAlgorithm,
		signature:    raw.SignatureValue.RightAlign(),

		rawTBS:     raw.TBSCertificate.Raw,
		rawIssuer:  raw.TBSCertificate.Issuer.FullBytes,
		rawSubject: raw.TBSCertificate.Subject.FullBytes,
		rawSPKI:    raw.TBSCertificate.PublicKeyInfo.Raw,
		raw:        der,
	}
	return c, nil
}

// ParsePEM decodes the first CERTIFICATE block in PEM data.
func ParsePEM(data []byte) (*Certificate, error) {
	for rest := data; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == pemCertificateType {
			return ParseCertificate(block.Bytes)
		}
	}
	return nil, NewDecodeError("certificate", fmt.Errorf("no CERTIFICATE PEM block found"))
}
