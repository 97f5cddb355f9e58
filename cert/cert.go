// Package cert implements an X.509 certificate model with construction,
// signing, verification and DER/PEM serialization.
//
// A Certificate is a plain data object until signed. Signing freezes the
// exact to-be-signed bytes; any setter called afterwards re-encodes them,
// so a previously valid signature no longer verifies. Serial numbers are
// arbitrary-precision and validity timestamps are kept at whole-second
// resolution, matching their DER representation.
package cert

import (
	"bytes"
	"crypto"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"
)

// pemCertificateType is the PEM block type for certificates.
const pemCertificateType = "CERTIFICATE"

// Certificate is an X.509 certificate, either under construction or signed.
type Certificate struct {
	version      int
	serialNumber *big.Int
	issuer       Name
	subject      Name
	notBefore    time.Time
	notAfter     time.Time
	publicKey    crypto.PublicKey
	extensions   []pkix.Extension
	sigAlg       pkixAlgorithmIdentifier
	signature    []byte

	// DER encodings of the signed fields. rawTBS holds the exact bytes
	// covered by signature; raw holds the full certificate. Setters clear
	// raw state through markDirty.
	rawTBS     []byte
	rawIssuer  []byte
	rawSubject []byte
	rawSPKI    []byte
	raw        []byte
	dirty      bool
}

// New returns an unsigned certificate with version v3 and the given subject
// and public key.
func New(subject Name, pub crypto.PublicKey) (*Certificate, error) {
	c := &Certificate{version: 3}
	if err := c.SetSubject(subject); err != nil {
		return nil, err
	}
	if err := c.SetPublicKey(pub); err != nil {
		return nil, err
	}
	return c, nil
}

// Version returns the X.509 version number (1 through 3).
func (c *Certificate) Version() int { return c.version }

// SerialNumber returns the certificate serial number.
func (c *Certificate) SerialNumber() *big.Int { return c.serialNumber }

// Subject returns the subject name.
func (c *Certificate) Subject() Name { return c.subject }

// Issuer returns the issuer name.
func (c *Certificate) Issuer() Name { return c.issuer }

// Validity returns the not-before and not-after bounds.
func (c *Certificate) Validity() (notBefore, notAfter time.Time) {
	return c.notBefore, c.notAfter
}

// PublicKey returns the subject public key.
func (c *Certificate) PublicKey() crypto.PublicKey { return c.publicKey }

// Extensions returns the extension list in encoded order.
func (c *Certificate) Extensions() []pkix.Extension { return c.extensions }

// SignatureAlgorithm returns the signature algorithm OID, or nil for an
// unsigned certificate.
func (c *Certificate) SignatureAlgorithm() asn1.ObjectIdentifier {
	return c.sigAlg.Algorithm
}

// Signature returns the signature bytes, or nil for an unsigned certificate.
func (c *Certificate) Signature() []byte { return c.signature }

// RawSubjectPublicKeyInfo returns the DER SubjectPublicKeyInfo.
func (c *Certificate) RawSubjectPublicKeyInfo() []byte { return c.rawSPKI }

// markDirty notes that a signed field changed, invalidating cached
// encodings and therefore any existing signature.
func (c *Certificate) markDirty() {
	c.dirty = true
	c.rawTBS = nil
	c.raw = nil
}

// SetSerialNumber replaces the serial number. Arbitrary magnitudes are
// supported; values must be positive.
func (c *Certificate) SetSerialNumber(serial *big.Int) error {
	if serial == nil || serial.Sign() <= 0 {
		return fmt.Errorf("serial number must be a positive integer")
	}
	c.serialNumber = new(big.Int).Set(serial)
	c.markDirty()
	return nil
}

// SetSubject replaces the subject name.
func (c *Certificate) SetSubject(subject Name) error {
	der, err := subject.marshal()
	if err != nil {
		return err
	}
	c.subject = subject
	c.rawSubject = der
	c.markDirty()
	return nil
}

// SetIssuer replaces the issuer name.
func (c *Certificate) SetIssuer(issuer Name) error {
	der, err := issuer.marshal()
	if err != nil {
		return err
	}
	c.issuer = issuer
	c.rawIssuer = der
	c.markDirty()
	return nil
}

// SetValidity replaces the validity window. Sub-second components are
// truncated, as DER cannot represent them.
func (c *Certificate) SetValidity(notBefore, notAfter time.Time) error {
	notBefore = notBefore.UTC().Truncate(time.Second)
	notAfter = notAfter.UTC().Truncate(time.Second)
	if notAfter.Before(notBefore) {
		return fmt.Errorf("notAfter %s precedes notBefore %s", notAfter, notBefore)
	}
	c.notBefore = notBefore
	c.notAfter = notAfter
	c.markDirty()
	return nil
}

// SetPublicKey replaces the subject public key.
func (c *Certificate) SetPublicKey(pub crypto.PublicKey) error {
	der, err := MarshalPublicKey(pub)
	if err != nil {
		return err
	}
	c.publicKey = pub
	c.rawSPKI = der
	c.markDirty()
	return nil
}

// SetExtensions replaces the extension list. Order and critical flags are
// preserved exactly.
func (c *Certificate) SetExtensions(exts []pkix.Extension) error {
	c.extensions = append([]pkix.Extension(nil), exts...)
	c.markDirty()
	return nil
}

// tbsBytes returns the current TBS encoding: the signed bytes for an
// unmodified signed certificate, or a fresh encoding after mutation.
func (c *Certificate) tbsBytes() ([]byte, error) {
	if !c.dirty && c.rawTBS != nil {
		return c.rawTBS, nil
	}
	return c.marshalTBS()
}

// marshalTBS encodes the TBSCertificate from the current field values.
func (c *Certificate) marshalTBS() ([]byte, error) {
	return c.marshalTBSWith(c.sigAlg)
}

// marshalTBSWith encodes the TBSCertificate under the given signature
// algorithm identifier, which the TBS carries alongside the outer one.
func (c *Certificate) marshalTBSWith(alg pkixAlgorithmIdentifier) ([]byte, error) {
	if c.serialNumber == nil {
		return nil, fmt.Errorf("certificate has no serial number")
	}
	if c.rawSubject == nil || c.rawSPKI == nil {
		return nil, fmt.Errorf("certificate has no subject or public key")
	}
	issuer := c.rawIssuer
	if issuer == nil {
		issuer = c.rawSubject
	}
	tbs := tbsCertificateEncode{
		Version:            c.version - 1,
		SerialNumber:       c.serialNumber,
		SignatureAlgorithm: alg,
		Issuer:             asn1.RawValue{FullBytes: issuer},
		Validity:           validity{NotBefore: c.notBefore, NotAfter: c.notAfter},
		Subject:            asn1.RawValue{FullBytes: c.rawSubject},
		PublicKeyInfo:      asn1.RawValue{FullBytes: c.rawSPKI},
		Extensions:         c.extensions,
	}
	der, err := asn1.Marshal(tbs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode TBS certificate: %w", err)
	}
	return der, nil
}

// Sign signs the certificate under the issuer private key and digest,
// freezing the TBS bytes. The signing policy is checked before any bytes
// are produced, and a failed attempt leaves the certificate unchanged.
func (c *Certificate) Sign(key crypto.PrivateKey, digest Digest) error {
	alg, resolved, err := signatureAlgorithmFor(key, digest)
	if err != nil {
		return err
	}
	tbs, err := c.marshalTBSWith(alg)
	if err != nil {
		return err
	}
	sig, err := signTBS(tbs, key, resolved)
	if err != nil {
		return err
	}
	raw, err := asn1.Marshal(certificateEncode{
		TBSCertificate:     asn1.RawValue{FullBytes: tbs},
		SignatureAlgorithm: alg,
		SignatureValue:     asn1.BitString{Bytes: sig, BitLength: len(sig) * 8},
	})
	if err != nil {
		return fmt.Errorf("failed to encode certificate: %w", err)
	}
	c.sigAlg = alg
	c.signature = sig
	c.rawTBS = tbs
	c.raw = raw
	c.dirty = false
	return nil
}

// Verify checks the certificate signature against a public key. It returns
// true only when the key matches and every signed field still matches the
// bytes that were signed; a wrong key, a key of a different family, or any
// post-signing mutation yields (false, nil). Algorithms the engine cannot
// evaluate yield (false, ErrAlgorithmNotSupported).
func (c *Certificate) Verify(pub crypto.PublicKey) (bool, error) {
	if len(c.signature) == 0 {
		return false, ErrNotSigned
	}
	tbs, err := c.tbsBytes()
	if err != nil {
		return false, err
	}
	return verifySignature(tbs, c.signature, pub, c.sigAlg.Algorithm)
}

// Equal reports structural equality over all signed fields plus the
// signature itself.
func (c *Certificate) Equal(other *Certificate) bool {
	if c == nil || other == nil {
		return c == other
	}
	a, err := c.tbsBytes()
	if err != nil {
		return false
	}
	b, err := other.tbsBytes()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b) &&
		c.sigAlg.Algorithm.Equal(other.sigAlg.Algorithm) &&
		bytes.Equal(c.signature, other.signature)
}

// EncodeDER returns the DER encoding of the certificate. For a signed,
// unmodified certificate the exact signed bytes are returned.
func (c *Certificate) EncodeDER() ([]byte, error) {
	if len(c.signature) == 0 {
		return nil, ErrNotSigned
	}
	if !c.dirty && c.raw != nil {
		return c.raw, nil
	}
	tbs, err := c.tbsBytes()
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(certificateEncode{
		TBSCertificate:     asn1.RawValue{FullBytes: tbs},
		SignatureAlgorithm: c.sigAlg,
		SignatureValue:     asn1.BitString{Bytes: c.signature, BitLength: len(c.signature) * 8},
	})
}

// EncodePEM returns the PEM encoding of the certificate. PEM blocks are
// concatenable to form bundles.
func (c *Certificate) EncodePEM() ([]byte, error) {
	der, err := c.EncodeDER()
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemCertificateType, Bytes: der}), nil
}

// MarshalBinary implements encoding.BinaryMarshaler. The serialized form
// carries the exact encoded bytes, so a deserialized certificate encodes
// identically to the original.
func (c *Certificate) MarshalBinary() ([]byte, error) {
	return c.EncodeDER()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *Certificate) UnmarshalBinary(data []byte) error {
	parsed, err := ParseCertificate(data)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}
