// Package extensions encodes and decodes standard X.509 certificate
// extensions. Encoding starts from compact value strings such as
// "CA:TRUE, pathlen:0" or "DNS:example.com, URI:https://example.com";
// decoding recovers typed values (key identifiers, URI lists) and reports
// malformed data instead of defaulting.
package extensions

import (
	"crypto/sha1" //nolint:gosec // SHA-1 key identifiers are the conventional form
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/georgepadayatti/certforge/cert"
)

// Extension OIDs (RFC 5280).
var (
	OIDBasicConstraints      = asn1.ObjectIdentifier{2, 5, 29, 19}
	OIDKeyUsage              = asn1.ObjectIdentifier{2, 5, 29, 15}
	OIDExtendedKeyUsage      = asn1.ObjectIdentifier{2, 5, 29, 37}
	OIDSubjectKeyIdentifier  = asn1.ObjectIdentifier{2, 5, 29, 14}
	OIDAuthorityKeyIdentifier = asn1.ObjectIdentifier{2, 5, 29, 35}
	OIDSubjectAltName        = asn1.ObjectIdentifier{2, 5, 29, 17}
	OIDCRLDistributionPoints = asn1.ObjectIdentifier{2, 5, 29, 31}
	OIDAuthorityInfoAccess   = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}

	// Access method OIDs used inside authorityInfoAccess.
	OIDAccessOCSP      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1}
	OIDAccessCAIssuers = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 2}
)

// Common errors
var (
	// ErrUnknownExtension is returned for extension names the codec does not know.
	ErrUnknownExtension = errors.New("unknown extension name")

	// ErrInvalidValue is returned when an extension value string cannot be parsed.
	ErrInvalidValue = errors.New("invalid extension value")
)

// Spec describes one extension to encode: a short name, a critical flag and
// a value string in the grammar of that extension.
type Spec struct {
	Name     string
	Critical bool
	Value    string
}

// Context carries the key material some extensions derive values from:
// "subjectKeyIdentifier: hash" digests the subject key, and
// "authorityKeyIdentifier: keyid" copies the issuer's key identifier.
type Context struct {
	// SubjectPublicKeyInfo is the DER SPKI of the certificate being built.
	SubjectPublicKeyInfo []byte

	// Issuer is the issuing certificate; nil for self-signed certificates,
	// in which case the subject key stands in for the issuer key.
	Issuer *cert.Certificate
}

// Encode converts extension specs into encoded extensions, preserving
// specification order and each extension's critical flag.
func Encode(specs []Spec, ctx *Context) ([]pkix.Extension, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	exts := make([]pkix.Extension, 0, len(specs))
	for _, spec := range specs {
		ext, err := encodeOne(spec, ctx)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

func encodeOne(spec Spec, ctx *Context) (pkix.Extension, error) {
	var (
		oid   asn1.ObjectIdentifier
		value []byte
		err   error
	)
	switch spec.Name {
	case "basicConstraints":
		oid = OIDBasicConstraints
		value, err = encodeBasicConstraints(spec.Value)
	case "keyUsage":
		oid = OIDKeyUsage
		value, err = encodeKeyUsage(spec.Value)
	case "extendedKeyUsage":
		oid = OIDExtendedKeyUsage
		value, err = encodeExtendedKeyUsage(spec.Value)
	case "subjectKeyIdentifier":
		oid = OIDSubjectKeyIdentifier
		value, err = encodeSubjectKeyID(spec.Value, ctx)
	case "authorityKeyIdentifier":
		oid = OIDAuthorityKeyIdentifier
		value, err = encodeAuthorityKeyID(spec.Value, ctx)
	case "subjectAltName":
		oid = OIDSubjectAltName
		value, err = encodeSubjectAltName(spec.Value)
	case "crlDistributionPoints":
		oid = OIDCRLDistributionPoints
		value, err = encodeCRLDistributionPoints(spec.Value)
	case "authorityInfoAccess":
		oid = OIDAuthorityInfoAccess
		value, err = encodeAuthorityInfoAccess(spec.Value)
	default:
		return pkix.Extension{}, fmt.Errorf("%w: %q", ErrUnknownExtension, spec.Name)
	}
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("extension %s: %w", spec.Name, err)
	}
	return pkix.Extension{Id: oid, Critical: spec.Critical, Value: value}, nil
}

// splitList splits a comma-separated value string, trimming whitespace.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// basicConstraintsValue is the ASN.1 BasicConstraints structure.
type basicConstraintsValue struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// encodeBasicConstraints parses "CA:TRUE[, pathlen:N]" or "CA:FALSE".
func encodeBasicConstraints(value string) ([]byte, error) {
	bc := basicConstraintsValue{MaxPathLen: -1}
	for _, part := range splitList(value) {
		switch {
		case strings.EqualFold(part, "CA:TRUE"):
			bc.IsCA = true
		case strings.EqualFold(part, "CA:FALSE"):
			bc.IsCA = false
		case strings.HasPrefix(part, "pathlen:"):
			n, err := strconv.Atoi(strings.TrimPrefix(part, "pathlen:"))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad pathlen in %q", ErrInvalidValue, value)
			}
			bc.MaxPathLen = n
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidValue, part)
		}
	}
	if !bc.IsCA || bc.MaxPathLen < 0 {
		// Path length only applies to CA certificates.
		return asn1.Marshal(struct {
			IsCA bool `asn1:"optional"`
		}{IsCA: bc.IsCA})
	}
	return asn1.Marshal(bc)
}

// keyUsageBits maps key usage names to their named-bit positions.
var keyUsageBits = map[string]int{
	"digitalSignature": 0,
	"nonRepudiation":   1,
	"keyEncipherment":  2,
	"dataEncipherment": 3,
	"keyAgreement":     4,
	"keyCertSign":      5,
	"cRLSign":          6,
	"encipherOnly":     7,
	"decipherOnly":     8,
}

// encodeKeyUsage parses a comma list of key usage bit names.
func encodeKeyUsage(value string) ([]byte, error) {
	parts := splitList(value)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty key usage", ErrInvalidValue)
	}
	highest := 0
	var bits [2]byte
	for _, part := range parts {
		bit, ok := keyUsageBits[part]
		if !ok {
			return nil, fmt.Errorf("%w: unknown key usage %q", ErrInvalidValue, part)
		}
		bits[bit/8] |= 0x80 >> (bit % 8)
		if bit > highest {
			highest = bit
		}
	}
	// DER named bit strings drop trailing zero bits.
	bitLen := highest + 1
	byteLen := (bitLen + 7) / 8
	return asn1.Marshal(asn1.BitString{Bytes: bits[:byteLen], BitLength: bitLen})
}

// extendedKeyUsageOIDs maps EKU names to OIDs.
var extendedKeyUsageOIDs = map[string]asn1.ObjectIdentifier{
	"serverAuth":      {1, 3, 6, 1, 5, 5, 7, 3, 1},
	"clientAuth":      {1, 3, 6, 1, 5, 5, 7, 3, 2},
	"codeSigning":     {1, 3, 6, 1, 5, 5, 7, 3, 3},
	"emailProtection": {1, 3, 6, 1, 5, 5, 7, 3, 4},
	"timeStamping":    {1, 3, 6, 1, 5, 5, 7, 3, 8},
	"OCSPSigning":     {1, 3, 6, 1, 5, 5, 7, 3, 9},
	"anyExtendedKeyUsage": {2, 5, 29, 37, 0},
}

// encodeExtendedKeyUsage parses a comma list of EKU names or dotted OIDs.
func encodeExtendedKeyUsage(value string) ([]byte, error) {
	parts := splitList(value)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty extended key usage", ErrInvalidValue)
	}
	oids := make([]asn1.ObjectIdentifier, 0, len(parts))
	for _, part := range parts {
		if oid, ok := extendedKeyUsageOIDs[part]; ok {
			oids = append(oids, oid)
			continue
		}
		oid, err := cert.ParseOID(part)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown extended key usage %q", ErrInvalidValue, part)
		}
		oids = append(oids, oid)
	}
	return asn1.Marshal(oids)
}

// keyIDFromSPKI derives the conventional SHA-1 key identifier from a DER
// SubjectPublicKeyInfo: the digest of the subjectPublicKey bit string.
func keyIDFromSPKI(spkiDER []byte) ([]byte, error) {
	var spki struct {
		Algorithm asn1.RawValue
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(spkiDER, &spki); err != nil {
		return nil, fmt.Errorf("%w: bad SubjectPublicKeyInfo: %v", ErrInvalidValue, err)
	}
	sum := sha1.Sum(spki.PublicKey.RightAlign())
	return sum[:], nil
}

// encodeSubjectKeyID parses "hash" or a hex key identifier like "AB:CD:01".
func encodeSubjectKeyID(value string, ctx *Context) ([]byte, error) {
	var keyID []byte
	if value == "hash" {
		if ctx.SubjectPublicKeyInfo == nil {
			return nil, fmt.Errorf("%w: no subject key available for %q", ErrInvalidValue, value)
		}
		var err error
		if keyID, err = keyIDFromSPKI(ctx.SubjectPublicKeyInfo); err != nil {
			return nil, err
		}
	} else {
		var err error
		if keyID, err = hex.DecodeString(strings.ReplaceAll(value, ":", "")); err != nil || len(keyID) == 0 {
			return nil, fmt.Errorf("%w: bad key identifier %q", ErrInvalidValue, value)
		}
	}
	return asn1.Marshal(keyID)
}

// authorityKeyIDValue is the ASN.1 AuthorityKeyIdentifier structure,
// restricted to the keyIdentifier alternative.
type authorityKeyIDValue struct {
	KeyID []byte `asn1:"optional,tag:0"`
}

// encodeAuthorityKeyID parses "keyid". The identifier is copied from the
// issuer's subjectKeyIdentifier extension when present, otherwise derived
// from the issuer public key; self-signed certificates fall back to the
// subject key.
func encodeAuthorityKeyID(value string, ctx *Context) ([]byte, error) {
	if value != "keyid" && value != "keyid:always" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}
	var keyID []byte
	if ctx.Issuer != nil {
		if id, err := SubjectKeyID(ctx.Issuer); err == nil && id != nil {
			keyID = id
		} else {
			var derr error
			if keyID, derr = keyIDFromSPKI(ctx.Issuer.RawSubjectPublicKeyInfo()); derr != nil {
				return nil, derr
			}
		}
	} else if ctx.SubjectPublicKeyInfo != nil {
		var err error
		if keyID, err = keyIDFromSPKI(ctx.SubjectPublicKeyInfo); err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("%w: no issuer key available for %q", ErrInvalidValue, value)
	}
	return asn1.Marshal(authorityKeyIDValue{KeyID: keyID})
}

// General name context tags (RFC 5280 GeneralName CHOICE).
const (
	tagRFC822Name = 1
	tagDNSName    = 2
	tagIPAddress  = 7
	tagURI        = 6
)

// generalName encodes a single tagged general name.
func generalName(tag int, data []byte) asn1.RawValue {
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: tag, Bytes: data}
}

// parseGeneralName parses one "type:value" SAN entry.
func parseGeneralName(part string) (asn1.RawValue, error) {
	typ, value, ok := strings.Cut(part, ":")
	if !ok {
		return asn1.RawValue{}, fmt.Errorf("%w: general name %q", ErrInvalidValue, part)
	}
	switch typ {
	case "DNS":
		return generalName(tagDNSName, []byte(value)), nil
	case "email":
		return generalName(tagRFC822Name, []byte(value)), nil
	case "URI":
		return generalName(tagURI, []byte(value)), nil
	case "IP":
		ip := net.ParseIP(value)
		if ip == nil {
			return asn1.RawValue{}, fmt.Errorf("%w: bad IP address %q", ErrInvalidValue, value)
		}
		if v4 := ip.To4(); v4 != nil {
			ip = v4
		}
		return generalName(tagIPAddress, ip), nil
	default:
		return asn1.RawValue{}, fmt.Errorf("%w: unknown general name type %q", ErrInvalidValue, typ)
	}
}

// encodeSubjectAltName parses a comma list of DNS:/IP:/email:/URI: names.
func encodeSubjectAltName(value string) ([]byte, error) {
	parts := splitList(value)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty subject alternative name", ErrInvalidValue)
	}
	names := make([]asn1.RawValue, 0, len(parts))
	for _, part := range parts {
		name, err := parseGeneralName(part)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return asn1.Marshal(names)
}

// distributionPointName and distributionPoint mirror the RFC 5280
// CRLDistributionPoints structures, restricted to fullName URIs.
type distributionPointName struct {
	FullName []asn1.RawValue `asn1:"optional,tag:0"`
}

type distributionPoint struct {
	Name distributionPointName `asn1:"optional,tag:0"`
}

// encodeCRLDistributionPoints parses a comma list of "URI:..." entries,
// one distribution point per URI.
func encodeCRLDistributionPoints(value string) ([]byte, error) {
	parts := splitList(value)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty CRL distribution points", ErrInvalidValue)
	}
	points := make([]distributionPoint, 0, len(parts))
	for _, part := range parts {
		uri, ok := strings.CutPrefix(part, "URI:")
		if !ok {
			return nil, fmt.Errorf("%w: distribution point %q must be a URI", ErrInvalidValue, part)
		}
		points = append(points, distributionPoint{
			Name: distributionPointName{FullName: []asn1.RawValue{generalName(tagURI, []byte(uri))}},
		})
	}
	return asn1.Marshal(points)
}

// accessDescription mirrors the RFC 5280 AccessDescription structure.
type accessDescription struct {
	Method   asn1.ObjectIdentifier
	Location asn1.RawValue
}

// encodeAuthorityInfoAccess parses a comma list of "OCSP;URI:..." and
// "caIssuers;URI:..." entries.
func encodeAuthorityInfoAccess(value string) ([]byte, error) {
	parts := splitList(value)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty authority info access", ErrInvalidValue)
	}
	descs := make([]accessDescription, 0, len(parts))
	for _, part := range parts {
		method, location, ok := strings.Cut(part, ";")
		if !ok {
			return nil, fmt.Errorf("%w: access description %q", ErrInvalidValue, part)
		}
		var oid asn1.ObjectIdentifier
		switch method {
		case "OCSP":
			oid = OIDAccessOCSP
		case "caIssuers":
			oid = OIDAccessCAIssuers
		default:
			return nil, fmt.Errorf("%w: unknown access method %q", ErrInvalidValue, method)
		}
		uri, ok := strings.CutPrefix(location, "URI:")
		if !ok {
			return nil, fmt.Errorf("%w: access location %q must be a URI", ErrInvalidValue, location)
		}
		descs = append(descs, accessDescription{Method: oid, Location: generalName(tagURI, []byte(uri))})
	}
	return asn1.Marshal(descs)
}
