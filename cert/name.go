// Package cert implements an X.509 certificate model with construction,
// signing, verification and DER/PEM serialization.
// This file contains distinguished name handling.
package cert

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Attribute type OIDs used in distinguished names.
var (
	OIDCommonName       = asn1.ObjectIdentifier{2, 5, 4, 3}
	OIDSurname          = asn1.ObjectIdentifier{2, 5, 4, 4}
	OIDSerialNumberAttr = asn1.ObjectIdentifier{2, 5, 4, 5}
	OIDCountry          = asn1.ObjectIdentifier{2, 5, 4, 6}
	OIDLocality         = asn1.ObjectIdentifier{2, 5, 4, 7}
	OIDProvince         = asn1.ObjectIdentifier{2, 5, 4, 8}
	OIDStreetAddress    = asn1.ObjectIdentifier{2, 5, 4, 9}
	OIDOrganization     = asn1.ObjectIdentifier{2, 5, 4, 10}
	OIDOrganizationUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	OIDTitle            = asn1.ObjectIdentifier{2, 5, 4, 12}
	OIDDomainComponent  = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}
	OIDUserID           = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
	OIDEmailAddress     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
)

// attributeNames maps short attribute names to their OIDs.
var attributeNames = map[string]asn1.ObjectIdentifier{
	"CN":           OIDCommonName,
	"SN":           OIDSurname,
	"serialNumber": OIDSerialNumberAttr,
	"C":            OIDCountry,
	"L":            OIDLocality,
	"ST":           OIDProvince,
	"street":       OIDStreetAddress,
	"O":            OIDOrganization,
	"OU":           OIDOrganizationUnit,
	"title":        OIDTitle,
	"DC":           OIDDomainComponent,
	"UID":          OIDUserID,
	"emailAddress": OIDEmailAddress,
}

// AttributeTypeAndValue is a single attribute of a distinguished name.
type AttributeTypeAndValue struct {
	Type  asn1.ObjectIdentifier
	Value string
}

// Name is an ordered sequence of distinguished name attributes. Order is
// significant and preserved exactly through encoding round-trips.
type Name []AttributeTypeAndValue

// NewAttribute creates an attribute from a short name such as "CN" or "DC",
// or from a dotted OID string.
func NewAttribute(name, value string) (AttributeTypeAndValue, error) {
	if oid, ok := attributeNames[name]; ok {
		return AttributeTypeAndValue{Type: oid, Value: value}, nil
	}
	oid, err := ParseOID(name)
	if err != nil {
		return AttributeTypeAndValue{}, fmt.Errorf("unknown name attribute %q", name)
	}
	return AttributeTypeAndValue{Type: oid, Value: value}, nil
}

// attributeName returns the short name for an attribute OID, falling back
// to the dotted form.
func attributeName(oid asn1.ObjectIdentifier) string {
	for name, o := range attributeNames {
		if o.Equal(oid) {
			return name
		}
	}
	return oid.String()
}

// String renders the name in the usual "CN=x, O=y" form.
func (n Name) String() string {
	parts := make([]string, 0, len(n))
	for _, atv := range n {
		parts = append(parts, attributeName(atv.Type)+"="+atv.Value)
	}
	return strings.Join(parts, ", ")
}

// CommonName returns the value of the first CN attribute, or "".
func (n Name) CommonName() string {
	for _, atv := range n {
		if atv.Type.Equal(OIDCommonName) {
			return atv.Value
		}
	}
	return ""
}

// canonicalValue normalizes an attribute value for comparison: Unicode NFC,
// case folded, surrounding whitespace stripped and inner runs collapsed.
func canonicalValue(v string) string {
	v = norm.NFC.String(v)
	v = strings.ToLower(v)
	return strings.Join(strings.Fields(v), " ")
}

// Equal reports whether two names contain the same attributes in the same
// order under canonical value comparison.
func (n Name) Equal(other Name) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if !n[i].Type.Equal(other[i].Type) {
			return false
		}
		if canonicalValue(n[i].Value) != canonicalValue(other[i].Value) {
			return false
		}
	}
	return true
}

// marshal encodes the name as a DER RDNSequence with one attribute per RDN.
func (n Name) marshal() ([]byte, error) {
	rdns := make(pkix.RDNSequence, 0, len(n))
	for _, atv := range n {
		rdns = append(rdns, pkix.RelativeDistinguishedNameSET{
			pkix.AttributeTypeAndValue{Type: atv.Type, Value: atv.Value},
		})
	}
	der, err := asn1.Marshal(rdns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode name %q: %w", n.String(), err)
	}
	return der, nil
}

// parseName decodes a DER RDNSequence, flattening multi-valued RDNs in
// encoded order.
func parseName(der []byte) (Name, error) {
	var rdns pkix.RDNSequence
	rest, err := asn1.Unmarshal(der, &rdns)
	if err != nil {
		return nil, NewDecodeError("name", err)
	}
	if len(rest) != 0 {
		return nil, NewDecodeError("name", fmt.Errorf("trailing data after RDNSequence"))
	}

	var name Name
	for _, rdn := range rdns {
		for _, atv := range rdn {
			var value string
			switch v := atv.Value.(type) {
			case string:
				value = v
			case []byte:
				value = string(v)
			default:
				value = fmt.Sprint(v)
			}
			name = append(name, AttributeTypeAndValue{Type: atv.Type, Value: value})
		}
	}
	return name, nil
}

// ParseOID parses a dotted OID string such as "2.5.4.3".
func ParseOID(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid OID %q", s)
	}
	oid := make(asn1.ObjectIdentifier, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid OID %q", s)
		}
		oid = append(oid, n)
	}
	return oid, nil
}
