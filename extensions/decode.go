// Package extensions encodes and decodes standard X.509 certificate
// extensions.
// This file contains the typed decoders. Each returns nil for an absent
// value and a cert.DecodeError for present-but-malformed bytes; a missing
// value is never replaced by a default.
package extensions

import (
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/georgepadayatti/certforge/cert"
)

// findExtension returns the raw value of the extension with the given OID,
// or nil when the certificate does not carry it.
func findExtension(c *cert.Certificate, oid asn1.ObjectIdentifier) []byte {
	for _, ext := range c.Extensions() {
		if ext.Id.Equal(oid) {
			return ext.Value
		}
	}
	return nil
}

// SubjectKeyID returns the raw subjectKeyIdentifier bytes, or nil when the
// extension is absent.
func SubjectKeyID(c *cert.Certificate) ([]byte, error) {
	value := findExtension(c, OIDSubjectKeyIdentifier)
	if value == nil {
		return nil, nil
	}
	var keyID []byte
	rest, err := asn1.Unmarshal(value, &keyID)
	if err != nil || len(rest) != 0 {
		return nil, cert.NewDecodeError("subjectKeyIdentifier", err)
	}
	return keyID, nil
}

// AuthorityKeyID returns the keyIdentifier field of the
// authorityKeyIdentifier extension. It is nil when the extension is absent
// or carries no keyIdentifier alternative.
func AuthorityKeyID(c *cert.Certificate) ([]byte, error) {
	value := findExtension(c, OIDAuthorityKeyIdentifier)
	if value == nil {
		return nil, nil
	}
	var aki authorityKeyIDValue
	rest, err := asn1.Unmarshal(value, &aki)
	if err != nil || len(rest) != 0 {
		return nil, cert.NewDecodeError("authorityKeyIdentifier", err)
	}
	return aki.KeyID, nil
}

// uriTag is the context tag of the uniformResourceIdentifier GeneralName.
var uriTag = cryptobyte_asn1.Tag(tagURI).ContextSpecific()

// readGeneralNameURIs walks a GeneralNames sequence body and appends the
// URI-typed entries, skipping the other alternatives.
func readGeneralNameURIs(names *cryptobyte.String, uris []string) ([]string, error) {
	for !names.Empty() {
		var name cryptobyte.String
		var tag cryptobyte_asn1.Tag
		if !names.ReadAnyASN1Element(&name, &tag) {
			return nil, fmt.Errorf("malformed GeneralName")
		}
		if tag != uriTag {
			continue
		}
		var body cryptobyte.String
		if !name.ReadASN1(&body, uriTag) {
			return nil, fmt.Errorf("malformed URI general name")
		}
		uris = append(uris, string(body))
	}
	return uris, nil
}

// CRLDistributionPointURIs returns every URI-typed distribution point name,
// in encoded order across all distribution points. It is nil when the
// extension is absent or no URI alternative exists in any point.
func CRLDistributionPointURIs(c *cert.Certificate) ([]string, error) {
	value := findExtension(c, OIDCRLDistributionPoints)
	if value == nil {
		return nil, nil
	}

	var uris []string
	outer := cryptobyte.String(value)
	var points cryptobyte.String
	if !outer.ReadASN1(&points, cryptobyte_asn1.SEQUENCE) || !outer.Empty() {
		return nil, cert.NewDecodeError("crlDistributionPoints", nil)
	}
	for !points.Empty() {
		var point cryptobyte.String
		if !points.ReadASN1(&point, cryptobyte_asn1.SEQUENCE) {
			return nil, cert.NewDecodeError("crlDistributionPoints", nil)
		}

		// DistributionPointName is [0], fullName inside it is [0] again.
		var dpName cryptobyte.String
		var hasName bool
		if !point.ReadOptionalASN1(&dpName, &hasName, cryptobyte_asn1.Tag(0).Constructed().ContextSpecific()) {
			return nil, cert.NewDecodeError("crlDistributionPoints", nil)
		}
		if !hasName {
			continue
		}
		var fullName cryptobyte.String
		var hasFullName bool
		if !dpName.ReadOptionalASN1(&fullName, &hasFullName, cryptobyte_asn1.Tag(0).Constructed().ContextSpecific()) {
			return nil, cert.NewDecodeError("crlDistributionPoints", nil)
		}
		if !hasFullName {
			continue
		}
		var err error
		if uris, err = readGeneralNameURIs(&fullName, uris); err != nil {
			return nil, cert.NewDecodeError("crlDistributionPoints", err)
		}
	}
	return uris, nil
}

// accessURIs returns the URI-typed access locations for one access method,
// in encoded order. It is nil when the extension is absent or no URI-typed
// location exists for the method.
func accessURIs(c *cert.Certificate, method asn1.ObjectIdentifier, what string) ([]string, error) {
	value := findExtension(c, OIDAuthorityInfoAccess)
	if value == nil {
		return nil, nil
	}

	var uris []string
	outer := cryptobyte.String(value)
	var descs cryptobyte.String
	if !outer.ReadASN1(&descs, cryptobyte_asn1.SEQUENCE) || !outer.Empty() {
		return nil, cert.NewDecodeError(what, nil)
	}
	for !descs.Empty() {
		var desc cryptobyte.String
		if !descs.ReadASN1(&desc, cryptobyte_asn1.SEQUENCE) {
			return nil, cert.NewDecodeError(what, nil)
		}
		var oid asn1.ObjectIdentifier
		if !desc.ReadASN1ObjectIdentifier(&oid) {
			return nil, cert.NewDecodeError(what, nil)
		}
		var location cryptobyte.String
		var tag cryptobyte_asn1.Tag
		if !desc.ReadAnyASN1(&location, &tag) {
			return nil, cert.NewDecodeError(what, nil)
		}
		if oid.Equal(method) && tag == uriTag {
			uris = append(uris, string(location))
		}
	}
	return uris, nil
}

// OCSPServerURIs returns the OCSP responder URIs from authorityInfoAccess.
func OCSPServerURIs(c *cert.Certificate) ([]string, error) {
	return accessURIs(c, OIDAccessOCSP, "authorityInfoAccess OCSP")
}

// CAIssuerURIs returns the caIssuers URIs from authorityInfoAccess.
func CAIssuerURIs(c *cert.Certificate) ([]string, error) {
	return accessURIs(c, OIDAccessCAIssuers, "authorityInfoAccess caIssuers")
}
