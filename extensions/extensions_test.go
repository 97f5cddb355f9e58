package extensions

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/georgepadayatti/certforge/cert"
)

var testKey = func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}()

// newSubjectCert builds an unsigned certificate to encode extensions for.
func newSubjectCert(t *testing.T) *cert.Certificate {
	t.Helper()
	subject := cert.Name{{Type: cert.OIDCommonName, Value: "ext.example.com"}}
	c, err := cert.New(subject, &testKey.PublicKey)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return c
}

func TestEncodeUnknownName(t *testing.T) {
	_, err := Encode([]Spec{{Name: "nameConstraints", Value: "x"}}, nil)
	if !errors.Is(err, ErrUnknownExtension) {
		t.Errorf("expected ErrUnknownExtension, got %v", err)
	}
}

func TestEncodePreservesOrderAndCritical(t *testing.T) {
	c := newSubjectCert(t)
	specs := []Spec{
		{Name: "subjectAltName", Critical: false, Value: "DNS:ext.example.com"},
		{Name: "basicConstraints", Critical: true, Value: "CA:TRUE, pathlen:0"},
		{Name: "keyUsage", Critical: true, Value: "keyCertSign, cRLSign"},
		{Name: "subjectKeyIdentifier", Critical: false, Value: "hash"},
	}
	exts, err := Encode(specs, &Context{SubjectPublicKeyInfo: c.RawSubjectPublicKeyInfo()})
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if len(exts) != len(specs) {
		t.Fatalf("expected %d extensions, got %d", len(specs), len(exts))
	}

	expectedOIDs := []asn1.ObjectIdentifier{
		OIDSubjectAltName, OIDBasicConstraints, OIDKeyUsage, OIDSubjectKeyIdentifier,
	}
	for i, ext := range exts {
		if !ext.Id.Equal(expectedOIDs[i]) {
			t.Errorf("extension %d: expected OID %v, got %v", i, expectedOIDs[i], ext.Id)
		}
		if ext.Critical != specs[i].Critical {
			t.Errorf("extension %d: expected critical=%v", i, specs[i].Critical)
		}
	}
}

func TestEncodedExtensionsSurviveParsing(t *testing.T) {
	c := newSubjectCert(t)
	specs := []Spec{
		{Name: "basicConstraints", Critical: true, Value: "CA:TRUE"},
		{Name: "keyUsage", Critical: true, Value: "digitalSignature, keyCertSign"},
		{Name: "subjectKeyIdentifier", Value: "hash"},
		{Name: "subjectAltName", Value: "DNS:ext.example.com, IP:192.0.2.7, email:ops@example.com"},
		{Name: "crlDistributionPoints", Value: "URI:http://crl.example.com/a.crl, URI:http://crl.example.com/b.crl"},
		{Name: "authorityInfoAccess", Value: "OCSP;URI:http://ocsp.example.com, caIssuers;URI:http://ca.example.com/ca.der"},
	}
	exts, err := Encode(specs, &Context{SubjectPublicKeyInfo: c.RawSubjectPublicKeyInfo()})
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if err := c.SetExtensions(exts); err != nil {
		t.Fatal(err)
	}
	if err := c.SetSerialNumber(big.NewInt(7)); err != nil {
		t.Fatal(err)
	}
	notBefore := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := c.SetValidity(notBefore, notBefore.AddDate(1, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := c.Sign(testKey, cert.DigestDefault); err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	der, err := c.EncodeDER()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := cert.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	got := parsed.Extensions()
	if len(got) != len(specs) {
		t.Fatalf("expected %d extensions, got %d", len(specs), len(got))
	}
	for i := range got {
		if !got[i].Id.Equal(exts[i].Id) {
			t.Errorf("extension %d: OID changed across parsing", i)
		}
		if got[i].Critical != exts[i].Critical {
			t.Errorf("extension %d: critical flag changed across parsing", i)
		}
		if !bytes.Equal(got[i].Value, exts[i].Value) {
			t.Errorf("extension %d: value changed across parsing", i)
		}
	}

	// The standard library parser must agree on the decoded content.
	std, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("standard library rejected the certificate: %v", err)
	}
	if !std.IsCA {
		t.Error("expected IsCA")
	}
	if std.KeyUsage != x509.KeyUsageDigitalSignature|x509.KeyUsageCertSign {
		t.Errorf("unexpected key usage %v", std.KeyUsage)
	}
	if len(std.DNSNames) != 1 || std.DNSNames[0] != "ext.example.com" {
		t.Errorf("unexpected DNS names %v", std.DNSNames)
	}
	if len(std.IPAddresses) != 1 || std.IPAddresses[0].String() != "192.0.2.7" {
		t.Errorf("unexpected IP addresses %v", std.IPAddresses)
	}
	if len(std.EmailAddresses) != 1 || std.EmailAddresses[0] != "ops@example.com" {
		t.Errorf("unexpected email addresses %v", std.EmailAddresses)
	}
	if len(std.CRLDistributionPoints) != 2 ||
		std.CRLDistributionPoints[0] != "http://crl.example.com/a.crl" {
		t.Errorf("unexpected CRL distribution points %v", std.CRLDistributionPoints)
	}
	if len(std.OCSPServer) != 1 || std.OCSPServer[0] != "http://ocsp.example.com" {
		t.Errorf("unexpected OCSP servers %v", std.OCSPServer)
	}
	if len(std.IssuingCertificateURL) != 1 ||
		std.IssuingCertificateURL[0] != "http://ca.example.com/ca.der" {
		t.Errorf("unexpected CA issuer URLs %v", std.IssuingCertificateURL)
	}
}

func TestEncodeBasicConstraints(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"ca", "CA:TRUE", false},
		{"ca with pathlen", "CA:TRUE, pathlen:2", false},
		{"end entity", "CA:FALSE", false},
		{"negative pathlen", "CA:TRUE, pathlen:-1", true},
		{"garbage", "CA:MAYBE", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encodeBasicConstraints(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("expected ErrInvalidValue, got %v", err)
			}
		})
	}
}

func TestEncodeKeyUsageBitLength(t *testing.T) {
	// Named bit strings drop trailing zero bits, so the bit length must
	// reach exactly the highest set bit.
	value, err := encodeKeyUsage("digitalSignature")
	if err != nil {
		t.Fatal(err)
	}
	var bits asn1.BitString
	if _, err := asn1.Unmarshal(value, &bits); err != nil {
		t.Fatal(err)
	}
	if bits.BitLength != 1 {
		t.Errorf("expected bit length 1, got %d", bits.BitLength)
	}

	value, err = encodeKeyUsage("decipherOnly")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := asn1.Unmarshal(value, &bits); err != nil {
		t.Fatal(err)
	}
	if bits.BitLength != 9 {
		t.Errorf("expected bit length 9, got %d", bits.BitLength)
	}
	if bits.At(8) != 1 {
		t.Error("expected decipherOnly bit set")
	}
}

func TestEncodeKeyUsageUnknownName(t *testing.T) {
	_, err := encodeKeyUsage("digitalSignature, flying")
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestEncodeExtendedKeyUsage(t *testing.T) {
	value, err := encodeExtendedKeyUsage("serverAuth, clientAuth, 1.3.6.1.4.1.11129.2.4.2")
	if err != nil {
		t.Fatal(err)
	}
	var oids []asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(value, &oids); err != nil {
		t.Fatal(err)
	}
	if len(oids) != 3 {
		t.Fatalf("expected 3 OIDs, got %d", len(oids))
	}
	if oids[2].String() != "1.3.6.1.4.1.11129.2.4.2" {
		t.Errorf("unexpected OID %v", oids[2])
	}

	if _, err := encodeExtendedKeyUsage("flyingAuth"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestEncodeSubjectKeyIDHash(t *testing.T) {
	c := newSubjectCert(t)
	value, err := encodeSubjectKeyID("hash", &Context{SubjectPublicKeyInfo: c.RawSubjectPublicKeyInfo()})
	if err != nil {
		t.Fatal(err)
	}
	var keyID []byte
	if _, err := asn1.Unmarshal(value, &keyID); err != nil {
		t.Fatal(err)
	}

	// The identifier is the SHA-1 of the subjectPublicKey bit string.
	spkiDER, err := x509.MarshalPKIXPublicKey(&testKey.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	var spki struct {
		Algorithm asn1.RawValue
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(spkiDER, &spki); err != nil {
		t.Fatal(err)
	}
	expected := sha1.Sum(spki.PublicKey.RightAlign())
	if !bytes.Equal(keyID, expected[:]) {
		t.Error("key identifier does not match the SHA-1 of the public key")
	}
}

func TestEncodeSubjectKeyIDHex(t *testing.T) {
	value, err := encodeSubjectKeyID("AB:CD:01", &Context{})
	if err != nil {
		t.Fatal(err)
	}
	var keyID []byte
	if _, err := asn1.Unmarshal(value, &keyID); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(keyID, []byte{0xab, 0xcd, 0x01}) {
		t.Errorf("unexpected key identifier %x", keyID)
	}

	if _, err := encodeSubjectKeyID("not-hex", &Context{}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestEncodeSubjectAltNameErrors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"bad ip", "IP:999.1.1.1"},
		{"unknown type", "XMPP:user@example.com"},
		{"missing separator", "example.com"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := encodeSubjectAltName(tt.value); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("expected ErrInvalidValue, got %v", err)
			}
		})
	}
}

func TestEncodeCRLDistributionPointsRejectsNonURI(t *testing.T) {
	if _, err := encodeCRLDistributionPoints("DNS:crl.example.com"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestEncodeAuthorityInfoAccessErrors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"unknown method", "TSA;URI:http://tsa.example.com"},
		{"missing method", "URI:http://ocsp.example.com"},
		{"non-uri location", "OCSP;DNS:ocsp.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := encodeAuthorityInfoAccess(tt.value); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("expected ErrInvalidValue, got %v", err)
			}
		})
	}
}
