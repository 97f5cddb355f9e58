package issue

import (
	"bytes"
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/georgepadayatti/certforge/cert"
	"github.com/georgepadayatti/certforge/extensions"
)

var testKey = func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}()

func testSubject(cn string) cert.Name {
	return cert.Name{{Type: cert.OIDCommonName, Value: cn}}
}

func TestIssueSelfSigned(t *testing.T) {
	b := NewBuilder()
	c, err := b.Issue(Request{
		Subject:   testSubject("root.example.com"),
		PublicKey: &testKey.PublicKey,
	}, nil, testKey)
	if err != nil {
		t.Fatalf("failed to issue: %v", err)
	}

	if !c.Issuer().Equal(c.Subject()) {
		t.Error("a self-signed certificate must carry its subject as issuer")
	}
	ok, err := c.Verify(&testKey.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("a self-signed certificate must verify against its own key")
	}
}

func TestIssueDefaultWindow(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	b := NewBuilderWithClock(clockwork.NewFakeClockAt(now))

	c, err := b.Issue(Request{
		Subject:   testSubject("default.example.com"),
		PublicKey: &testKey.PublicKey,
	}, nil, testKey)
	if err != nil {
		t.Fatal(err)
	}

	notBefore, notAfter := c.Validity()
	if !notBefore.Equal(now) {
		t.Errorf("expected notBefore %v, got %v", now, notBefore)
	}
	if !notAfter.Equal(now.Add(DefaultTTL)) {
		t.Errorf("expected notAfter %v, got %v", now.Add(DefaultTTL), notAfter)
	}
}

func TestIssueCustomTTL(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	b := NewBuilderWithClock(clockwork.NewFakeClockAt(now))

	c, err := b.Issue(Request{
		Subject:   testSubject("ttl.example.com"),
		PublicKey: &testKey.PublicKey,
		TTL:       48 * time.Hour,
	}, nil, testKey)
	if err != nil {
		t.Fatal(err)
	}

	_, notAfter := c.Validity()
	if !notAfter.Equal(now.Add(48 * time.Hour)) {
		t.Errorf("expected notAfter %v, got %v", now.Add(48*time.Hour), notAfter)
	}
}

func TestIssueExplicitWindow(t *testing.T) {
	notBefore := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	b := NewBuilder()
	c, err := b.Issue(Request{
		Subject:   testSubject("window.example.com"),
		PublicKey: &testKey.PublicKey,
		NotBefore: notBefore,
		NotAfter:  notAfter,
	}, nil, testKey)
	if err != nil {
		t.Fatal(err)
	}

	gotBefore, gotAfter := c.Validity()
	if !gotBefore.Equal(notBefore) || !gotAfter.Equal(notAfter) {
		t.Errorf("expected window %v..%v, got %v..%v", notBefore, notAfter, gotBefore, gotAfter)
	}
}

func TestIssueGeneratesSerial(t *testing.T) {
	b := NewBuilder()
	serials := make(map[string]bool)
	for i := 0; i < 3; i++ {
		c, err := b.Issue(Request{
			Subject:   testSubject("serial.example.com"),
			PublicKey: &testKey.PublicKey,
		}, nil, testKey)
		if err != nil {
			t.Fatal(err)
		}
		serial := c.SerialNumber()
		if serial.Sign() <= 0 {
			t.Fatalf("generated serial %v must be positive", serial)
		}
		serials[serial.String()] = true
	}
	if len(serials) != 3 {
		t.Error("generated serials must be distinct")
	}
}

func TestIssueLargeSerial(t *testing.T) {
	serial := new(big.Int).Lsh(big.NewInt(1), 100)
	serial.Add(serial, big.NewInt(9))

	b := NewBuilder()
	c, err := b.Issue(Request{
		Subject:      testSubject("big.example.com"),
		PublicKey:    &testKey.PublicKey,
		SerialNumber: serial,
	}, nil, testKey)
	if err != nil {
		t.Fatal(err)
	}
	if c.SerialNumber().Cmp(serial) != 0 {
		t.Errorf("expected serial %v, got %v", serial, c.SerialNumber())
	}

	der, err := c.EncodeDER()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := cert.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.SerialNumber().Cmp(serial) != 0 {
		t.Errorf("serial changed across encoding: %v", parsed.SerialNumber())
	}
}

func TestIssueChain(t *testing.T) {
	rootKey := testKey
	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	b := NewBuilder()
	root, err := b.Issue(Request{
		Subject:   testSubject("Test Root CA"),
		PublicKey: &rootKey.PublicKey,
		Extensions: []extensions.Spec{
			{Name: "basicConstraints", Critical: true, Value: "CA:TRUE"},
			{Name: "keyUsage", Critical: true, Value: "keyCertSign, cRLSign"},
			{Name: "subjectKeyIdentifier", Value: "hash"},
		},
	}, nil, rootKey)
	if err != nil {
		t.Fatalf("failed to issue root: %v", err)
	}

	leaf, err := b.Issue(Request{
		Subject:   testSubject("leaf.example.com"),
		PublicKey: &leafKey.PublicKey,
		Extensions: []extensions.Spec{
			{Name: "basicConstraints", Critical: true, Value: "CA:FALSE"},
			{Name: "authorityKeyIdentifier", Value: "keyid"},
			{Name: "subjectAltName", Value: "DNS:leaf.example.com"},
		},
	}, root, rootKey)
	if err != nil {
		t.Fatalf("failed to issue leaf: %v", err)
	}

	if !leaf.Issuer().Equal(root.Subject()) {
		t.Error("leaf issuer must be the root subject")
	}

	ok, err := leaf.Verify(&rootKey.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("leaf must verify against the root key")
	}
	ok, err = leaf.Verify(&leafKey.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("leaf must not verify against its own key")
	}

	// The leaf's authority key identifier must link to the root's subject
	// key identifier.
	rootSKID, err := extensions.SubjectKeyID(root)
	if err != nil {
		t.Fatal(err)
	}
	leafAKID, err := extensions.AuthorityKeyID(leaf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rootSKID, leafAKID) {
		t.Errorf("leaf AKID %x must match root SKID %x", leafAKID, rootSKID)
	}
}

func TestIssuePolicyError(t *testing.T) {
	var params dsa.Parameters
	if err := dsa.GenerateParameters(&params, rand.Reader, dsa.L1024N160); err != nil {
		t.Fatal(err)
	}
	dsaKey := &dsa.PrivateKey{PublicKey: dsa.PublicKey{Parameters: params}}
	if err := dsa.GenerateKey(dsaKey, rand.Reader); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder()
	_, err := b.Issue(Request{
		Subject:   testSubject("policy.example.com"),
		PublicKey: &dsaKey.PublicKey,
		Digest:    cert.DigestMD5,
	}, nil, dsaKey)

	var policyErr *cert.PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected *cert.PolicyError, got %v", err)
	}
}

func TestIssueRequestValidation(t *testing.T) {
	b := NewBuilder()
	tests := []struct {
		name string
		req  Request
		key  interface{}
	}{
		{"no public key", Request{Subject: testSubject("x")}, testKey},
		{"no subject", Request{PublicKey: &testKey.PublicKey}, testKey},
		{"no issuer key", Request{Subject: testSubject("x"), PublicKey: &testKey.PublicKey}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Issue(tt.req, nil, tt.key); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestIssueBadExtensionSpec(t *testing.T) {
	b := NewBuilder()
	_, err := b.Issue(Request{
		Subject:   testSubject("x"),
		PublicKey: &testKey.PublicKey,
		Extensions: []extensions.Spec{
			{Name: "keyUsage", Value: "flying"},
		},
	}, nil, testKey)
	if !errors.Is(err, extensions.ErrInvalidValue) {
		t.Errorf("expected extensions.ErrInvalidValue, got %v", err)
	}
}

func TestRandomSerial(t *testing.T) {
	for i := 0; i < 10; i++ {
		serial, err := RandomSerial()
		if err != nil {
			t.Fatal(err)
		}
		if serial.Sign() <= 0 {
			t.Errorf("serial %v must be positive", serial)
		}
		if serial.BitLen() > serialBits+1 {
			t.Errorf("serial %v exceeds the size bound", serial)
		}
	}
}
