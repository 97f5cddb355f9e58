// Package issue builds signed certificates from issuance requests. A
// request carries the subject, public key, serial, validity window and
// extension specifications; the builder resolves defaults, encodes the
// extensions and signs with the issuer key, self-signing when no issuer
// certificate is given.
package issue

import (
	"crypto"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/georgepadayatti/certforge/cert"
	"github.com/georgepadayatti/certforge/extensions"
)

// DefaultTTL is the validity duration used when a request carries neither
// an explicit window nor a TTL.
const DefaultTTL = 365 * 24 * time.Hour

// serialBits is the size of generated serial numbers.
const serialBits = 128

// Request describes one certificate to issue.
type Request struct {
	// Subject is the subject name.
	Subject cert.Name

	// PublicKey is the key certified by the certificate.
	PublicKey crypto.PublicKey

	// SerialNumber is the serial; a fresh random serial is generated when
	// nil. Values exceeding the machine word size are fully supported.
	SerialNumber *big.Int

	// NotBefore and NotAfter bound the validity window. When both are
	// zero the window is clock.Now()..now+TTL.
	NotBefore time.Time
	NotAfter  time.Time

	// TTL is the validity duration for the default window; DefaultTTL
	// when zero.
	TTL time.Duration

	// Digest selects the signing digest; the key's default when zero.
	Digest cert.Digest

	// Extensions are encoded in order with their critical flags preserved.
	Extensions []extensions.Spec
}

// Builder issues certificates. The zero value is not usable; construct
// with NewBuilder.
type Builder struct {
	clock clockwork.Clock
}

// NewBuilder returns a Builder using the wall clock.
func NewBuilder() *Builder {
	return &Builder{clock: clockwork.NewRealClock()}
}

// NewBuilderWithClock returns a Builder using the given clock. Tests pass
// a fake clock to pin default validity windows.
func NewBuilderWithClock(clock clockwork.Clock) *Builder {
	return &Builder{clock: clock}
}

// RandomSerial generates a positive random serial number.
func RandomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), serialBits)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	// Zero is not a valid serial.
	return serial.Add(serial, big.NewInt(1)), nil
}

// Issue builds and signs a certificate. When issuerCert is nil the
// certificate is self-signed: the issuer name is the subject name and
// issuerKey must be the private half of req.PublicKey. Policy violations
// (for example a DSA key with an MD5 digest) surface as *cert.PolicyError
// before any signing happens. The builder holds no global state; the only
// effect is the returned certificate.
func (b *Builder) Issue(req Request, issuerCert *cert.Certificate, issuerKey crypto.PrivateKey) (*cert.Certificate, error) {
	if req.PublicKey == nil {
		return nil, fmt.Errorf("request has no public key")
	}
	if len(req.Subject) == 0 {
		return nil, fmt.Errorf("request has no subject")
	}
	if issuerKey == nil {
		return nil, fmt.Errorf("no issuer key")
	}

	c, err := cert.New(req.Subject, req.PublicKey)
	if err != nil {
		return nil, err
	}

	serial := req.SerialNumber
	if serial == nil {
		if serial, err = RandomSerial(); err != nil {
			return nil, err
		}
	}
	if err := c.SetSerialNumber(serial); err != nil {
		return nil, err
	}

	notBefore, notAfter := req.NotBefore, req.NotAfter
	if notBefore.IsZero() && notAfter.IsZero() {
		ttl := req.TTL
		if ttl == 0 {
			ttl = DefaultTTL
		}
		notBefore = b.clock.Now()
		notAfter = notBefore.Add(ttl)
	}
	if err := c.SetValidity(notBefore, notAfter); err != nil {
		return nil, err
	}

	issuerName := req.Subject
	if issuerCert != nil {
		issuerName = issuerCert.Subject()
	}
	if err := c.SetIssuer(issuerName); err != nil {
		return nil, err
	}

	if len(req.Extensions) > 0 {
		exts, err := extensions.Encode(req.Extensions, &extensions.Context{
			SubjectPublicKeyInfo: c.RawSubjectPublicKeyInfo(),
			Issuer:               issuerCert,
		})
		if err != nil {
			return nil, err
		}
		if err := c.SetExtensions(exts); err != nil {
			return nil, err
		}
	}

	if err := c.Sign(issuerKey, req.Digest); err != nil {
		return nil, err
	}
	return c, nil
}
