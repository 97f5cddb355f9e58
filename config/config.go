// Package config loads certificate issuance profiles from YAML files.
package config

import (
	"crypto"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/certforge/cert"
	"github.com/georgepadayatti/certforge/extensions"
	"github.com/georgepadayatti/certforge/issue"
)

// Common errors
var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrMissingRequiredField = errors.New("missing required field")
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// Duration wraps time.Duration with YAML string decoding ("8760h", "90m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return NewConfigError("ttl", "expected a duration string")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return &ConfigError{Field: "ttl", Message: fmt.Sprintf("invalid duration %q", s), Err: err}
	}
	*d = Duration(parsed)
	return nil
}

// ExtensionSpec is one extension entry of a profile.
type ExtensionSpec struct {
	// Name is the extension name, e.g. "basicConstraints".
	Name string `yaml:"name"`

	// Critical marks the extension critical.
	Critical bool `yaml:"critical"`

	// Value is the extension value string.
	Value string `yaml:"value"`
}

// Profile describes one certificate to issue.
type Profile struct {
	// Subject is an ordered list of single-attribute entries, e.g.
	//   - CN: Example CA
	//   - O: Example Org
	Subject []map[string]string `yaml:"subject"`

	// Serial is the serial number, decimal or "0x"-prefixed hex.
	// A random serial is generated when empty.
	Serial string `yaml:"serial"`

	// TTL is the validity duration for the default window.
	TTL Duration `yaml:"ttl"`

	// NotBefore and NotAfter pin an explicit validity window.
	NotBefore *time.Time `yaml:"not-before"`
	NotAfter  *time.Time `yaml:"not-after"`

	// Digest selects the signing digest (md5, sha1, sha224, sha256,
	// sha384, sha512); the key default when empty.
	Digest string `yaml:"digest"`

	// Extensions are encoded in list order.
	Extensions []ExtensionSpec `yaml:"extensions"`

	// KeyFile is the path of the subject private key.
	KeyFile string `yaml:"key"`

	// IssuerCertFile and IssuerKeyFile identify the issuer; when absent
	// the certificate is self-signed with the subject key.
	IssuerCertFile string `yaml:"issuer-cert"`
	IssuerKeyFile  string `yaml:"issuer-key"`

	// OutFile is where the issued certificate is written.
	OutFile string `yaml:"out"`
}

// Load reads and validates a profile file. Unknown fields are rejected.
func Load(filename string) (*Profile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationError, err)
	}
	return Parse(data)
}

// Parse decodes and validates profile data.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, &ConfigError{Message: "invalid profile YAML", Err: err}
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if len(p.Subject) == 0 {
		return &ConfigError{Field: "subject", Message: "at least one attribute is required", Err: ErrMissingRequiredField}
	}
	for i, entry := range p.Subject {
		if len(entry) != 1 {
			return NewConfigError("subject", fmt.Sprintf("entry %d must hold exactly one attribute", i))
		}
	}
	if p.KeyFile == "" {
		return &ConfigError{Field: "key", Message: "subject key file is required", Err: ErrMissingRequiredField}
	}
	if (p.IssuerCertFile == "") != (p.IssuerKeyFile == "") {
		return NewConfigError("issuer-cert", "issuer-cert and issuer-key must be set together")
	}
	if _, err := cert.ParseDigest(p.Digest); err != nil {
		return &ConfigError{Field: "digest", Message: fmt.Sprintf("unknown digest %q", p.Digest), Err: err}
	}
	if p.Serial != "" {
		if _, err := parseSerial(p.Serial); err != nil {
			return err
		}
	}
	if (p.NotBefore == nil) != (p.NotAfter == nil) {
		return NewConfigError("not-before", "not-before and not-after must be set together")
	}
	return nil
}

// SelfSigned reports whether the profile issues a self-signed certificate.
func (p *Profile) SelfSigned() bool {
	return p.IssuerCertFile == ""
}

// SubjectName converts the ordered subject entries into a Name.
func (p *Profile) SubjectName() (cert.Name, error) {
	name := make(cert.Name, 0, len(p.Subject))
	for _, entry := range p.Subject {
		for attr, value := range entry {
			atv, err := cert.NewAttribute(attr, value)
			if err != nil {
				return nil, &ConfigError{Field: "subject", Message: err.Error(), Err: err}
			}
			name = append(name, atv)
		}
	}
	return name, nil
}

// parseSerial parses a decimal or 0x-prefixed hex serial of any magnitude.
func parseSerial(s string) (*big.Int, error) {
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	serial, ok := new(big.Int).SetString(digits, base)
	if !ok || serial.Sign() <= 0 {
		return nil, NewConfigError("serial", fmt.Sprintf("invalid serial %q", s))
	}
	return serial, nil
}

// Request converts the profile into an issuance request for the given
// subject public key.
func (p *Profile) Request(pub crypto.PublicKey) (issue.Request, error) {
	subject, err := p.SubjectName()
	if err != nil {
		return issue.Request{}, err
	}
	digest, err := cert.ParseDigest(p.Digest)
	if err != nil {
		return issue.Request{}, err
	}

	req := issue.Request{
		Subject:   subject,
		PublicKey: pub,
		TTL:       time.Duration(p.TTL),
		Digest:    digest,
	}
	if p.Serial != "" {
		if req.SerialNumber, err = parseSerial(p.Serial); err != nil {
			return issue.Request{}, err
		}
	}
	if p.NotBefore != nil && p.NotAfter != nil {
		req.NotBefore = *p.NotBefore
		req.NotAfter = *p.NotAfter
	}
	for _, ext := range p.Extensions {
		req.Extensions = append(req.Extensions, extensions.Spec{
			Name:     ext.Name,
			Critical: ext.Critical,
			Value:    ext.Value,
		})
	}
	return req, nil
}
