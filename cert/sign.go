// Package cert implements an X.509 certificate model with construction,
// signing, verification and DER/PEM serialization.
// This file contains the signature engine: digest selection policy, TBS
// signing and signature verification across key families.
package cert

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // legacy DSA support is part of the contract
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/asn1"
	"fmt"
	"math/big"

	// Register digest implementations for crypto.Hash.New.
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// Digest selects the message digest used when signing. The zero value lets
// the engine pick a strong default for the key type (SHA-256, or the pure
// mode for Ed25519). Legacy digests such as MD5 and SHA-1 stay available
// for compatibility but are subject to per-key-family policy checks.
type Digest int

const (
	// DigestDefault selects the default digest for the signing key.
	DigestDefault Digest = iota
	// DigestMD5 is the legacy MD5 digest.
	DigestMD5
	// DigestSHA1 is the legacy SHA-1 digest.
	DigestSHA1
	// DigestSHA224 is the SHA-224 digest.
	DigestSHA224
	// DigestSHA256 is the SHA-256 digest.
	DigestSHA256
	// DigestSHA384 is the SHA-384 digest.
	DigestSHA384
	// DigestSHA512 is the SHA-512 digest.
	DigestSHA512
)

// String returns the lowercase digest name.
func (d Digest) String() string {
	switch d {
	case DigestDefault:
		return "default"
	case DigestMD5:
		return "md5"
	case DigestSHA1:
		return "sha1"
	case DigestSHA224:
		return "sha224"
	case DigestSHA256:
		return "sha256"
	case DigestSHA384:
		return "sha384"
	case DigestSHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

// ParseDigest maps a digest name to a Digest.
func ParseDigest(s string) (Digest, error) {
	switch s {
	case "", "default":
		return DigestDefault, nil
	case "md5":
		return DigestMD5, nil
	case "sha1":
		return DigestSHA1, nil
	case "sha224":
		return DigestSHA224, nil
	case "sha256":
		return DigestSHA256, nil
	case "sha384":
		return DigestSHA384, nil
	case "sha512":
		return DigestSHA512, nil
	default:
		return DigestDefault, fmt.Errorf("%w: digest %q", ErrAlgorithmNotSupported, s)
	}
}

func (d Digest) hash() crypto.Hash {
	switch d {
	case DigestMD5:
		return crypto.MD5
	case DigestSHA1:
		return crypto.SHA1
	case DigestSHA224:
		return crypto.SHA224
	case DigestSHA256:
		return crypto.SHA256
	case DigestSHA384:
		return crypto.SHA384
	case DigestSHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// OIDs for signature algorithms
var (
	// RSA PKCS#1 v1.5 with various digests
	OIDRSAWithMD5    = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 4}
	OIDRSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	OIDRSAWithSHA224 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 14}
	OIDRSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	OIDRSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	OIDRSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}

	// DSA
	OIDDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 3}
	OIDDSAWithSHA224 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 1}
	OIDDSAWithSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 2}

	// ECDSA
	OIDECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	OIDECDSAWithSHA224 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 1}
	OIDECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	OIDECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	OIDECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}

	// EdDSA
	OIDEd25519 = asn1.ObjectIdentifier{1, 3, 101, 112}
)

// keyFamily identifies the public key algorithm family of a signature.
type keyFamily int

const (
	familyUnknown keyFamily = iota
	familyRSA
	familyDSA
	familyECDSA
	familyEd25519
)

func (f keyFamily) String() string {
	switch f {
	case familyRSA:
		return "rsa"
	case familyDSA:
		return "dsa"
	case familyECDSA:
		return "ecdsa"
	case familyEd25519:
		return "ed25519"
	default:
		return "unknown"
	}
}

// familyOf returns the key family of a public key.
func familyOf(pub crypto.PublicKey) keyFamily {
	switch pub.(type) {
	case *rsa.PublicKey:
		return familyRSA
	case *dsa.PublicKey:
		return familyDSA
	case *ecdsa.PublicKey:
		return familyECDSA
	case ed25519.PublicKey:
		return familyEd25519
	default:
		return familyUnknown
	}
}

// sigAlgFromOID resolves a signature algorithm OID into its key family and
// digest. Ed25519 carries no digest; an unknown OID yields familyUnknown.
func sigAlgFromOID(oid asn1.ObjectIdentifier) (keyFamily, crypto.Hash) {
	switch {
	case oid.Equal(OIDRSAWithMD5):
		return familyRSA, crypto.MD5
	case oid.Equal(OIDRSAWithSHA1):
		return familyRSA, crypto.SHA1
	case oid.Equal(OIDRSAWithSHA224):
		return familyRSA, crypto.SHA224
	case oid.Equal(OIDRSAWithSHA256):
		return familyRSA, crypto.SHA256
	case oid.Equal(OIDRSAWithSHA384):
		return familyRSA, crypto.SHA384
	case oid.Equal(OIDRSAWithSHA512):
		return familyRSA, crypto.SHA512
	case oid.Equal(OIDDSAWithSHA1):
		return familyDSA, crypto.SHA1
	case oid.Equal(OIDDSAWithSHA224):
		return familyDSA, crypto.SHA224
	case oid.Equal(OIDDSAWithSHA256):
		return familyDSA, crypto.SHA256
	case oid.Equal(OIDECDSAWithSHA1):
		return familyECDSA, crypto.SHA1
	case oid.Equal(OIDECDSAWithSHA224):
		return familyECDSA, crypto.SHA224
	case oid.Equal(OIDECDSAWithSHA256):
		return familyECDSA, crypto.SHA256
	case oid.Equal(OIDECDSAWithSHA384):
		return familyECDSA, crypto.SHA384
	case oid.Equal(OIDECDSAWithSHA512):
		return familyECDSA, crypto.SHA512
	case oid.Equal(OIDEd25519):
		return familyEd25519, 0
	default:
		return familyUnknown, 0
	}
}

// signatureAlgorithmFor selects the signature algorithm identifier for a
// private key and digest, applying the signing policy. Policy violations
// (DSA with MD5, an explicit digest with Ed25519, unknown combinations)
// return a PolicyError before any signing is attempted.
func signatureAlgorithmFor(key crypto.PrivateKey, digest Digest) (pkixAlgorithmIdentifier, Digest, error) {
	switch key.(type) {
	case *rsa.PrivateKey:
		if digest == DigestDefault {
			digest = DigestSHA256
		}
		var oid asn1.ObjectIdentifier
		switch digest {
		case DigestMD5:
			oid = OIDRSAWithMD5
		case DigestSHA1:
			oid = OIDRSAWithSHA1
		case DigestSHA224:
			oid = OIDRSAWithSHA224
		case DigestSHA256:
			oid = OIDRSAWithSHA256
		case DigestSHA384:
			oid = OIDRSAWithSHA384
		case DigestSHA512:
			oid = OIDRSAWithSHA512
		default:
			return pkixAlgorithmIdentifier{}, digest, NewPolicyError("digest %s not usable with RSA keys", digest)
		}
		// RSA signature algorithm identifiers carry an explicit NULL.
		return pkixAlgorithmIdentifier{Algorithm: oid, Parameters: asn1.NullRawValue}, digest, nil

	case *dsa.PrivateKey:
		if digest == DigestDefault {
			digest = DigestSHA256
		}
		var oid asn1.ObjectIdentifier
		switch digest {
		case DigestSHA1:
			oid = OIDDSAWithSHA1
		case DigestSHA224:
			oid = OIDDSAWithSHA224
		case DigestSHA256:
			oid = OIDDSAWithSHA256
		default:
			return pkixAlgorithmIdentifier{}, digest, NewPolicyError("digest %s not usable with DSA keys", digest)
		}
		return pkixAlgorithmIdentifier{Algorithm: oid}, digest, nil

	case *ecdsa.PrivateKey:
		if digest == DigestDefault {
			digest = DigestSHA256
		}
		var oid asn1.ObjectIdentifier
		switch digest {
		case DigestSHA1:
			oid = OIDECDSAWithSHA1
		case DigestSHA224:
			oid = OIDECDSAWithSHA224
		case DigestSHA256:
			oid = OIDECDSAWithSHA256
		case DigestSHA384:
			oid = OIDECDSAWithSHA384
		case DigestSHA512:
			oid = OIDECDSAWithSHA512
		default:
			return pkixAlgorithmIdentifier{}, digest, NewPolicyError("digest %s not usable with ECDSA keys", digest)
		}
		return pkixAlgorithmIdentifier{Algorithm: oid}, digest, nil

	case ed25519.PrivateKey:
		if digest != DigestDefault {
			return pkixAlgorithmIdentifier{}, digest, NewPolicyError("Ed25519 signs the full message; digest %s cannot be selected", digest)
		}
		return pkixAlgorithmIdentifier{Algorithm: OIDEd25519}, digest, nil

	default:
		return pkixAlgorithmIdentifier{}, digest, NewPolicyError("cannot sign with key of type %T", key)
	}
}

// dsaSignature holds the ASN.1 Dss-Sig-Value structure.
type dsaSignature struct {
	R, S *big.Int
}

// signTBS signs encoded TBS bytes with the given key and resolved digest.
func signTBS(tbs []byte, key crypto.PrivateKey, digest Digest) ([]byte, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		h := digest.hash()
		hw := h.New()
		hw.Write(tbs)
		sig, err := rsa.SignPKCS1v15(rand.Reader, k, h, hw.Sum(nil))
		if err != nil {
			return nil, fmt.Errorf("RSA signing failed: %w", err)
		}
		return sig, nil

	case *dsa.PrivateKey:
		hw := digest.hash().New()
		hw.Write(tbs)
		r, s, err := dsa.Sign(rand.Reader, k, hw.Sum(nil))
		if err != nil {
			return nil, fmt.Errorf("DSA signing failed: %w", err)
		}
		return asn1.Marshal(dsaSignature{R: r, S: s})

	case *ecdsa.PrivateKey:
		hw := digest.hash().New()
		hw.Write(tbs)
		sig, err := ecdsa.SignASN1(rand.Reader, k, hw.Sum(nil))
		if err != nil {
			return nil, fmt.Errorf("ECDSA signing failed: %w", err)
		}
		return sig, nil

	case ed25519.PrivateKey:
		return ed25519.Sign(k, tbs), nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKeyType, key)
	}
}

// verifySignature checks a signature over signed bytes against a public key
// and a signature algorithm OID. A mismatching signature or a key of the
// wrong family yields (false, nil); an algorithm the engine cannot evaluate
// yields (false, ErrAlgorithmNotSupported).
func verifySignature(signed, signature []byte, pub crypto.PublicKey, oid asn1.ObjectIdentifier) (bool, error) {
	family, hash := sigAlgFromOID(oid)
	if family == familyUnknown {
		return false, fmt.Errorf("%w: signature algorithm %s", ErrAlgorithmNotSupported, oid.String())
	}
	if familyOf(pub) != family {
		return false, nil
	}
	if family != familyEd25519 && !hash.Available() {
		return false, fmt.Errorf("%w: digest %s unavailable", ErrAlgorithmNotSupported, hash)
	}

	switch key := pub.(type) {
	case *rsa.PublicKey:
		hw := hash.New()
		hw.Write(signed)
		if err := rsa.VerifyPKCS1v15(key, hash, hw.Sum(nil), signature); err != nil {
			return false, nil
		}
		return true, nil

	case *dsa.PublicKey:
		if key.P == nil || key.Q == nil || key.G == nil {
			return false, fmt.Errorf("%w: DSA parameters unavailable", ErrAlgorithmNotSupported)
		}
		var sig dsaSignature
		if rest, err := asn1.Unmarshal(signature, &sig); err != nil || len(rest) != 0 {
			return false, nil
		}
		hw := hash.New()
		hw.Write(signed)
		return dsa.Verify(key, hw.Sum(nil), sig.R, sig.S), nil

	case *ecdsa.PublicKey:
		hw := hash.New()
		hw.Write(signed)
		return ecdsa.VerifyASN1(key, hw.Sum(nil), signature), nil

	case ed25519.PublicKey:
		return ed25519.Verify(key, signed, signature), nil

	default:
		return false, nil
	}
}
