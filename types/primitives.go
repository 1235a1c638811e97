// Package types defines the primitive and wire types shared across the
// packet-handler core: hashes, keys, signatures, and the protocol message
// variants the dispatcher routes.
package types

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// Root is a 32-byte content hash, used for block and candidate identities.
type Root [32]byte

func (r Root) IsZero() bool { return r == Root{} }

// Short returns a short hex representation of the root (first 4 bytes).
func (r Root) Short() string {
	return fmt.Sprintf("%x", r[:4])
}

func (r Root) String() string {
	return hex.EncodeToString(r[:])
}

// Pubkey is an ed25519 public key.
type Pubkey [ed25519.PublicKeySize]byte

func (p Pubkey) IsZero() bool { return p == Pubkey{} }

func (p Pubkey) String() string {
	return hex.EncodeToString(p[:])
}

// PrivateKey is an ed25519 private key, held only by a validator identity.
type PrivateKey [ed25519.PrivateKeySize]byte

// Sign signs data and returns the raw signature bytes.
func (k PrivateKey) Sign(data []byte) Signature {
	raw := ed25519.Sign(ed25519.PrivateKey(k[:]), data)
	var sig Signature
	copy(sig[:], raw)
	return sig
}

// Public derives the public key paired with this private key.
func (k PrivateKey) Public() Pubkey {
	pub := ed25519.PrivateKey(k[:]).Public().(ed25519.PublicKey)
	var p Pubkey
	copy(p[:], pub)
	return p
}

// Signature is an ed25519 signature over a candidate's hash.
type Signature [ed25519.SignatureSize]byte

// Verify reports whether sig is a valid signature by pub over data.
func Verify(pub Pubkey, data []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), data, sig[:])
}

// GenerateKeyPair generates a fresh ed25519 validator identity.
func GenerateKeyPair() (PrivateKey, Pubkey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return PrivateKey{}, Pubkey{}, err
	}
	var sk PrivateKey
	var pk Pubkey
	copy(sk[:], priv)
	copy(pk[:], pub)
	return sk, pk, nil
}

// ValidatorIdentity pairs a public key with the signing key needed to
// participate as a validator (GenesisValidator role).
type ValidatorIdentity struct {
	PublicKey  Pubkey
	PrivateKey PrivateKey
}
