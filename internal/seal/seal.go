// Package seal produces detached secp256k1 signatures over envelope hashes.
//
// A Seal binds a signer to one exact canonical serialization: any change to
// any field, capabilities included, changes the hash and breaks the seal.
// The envelope itself is never modified.
package seal

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/roach88/umicp/internal/canonical"
	"github.com/roach88/umicp/internal/envelope"
)

var (
	// ErrHashMismatch means the envelope no longer hashes to the sealed value.
	ErrHashMismatch = errors.New("seal: envelope hash mismatch")

	// ErrBadSignature means the signature does not verify under the given key.
	ErrBadSignature = errors.New("seal: bad signature")
)

// Domain separates seal digests from every other hash of the same bytes,
// so a signature over a plain envelope hash never verifies as a seal.
const Domain = "umicp/seal/v1"

// Seal is a detached signature. Hash is the lowercase hex SHA-256 of the
// envelope's canonical serialization. Signature is the hex DER encoding of
// an ECDSA signature over the Domain-separated digest of that
// serialization.
type Seal struct {
	Hash      string `json:"hash" yaml:"hash"`
	Signature string `json:"signature" yaml:"signature"`
}

// Sign hashes env and signs the digest with priv.
// Envelopes that fail validation are not signed.
func Sign(priv *btcec.PrivateKey, env *envelope.Envelope) (Seal, error) {
	if priv == nil {
		return Seal{}, fmt.Errorf("seal: nil private key")
	}
	digest, hash, err := digestOf(env)
	if err != nil {
		return Seal{}, err
	}
	sig := ecdsa.Sign(priv, digest)
	return Seal{Hash: hash, Signature: hex.EncodeToString(sig.Serialize())}, nil
}

// Verify checks that s is a valid seal of env by pub.
func Verify(pub *btcec.PublicKey, env *envelope.Envelope, s Seal) error {
	if pub == nil {
		return fmt.Errorf("seal: nil public key")
	}
	digest, hash, err := digestOf(env)
	if err != nil {
		return err
	}
	if hash != s.Hash {
		return ErrHashMismatch
	}

	der, err := hex.DecodeString(s.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex: %v", ErrBadSignature, err)
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !sig.Verify(digest, pub) {
		return ErrBadSignature
	}
	return nil
}

func digestOf(env *envelope.Envelope) ([]byte, string, error) {
	if env == nil {
		return nil, "", fmt.Errorf("seal: nil envelope")
	}
	if err := env.Check(); err != nil {
		return nil, "", fmt.Errorf("seal: %w", err)
	}
	data, err := env.Serialize()
	if err != nil {
		return nil, "", fmt.Errorf("seal: %w", err)
	}
	digest, err := hex.DecodeString(canonical.HashWithDomain(Domain, data))
	if err != nil {
		return nil, "", fmt.Errorf("seal: %w", err)
	}
	return digest, canonical.SHA256Hex(data), nil
}
