package seal

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

// GenerateKey returns a fresh secp256k1 private key.
func GenerateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// ParsePrivateKeyHex decodes a 32-byte hex scalar.
func ParsePrivateKeyHex(s string) (*btcec.PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key: want %d bytes, got %d", btcec.PrivKeyBytesLen, len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("private key: zero scalar")
	}
	return priv, nil
}

// ParsePublicKeyHex decodes a compressed or uncompressed SEC1 public key.
func ParsePublicKeyHex(s string) (*btcec.PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	return pub, nil
}

// PrivateKeyHex encodes priv as 32 hex bytes.
func PrivateKeyHex(priv *btcec.PrivateKey) string {
	return hex.EncodeToString(priv.Serialize())
}

// PublicKeyHex encodes pub in 33-byte compressed form.
func PublicKeyHex(pub *btcec.PublicKey) string {
	return hex.EncodeToString(pub.SerializeCompressed())
}
