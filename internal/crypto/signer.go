package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer signs hex-encoded 32-byte digests with a secp256k1 key and exposes
// the compressed public key the backend uses for signature verification.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	publicKey  string // compressed, hex
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	return &Signer{
		privateKey: pk,
		publicKey:  hex.EncodeToString(ethcrypto.CompressPubkey(&pk.PublicKey)),
	}, nil
}

// PublicKey returns the compressed public key as a hex string.
func (s *Signer) PublicKey() string {
	return s.publicKey
}

// SignDigest signs a hex-encoded 32-byte digest and returns the hex-encoded
// recoverable signature (r || s || v, 65 bytes).
func (s *Signer) SignDigest(digestHex string) (string, error) {
	digest, err := hex.DecodeString(strings.TrimPrefix(digestHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("crypto/signer: digest is not valid hex: %w", err)
	}
	if len(digest) != 32 {
		return "", fmt.Errorf("crypto/signer: digest must be 32 bytes, got %d", len(digest))
	}

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	return hex.EncodeToString(sig), nil
}
