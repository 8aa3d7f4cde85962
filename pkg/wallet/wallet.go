package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// Wallet holds the signing keypair for the trading wallet. It exposes a
// signing capability only; key storage beyond this facade is out of scope.
type Wallet struct {
	priv   ed25519.PrivateKey
	pubkey string
	logger *zap.Logger
}

// NewFromKey creates a wallet from an encoded private key. Accepts either a
// base58-encoded 64-byte secret key (the common Solana export format) or a
// hex-encoded 32-byte seed.
func NewFromKey(encoded string, logger *zap.Logger) (*Wallet, error) {
	if encoded == "" {
		return nil, errors.New("private key cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	priv, err := decodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("derive public key")
	}

	w := &Wallet{
		priv:   priv,
		pubkey: base58.Encode(pub),
		logger: logger,
	}

	logger.Info("wallet-loaded", zap.String("pubkey", w.pubkey))

	return w, nil
}

func decodeKey(encoded string) (ed25519.PrivateKey, error) {
	if raw, err := base58.Decode(encoded); err == nil {
		switch len(raw) {
		case ed25519.PrivateKeySize:
			return ed25519.PrivateKey(raw), nil
		case ed25519.SeedSize:
			return ed25519.NewKeyFromSeed(raw), nil
		}
	}

	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, errors.New("key is neither valid base58 nor hex")
	}

	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	}

	return nil, fmt.Errorf("unexpected key length %d", len(raw))
}

// Pubkey returns the base58-encoded public key of the wallet.
func (w *Wallet) Pubkey() string {
	return w.pubkey
}

// Sign signs a serialized transaction message and returns the raw signature.
func (w *Wallet) Sign(message []byte) []byte {
	SigningOpsTotal.Inc()
	return ed25519.Sign(w.priv, message)
}

// SignBase58 signs a message and returns the base58-encoded signature,
// which doubles as the transaction identifier on chain.
func (w *Wallet) SignBase58(message []byte) string {
	return base58.Encode(w.Sign(message))
}
