package txbuilder

import (
	"fmt"

	"github.com/goccy/go-json"
)

// AccountMeta references an account an instruction touches.
type AccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// Instruction is a single program invocation. The data payload is opaque
// to the builder; venue encoders produce it.
type Instruction struct {
	ProgramID string        `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// Transaction is an unsigned transaction anchored to a recent blockhash.
// Serialization is handled by the chain transport; the builder only
// guarantees a deterministic message for signing.
type Transaction struct {
	RecentBlockhash string        `json:"recent_blockhash"`
	FeePayer        string        `json:"fee_payer"`
	Instructions    []Instruction `json:"instructions"`
	Signature       []byte        `json:"signature,omitempty"`
}

// Message returns the deterministic byte form of the transaction that
// gets signed. Must be called before attaching a signature.
func (t *Transaction) Message() ([]byte, error) {
	unsigned := Transaction{
		RecentBlockhash: t.RecentBlockhash,
		FeePayer:        t.FeePayer,
		Instructions:    t.Instructions,
	}

	msg, err := json.Marshal(&unsigned)
	if err != nil {
		return nil, fmt.Errorf("marshal transaction message: %w", err)
	}

	return msg, nil
}

// Serialize returns the full wire form including the signature.
func (t *Transaction) Serialize() ([]byte, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}

	return raw, nil
}
