package txbuilder

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

const systemProgramID = "11111111111111111111111111111111"

// BuildTransfer builds an unsigned base-token transfer for wallet
// maintenance (sweeping profits, topping up fee reserves). Not part of
// the trade hot path, so no priority fee is attached.
func (b *TransactionBuilder) BuildTransfer(ctx context.Context, destination string, lamports uint64) (*Transaction, error) {
	if destination == "" {
		return nil, fmt.Errorf("destination cannot be empty")
	}
	if lamports == 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}

	blockhash, err := b.blockhash.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest blockhash: %w", err)
	}

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2) // Transfer
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	tx := &Transaction{
		RecentBlockhash: blockhash,
		FeePayer:        b.payer,
		Instructions: []Instruction{{
			ProgramID: systemProgramID,
			Accounts: []AccountMeta{
				{Pubkey: b.payer, IsSigner: true, IsWritable: true},
				{Pubkey: destination, IsWritable: true},
			},
			Data: data,
		}},
	}

	b.logger.Info("transfer-built",
		zap.String("destination", destination),
		zap.Uint64("lamports", lamports))

	return tx, nil
}
