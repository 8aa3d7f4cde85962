package trader

import (
	"context"
	"fmt"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/types"
)

// MintValidator rejects tokens whose mint address is structurally
// invalid: not base58, wrong key length, or the base mint itself.
type MintValidator struct {
	logger   *zap.Logger
	baseMint string
}

// NewMintValidator creates a mint address validator.
func NewMintValidator(baseMint string, logger *zap.Logger) (*MintValidator, error) {
	if baseMint == "" {
		return nil, fmt.Errorf("base mint cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &MintValidator{logger: logger, baseMint: baseMint}, nil
}

// Validate checks the structural validity of a token mint.
func (v *MintValidator) Validate(ctx context.Context, tokenMint string) (*types.TokenValidationResult, error) {
	result := &types.TokenValidationResult{Token: tokenMint}

	if tokenMint == v.baseMint {
		result.Reason = "token is the base mint"
		return result, nil
	}

	decoded, err := base58.Decode(tokenMint)
	if err != nil {
		result.Reason = "mint is not valid base58"
		return result, nil
	}
	if len(decoded) != 32 {
		result.Reason = fmt.Sprintf("mint decodes to %d bytes, want 32", len(decoded))
		return result, nil
	}

	result.IsValid = true
	return result, nil
}

// DenylistRiskChecker fails tokens on a configured denylist and passes
// everything else.
type DenylistRiskChecker struct {
	logger   *zap.Logger
	denylist map[string]struct{}
}

// NewDenylistRiskChecker creates a denylist-backed risk checker. An
// empty denylist passes every token.
func NewDenylistRiskChecker(denied []string, logger *zap.Logger) (*DenylistRiskChecker, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	denylist := make(map[string]struct{}, len(denied))
	for _, mint := range denied {
		denylist[mint] = struct{}{}
	}

	return &DenylistRiskChecker{logger: logger, denylist: denylist}, nil
}

// Check reports whether the token passes the denylist.
func (c *DenylistRiskChecker) Check(ctx context.Context, tokenMint string) (*types.RiskCheckResult, error) {
	if _, denied := c.denylist[tokenMint]; denied {
		c.logger.Warn("token-on-denylist", zap.String("mint", tokenMint))
		return &types.RiskCheckResult{Reason: "token is on the denylist"}, nil
	}

	return &types.RiskCheckResult{Passed: true}, nil
}
