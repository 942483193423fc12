package counter

import (
	"crypto/ed25519"

	"github.com/code-payments/counter-program/pkg/solana"
	"github.com/code-payments/counter-program/pkg/solana/program"
	"github.com/code-payments/counter-program/pkg/solana/system"
)

type Instruction uint8

const (
	InstructionInitialize Instruction = iota
	InstructionIncrement
)

func (i Instruction) String() string {
	switch i {
	case InstructionInitialize:
		return "initialize"
	case InstructionIncrement:
		return "increment"
	default:
		return "unknown"
	}
}

// DecodeInstruction selects the operation from the low bit of the first data
// byte. Remaining bytes are reserved and ignored.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return 0, program.ErrInvalidInstructionData
	}
	return Instruction(data[0] & 1), nil
}

// NewInitializeInstruction creates the counter account at counter, funded by
// payer. Both must sign the transaction.
//
// Account references
//  0. [WRITE, SIGNER] payer
//  1. [WRITE, SIGNER] counter
//  2. [] system program
func NewInitializeInstruction(payer, counter ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(InstructionInitialize)},
		solana.NewAccountMeta(payer, true),
		solana.NewAccountMeta(counter, true),
		solana.NewReadonlyAccountMeta(system.SystemAccount, false),
	)
}

// NewIncrementInstruction adds one to the counter.
//
// Account references
//  0. [WRITE] counter
//  1. [SIGNER] payer
func NewIncrementInstruction(counter, payer ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(InstructionIncrement)},
		solana.NewAccountMeta(counter, false),
		solana.NewReadonlyAccountMeta(payer, true),
	)
}
