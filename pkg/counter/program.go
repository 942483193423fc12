// Package counter implements an on-ledger program that keeps a single 8 byte
// counter per account.
package counter

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"

	"github.com/code-payments/counter-program/pkg/solana/program"
)

// ProgramKey is the address the counter program is deployed at.
var ProgramKey ed25519.PublicKey

func init() {
	var err error

	ProgramKey, err = base58.Decode("EgB1zom79Ek4LkvJjafbkUMTwDK9sZQKEzNnrNFHpHHz")
	if err != nil {
		panic(err)
	}
}

// Entrypoint is the program's host entrypoint over a serialized input region.
func Entrypoint(sys program.Syscalls, input []byte) uint64 {
	return program.Entrypoint(sys, input, ProcessInstruction)
}

// ProcessInstruction dispatches one instruction to its handler.
func ProcessInstruction(sys program.Syscalls, programID ed25519.PublicKey, accounts []program.AccountInfo, data []byte) error {
	ix, err := DecodeInstruction(data)
	if err != nil {
		return err
	}

	switch ix {
	case InstructionInitialize:
		return initialize(sys, programID, accounts)
	case InstructionIncrement:
		return increment(programID, accounts)
	default:
		return program.ErrInvalidInstructionData
	}
}
