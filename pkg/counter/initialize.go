package counter

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/counter-program/pkg/solana/program"
	"github.com/code-payments/counter-program/pkg/solana/system"
)

// initialize creates the counter account and sets it to zero.
//
// Accounts: payer, counter, system program.
func initialize(sys program.Syscalls, programID ed25519.PublicKey, accounts []program.AccountInfo) error {
	// Checking the last account bounds the ones before it.
	systemProgram, err := program.AccountAt(accounts, 2)
	if err != nil {
		return err
	}
	payer, counter := &accounts[0], &accounts[1]

	if !payer.IsSigner() {
		return program.ErrMissingRequiredSignature
	}

	if bytes.Equal(counter.Key(), system.ProgramKey[:]) {
		return program.ErrInvalidAccountData
	}
	if !bytes.Equal(systemProgram.Key(), system.ProgramKey[:]) {
		return program.ErrIncorrectProgramID
	}

	// Re-initializing would silently reset the count.
	if counter.IsOwnedBy(programID) {
		return program.ErrAccountAlreadyInitialized
	}

	if err := createCounterAccount(sys, payer, counter, programID); err != nil {
		return err
	}

	return WriteCount(counter, 0)
}
