package counter

import (
	"crypto/ed25519"

	"github.com/code-payments/counter-program/pkg/solana/program"
)

// increment adds one to the counter, wrapping at 2^64.
//
// Accounts: counter, payer.
func increment(programID ed25519.PublicKey, accounts []program.AccountInfo) error {
	// Checking the last account bounds the ones before it.
	payer, err := program.AccountAt(accounts, 1)
	if err != nil {
		return err
	}
	counter := &accounts[0]

	if !counter.IsOwnedBy(programID) {
		return program.ErrIllegalOwner
	}
	if !payer.IsSigner() {
		return program.ErrMissingRequiredSignature
	}

	ref, err := counter.TryBorrowMutData()
	if err != nil {
		return err
	}
	defer ref.Release()

	value, err := UnmarshalCounterAccount(ref.Data())
	if err != nil {
		return err
	}

	return putCount(ref.Data(), value+1)
}
