package runtime

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"

	"github.com/mr-tron/base58"

	"github.com/code-payments/counter-program/pkg/ledger"
	"github.com/code-payments/counter-program/pkg/solana/program"
	"github.com/code-payments/counter-program/pkg/solana/system"
)

// account is the working state of one transaction account. Instructions
// mutate it in place and it's only written back to the ledger once the whole
// transaction succeeds.
type account struct {
	key        ed25519.PublicKey
	owner      ed25519.PublicKey
	lamports   uint64
	data       []byte
	executable bool
	rentEpoch  uint64

	// record is the ledger state the account was loaded from. It's nil for
	// program accounts and for addresses that hold no state yet.
	record *ledger.Record
}

func newAccount(key ed25519.PublicKey, record *ledger.Record) (*account, error) {
	a := &account{
		key:    key,
		owner:  system.ProgramKey[:],
		record: record,
	}
	if record == nil {
		return a, nil
	}

	owner, err := record.GetOwner()
	if err != nil {
		return nil, err
	}

	a.owner = owner
	a.lamports = record.Lamports
	a.data = append([]byte{}, record.Data...)
	a.executable = record.Executable
	a.rentEpoch = record.RentEpoch
	return a, nil
}

// changed reports whether the account differs from the state it was loaded
// with.
func (a *account) changed() bool {
	if a.record == nil {
		return a.lamports != 0 || len(a.data) != 0 || !bytes.Equal(a.owner, system.ProgramKey[:])
	}
	return a.lamports != a.record.Lamports ||
		!bytes.Equal(a.data, a.record.Data) ||
		a.executable != a.record.Executable ||
		base58.Encode(a.owner) != a.record.Owner
}

// wasRentPaying reports whether the account was loaded funded but below the
// rent exempt minimum for its size.
func (a *account) wasRentPaying(rent program.Rent) bool {
	if a.record == nil || a.record.Lamports == 0 {
		return false
	}
	return a.record.Lamports < rent.MinimumBalance(uint64(len(a.record.Data)))
}

// toRecord returns the ledger record carrying the account's current state,
// versioned against the state it was loaded from.
func (a *account) toRecord(slot uint64) *ledger.Record {
	record := &ledger.Record{
		Address: base58.Encode(a.key),
	}
	if a.record != nil {
		a.record.CopyTo(record)
	}

	record.Owner = base58.Encode(a.owner)
	record.Lamports = a.lamports
	record.Data = append([]byte{}, a.data...)
	record.Executable = a.executable
	record.RentEpoch = a.rentEpoch
	record.Slot = slot
	return record
}

// snapshot is the state of an account when a program was invoked, used to
// check the changes the program made.
type snapshot struct {
	owner      ed25519.PublicKey
	lamports   uint64
	data       []byte
	executable bool
}

func (a *account) snapshot() snapshot {
	return snapshot{
		owner:      append(ed25519.PublicKey{}, a.owner...),
		lamports:   a.lamports,
		data:       append([]byte{}, a.data...),
		executable: a.executable,
	}
}

// verifyChange checks the transition of one account from before to a, made by
// programID with the given write privilege.
//
// Reference: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/program-runtime/src/pre_account.rs#L44
func verifyChange(programID ed25519.PublicKey, before snapshot, a *account, writable bool) error {
	ownedByProgram := bytes.Equal(before.owner, programID)

	if !bytes.Equal(before.owner, a.owner) {
		if !writable || before.executable || !ownedByProgram || !isZeroed(a.data) {
			return errModifiedProgramID
		}
	}

	if a.lamports != before.lamports {
		if !ownedByProgram && a.lamports < before.lamports {
			return errExternalAccountLamportSpend
		}
		if !writable {
			return errReadonlyLamportChange
		}
		if before.executable {
			return errExecutableLamportChange
		}
	}

	if len(a.data) != len(before.data) && (!writable || !ownedByProgram) {
		return errAccountDataSizeChanged
	}

	if !bytes.Equal(a.data, before.data) {
		switch {
		case before.executable:
			return errExecutableDataModified
		case !writable:
			return errReadonlyDataModified
		case !ownedByProgram:
			return errExternalAccountDataModified
		}
	}

	if a.executable != before.executable {
		return errExecutableModified
	}

	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// lamportSum is an overflow free sum of account balances.
type lamportSum struct {
	hi, lo uint64
}

func (s *lamportSum) add(v uint64) {
	var carry uint64
	s.lo, carry = bits.Add64(s.lo, v, 0)
	s.hi += carry
}
