package counter

import (
	"encoding/binary"

	"github.com/code-payments/counter-program/pkg/solana/program"
)

// CounterAccountSize is the data length of an initialized counter account: a
// little endian u64 with no discriminator.
const CounterAccountSize = 8

// ReadCount decodes the counter held by account.
func ReadCount(account *program.AccountInfo) (uint64, error) {
	ref, err := account.TryBorrowData()
	if err != nil {
		return 0, err
	}
	defer ref.Release()

	return UnmarshalCounterAccount(ref.Data())
}

// WriteCount overwrites the first eight bytes of account's data with value.
func WriteCount(account *program.AccountInfo, value uint64) error {
	ref, err := account.TryBorrowMutData()
	if err != nil {
		return err
	}
	defer ref.Release()

	return putCount(ref.Data(), value)
}

// UnmarshalCounterAccount decodes counter account data as stored on the
// ledger.
func UnmarshalCounterAccount(data []byte) (uint64, error) {
	if len(data) != CounterAccountSize {
		return 0, program.ErrUninitializedAccount
	}
	return binary.LittleEndian.Uint64(data), nil
}

func putCount(data []byte, value uint64) error {
	if len(data) < CounterAccountSize {
		return program.ErrAccountDataTooSmall
	}
	binary.LittleEndian.PutUint64(data, value)
	return nil
}
