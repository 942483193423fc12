package compute_budget

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/counter-program/pkg/solana"
)

// ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

const (
	// nolint:varcheck,deadcode,unused
	commandRequestUnits uint8 = iota
	// nolint:varcheck,deadcode,unused
	commandRequestHeapFrame
	commandSetComputeUnitLimit
	commandSetComputeUnitPrice
)

var ErrDuplicateInstruction = errors.New("duplicate compute budget instruction")

func SetComputeUnitLimit(computeUnitLimit uint32) solana.Instruction {
	data := make([]byte, 1+4)
	data[0] = commandSetComputeUnitLimit
	binary.LittleEndian.PutUint32(data[1:], computeUnitLimit)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
	)
}

func SetComputeUnitPrice(computeUnitPrice uint64) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = commandSetComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], computeUnitPrice)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
	)
}

func ParseSetComputeUnitLimitIxnData(data []byte) (uint32, error) {
	if len(data) != 5 {
		return 0, errors.New("invalid length")
	}

	if data[0] != commandSetComputeUnitLimit {
		return 0, errors.New("invalid instruction")
	}

	return binary.LittleEndian.Uint32(data[1:]), nil
}

func ParseSetComputeUnitPriceIxnData(data []byte) (uint64, error) {
	if len(data) != 9 {
		return 0, errors.New("invalid length")
	}

	if data[0] != commandSetComputeUnitPrice {
		return 0, errors.New("invalid instruction")
	}

	return binary.LittleEndian.Uint64(data[1:]), nil
}

// Budget is the compute budget a transaction requested. Nil fields were not
// requested and fall back to the executor's defaults.
type Budget struct {
	UnitLimit *uint32
	UnitPrice *uint64
}

// ParseBudget collects the compute budget instructions of m. Each setting may
// be requested at most once.
//
// On failure, the index of the offending instruction is returned alongside
// the error.
func ParseBudget(m solana.Message) (Budget, int, error) {
	var budget Budget

	for i, ix := range m.Instructions {
		if int(ix.ProgramIndex) >= len(m.Accounts) || !bytes.Equal(m.Accounts[ix.ProgramIndex], ProgramKey) {
			continue
		}

		if len(ix.Data) == 0 {
			return budget, i, solana.ErrIncorrectInstruction
		}

		switch ix.Data[0] {
		case commandSetComputeUnitLimit:
			if budget.UnitLimit != nil {
				return budget, i, ErrDuplicateInstruction
			}

			limit, err := ParseSetComputeUnitLimitIxnData(ix.Data)
			if err != nil {
				return budget, i, err
			}
			budget.UnitLimit = &limit
		case commandSetComputeUnitPrice:
			if budget.UnitPrice != nil {
				return budget, i, ErrDuplicateInstruction
			}

			price, err := ParseSetComputeUnitPriceIxnData(ix.Data)
			if err != nil {
				return budget, i, err
			}
			budget.UnitPrice = &price
		default:
			return budget, i, solana.ErrIncorrectInstruction
		}
	}

	return budget, 0, nil
}
