package program

import (
	"errors"
	"fmt"
)

// ProgramError is the result code a program hands back to the host. Builtin
// kinds occupy the upper 32 bits, custom program codes the lower 32 bits.
//
// Reference: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/program_error.rs
type ProgramError uint64

const (
	Success uint64 = 0

	builtinShift = 32
)

func builtin(n uint64) ProgramError {
	return ProgramError(n << builtinShift)
}

var (
	ErrCustomZero                    = builtin(1)
	ErrInvalidArgument               = builtin(2)
	ErrInvalidInstructionData        = builtin(3)
	ErrInvalidAccountData            = builtin(4)
	ErrAccountDataTooSmall           = builtin(5)
	ErrInsufficientFunds             = builtin(6)
	ErrIncorrectProgramID            = builtin(7)
	ErrMissingRequiredSignature      = builtin(8)
	ErrAccountAlreadyInitialized     = builtin(9)
	ErrUninitializedAccount          = builtin(10)
	ErrNotEnoughAccountKeys          = builtin(11)
	ErrAccountBorrowFailed           = builtin(12)
	ErrMaxSeedLengthExceeded         = builtin(13)
	ErrInvalidSeeds                  = builtin(14)
	ErrBorshIoError                  = builtin(15)
	ErrAccountNotRentExempt          = builtin(16)
	ErrUnsupportedSysvar             = builtin(17)
	ErrIllegalOwner                  = builtin(18)
	ErrMaxAccountsDataAllocsExceeded = builtin(19)
	ErrInvalidRealloc                = builtin(20)
	ErrMaxInstructionTraceLength     = builtin(21)
	ErrBuiltinMustConsumeCompute     = builtin(22)
	ErrInvalidAccountOwner           = builtin(23)
	ErrArithmeticOverflow            = builtin(24)
	ErrImmutable                     = builtin(25)
	ErrIncorrectAuthority            = builtin(26)
)

var programErrorNames = map[ProgramError]string{
	ErrCustomZero:                    "Custom(0)",
	ErrInvalidArgument:               "InvalidArgument",
	ErrInvalidInstructionData:        "InvalidInstructionData",
	ErrInvalidAccountData:            "InvalidAccountData",
	ErrAccountDataTooSmall:           "AccountDataTooSmall",
	ErrInsufficientFunds:             "InsufficientFunds",
	ErrIncorrectProgramID:            "IncorrectProgramId",
	ErrMissingRequiredSignature:      "MissingRequiredSignature",
	ErrAccountAlreadyInitialized:     "AccountAlreadyInitialized",
	ErrUninitializedAccount:          "UninitializedAccount",
	ErrNotEnoughAccountKeys:          "NotEnoughAccountKeys",
	ErrAccountBorrowFailed:           "AccountBorrowFailed",
	ErrMaxSeedLengthExceeded:         "MaxSeedLengthExceeded",
	ErrInvalidSeeds:                  "InvalidSeeds",
	ErrBorshIoError:                  "BorshIoError",
	ErrAccountNotRentExempt:          "AccountNotRentExempt",
	ErrUnsupportedSysvar:             "UnsupportedSysvar",
	ErrIllegalOwner:                  "IllegalOwner",
	ErrMaxAccountsDataAllocsExceeded: "MaxAccountsDataAllocationsExceeded",
	ErrInvalidRealloc:                "InvalidRealloc",
	ErrMaxInstructionTraceLength:     "MaxInstructionTraceLengthExceeded",
	ErrBuiltinMustConsumeCompute:     "BuiltinProgramsMustConsumeComputeUnits",
	ErrInvalidAccountOwner:           "InvalidAccountOwner",
	ErrArithmeticOverflow:            "ArithmeticOverflow",
	ErrImmutable:                     "Immutable",
	ErrIncorrectAuthority:            "IncorrectAuthority",
}

// CustomError returns the ProgramError for a program defined error code.
func CustomError(code uint32) ProgramError {
	if code == 0 {
		return ErrCustomZero
	}
	return ProgramError(code)
}

func (e ProgramError) Error() string {
	if name, ok := programErrorNames[e]; ok {
		return name
	}
	if uint64(e)>>builtinShift == 0 {
		return fmt.Sprintf("Custom(%d)", uint64(e))
	}
	return fmt.Sprintf("UnknownProgramError(%#x)", uint64(e))
}

// Name is the host's string key for the error, as surfaced in transaction
// results.
func (e ProgramError) Name() string {
	if name, ok := programErrorNames[e]; ok {
		return name
	}
	return "Custom"
}

// IsCustom reports whether the error carries a program defined code.
func (e ProgramError) IsCustom() bool {
	return e == ErrCustomZero || (e != 0 && uint64(e)>>builtinShift == 0)
}

// ToResult converts a handler error into the u64 handed back to the host.
// Errors that aren't a ProgramError are reported as InvalidArgument.
func ToResult(err error) uint64 {
	if err == nil {
		return Success
	}

	var pe ProgramError
	if errors.As(err, &pe) {
		return uint64(pe)
	}
	return uint64(ErrInvalidArgument)
}

// FromResult converts a result code returned by a program or syscall back into
// an error.
func FromResult(code uint64) error {
	if code == Success {
		return nil
	}
	return ProgramError(code)
}
