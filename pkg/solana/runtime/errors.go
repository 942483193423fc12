package runtime

import (
	"github.com/pkg/errors"

	"github.com/code-payments/counter-program/pkg/solana"
	"github.com/code-payments/counter-program/pkg/solana/program"
)

var (
	ErrProgramAlreadyRegistered = errors.New("program already registered")
	ErrSignatureNotFound        = errors.New("signature not found")
	ErrAirdropRateLimited       = errors.New("airdrop rate limited")
	ErrInvalidAirdrop           = errors.New("invalid airdrop amount")
)

// hostError is an instruction failure raised by the runtime itself rather
// than returned by a program.
type hostError solana.InstructionErrorKey

func (e hostError) Error() string {
	return string(e)
}

const (
	errUnsupportedProgramID        = hostError(solana.InstructionErrorUnsupportedProgramID)
	errCallDepth                   = hostError(solana.InstructionErrorCallDepth)
	errReentrancyNotAllowed        = hostError(solana.InstructionErrorReentrancyNotAllowed)
	errMissingAccount              = hostError(solana.InstructionErrorMissingAccount)
	errPrivilegeEscalation         = hostError(solana.InstructionErrorPrivilegeEscalation)
	errInvalidSeeds                = hostError(solana.InstructionErrorInvalidSeeds)
	errInvalidRealloc              = hostError(solana.InstructionErrorInvalidRealloc)
	errAccountBorrowFailed         = hostError(solana.InstructionErrorAccountBorrowFailed)
	errComputationalBudgetExceeded = hostError(solana.InstructionErrorComputationalBudgetExceeded)
	errProgramFailedToComplete     = hostError(solana.InstructionErrorProgramFailedToComplete)
	errModifiedProgramID           = hostError(solana.InstructionErrorModifiedProgramID)
	errExternalAccountLamportSpend = hostError(solana.InstructionErrorExternalAccountLamportSpend)
	errExternalAccountDataModified = hostError(solana.InstructionErrorExternalAccountDataModified)
	errReadonlyLamportChange       = hostError(solana.InstructionErrorReadonlyLamportChange)
	errReadonlyDataModified        = hostError(solana.InstructionErrorReadonlyDataModified)
	errExecutableModified          = hostError(solana.InstructionErrorExecutableModified)
	errExecutableLamportChange     = hostError(solana.InstructionErrorExecutableLamportChange)
	errExecutableDataModified      = hostError(solana.InstructionErrorExecutableDataModified)
	errAccountDataSizeChanged      = hostError(solana.InstructionErrorAccountDataSizeChanged)
	errUnbalancedInstruction       = hostError(solana.InstructionErrorUnbalancedInstruction)
)

// abort unwinds a running program. It's raised with panic from host calls that
// must not return to the program, and recovered once per top level
// instruction.
type abort struct {
	err error
}

// toInstructionError converts a failed instruction's error into the form
// reported in transaction results.
func toInstructionError(index int, err error) *solana.InstructionError {
	var pe program.ProgramError
	var he hostError

	switch {
	case errors.As(err, &pe):
		switch {
		case pe == program.ErrCustomZero:
			return &solana.InstructionError{Index: index, Err: solana.CustomError(0)}
		case pe.IsCustom():
			return &solana.InstructionError{Index: index, Err: solana.CustomError(uint32(pe))}
		default:
			return &solana.InstructionError{Index: index, Err: errors.New(pe.Name())}
		}
	case errors.As(err, &he):
		return &solana.InstructionError{Index: index, Err: errors.New(string(he))}
	default:
		return &solana.InstructionError{Index: index, Err: errors.New(string(solana.InstructionErrorGenericError))}
	}
}

func transactionError(index int, err error) *solana.TransactionError {
	txErr, convErr := solana.TransactionErrorFromInstructionError(toInstructionError(index, err))
	if convErr != nil {
		return solana.NewTransactionError(solana.TransactionErrorInstructionError)
	}
	return txErr
}
