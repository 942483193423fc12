package runtime

import (
	"bytes"
	"math"

	"github.com/mr-tron/base58"

	"github.com/code-payments/counter-program/pkg/solana/memo"
	"github.com/code-payments/counter-program/pkg/solana/program"
	"github.com/code-payments/counter-program/pkg/solana/system"
)

// processSystem is the native system program. It creates accounts, moves
// lamports between system owned accounts and hands accounts over to other
// programs.
//
// Reference: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/programs/system/src/system_processor.rs
func processSystem(e *executor, f *frame, data []byte) error {
	command, err := system.GetCommand(data)
	if err != nil {
		return program.ErrInvalidInstructionData
	}

	switch command {
	case system.CommandCreateAccount:
		args, err := system.ParseCreateAccountData(data)
		if err != nil {
			return program.ErrInvalidInstructionData
		}

		from, fromMeta, err := f.at(e, 0)
		if err != nil {
			return err
		}
		to, toMeta, err := f.at(e, 1)
		if err != nil {
			return err
		}

		if to.lamports > 0 {
			e.logf("Create Account: account %s already in use", base58.Encode(to.key))
			return program.CustomError(system.ErrorAccountAlreadyInUse)
		}
		if err := allocate(e, to, toMeta, args.Size); err != nil {
			return err
		}
		if err := assign(e, to, toMeta, args.Owner); err != nil {
			return err
		}
		return transfer(e, from, fromMeta, to, args.Lamports)

	case system.CommandAssign:
		owner, err := system.ParseAssignData(data)
		if err != nil {
			return program.ErrInvalidInstructionData
		}

		a, meta, err := f.at(e, 0)
		if err != nil {
			return err
		}
		return assign(e, a, meta, owner)

	case system.CommandTransfer:
		lamports, err := system.ParseTransferData(data)
		if err != nil {
			return program.ErrInvalidInstructionData
		}

		from, fromMeta, err := f.at(e, 0)
		if err != nil {
			return err
		}
		to, _, err := f.at(e, 1)
		if err != nil {
			return err
		}
		return transfer(e, from, fromMeta, to, lamports)

	case system.CommandAllocate:
		space, err := system.ParseAllocateData(data)
		if err != nil {
			return program.ErrInvalidInstructionData
		}

		a, meta, err := f.at(e, 0)
		if err != nil {
			return err
		}
		return allocate(e, a, meta, space)

	default:
		return program.ErrInvalidInstructionData
	}
}

func allocate(e *executor, a *account, meta instructionAccount, space uint64) error {
	if !meta.signer {
		e.logf("Allocate: 'to' account %s must sign", base58.Encode(a.key))
		return program.ErrMissingRequiredSignature
	}

	if len(a.data) != 0 || !bytes.Equal(a.owner, system.ProgramKey[:]) {
		e.logf("Allocate: account %s already in use", base58.Encode(a.key))
		return program.CustomError(system.ErrorAccountAlreadyInUse)
	}

	if space > program.MaxPermittedDataLength {
		e.logf("Allocate: requested %d, max allowed %d", space, program.MaxPermittedDataLength)
		return program.CustomError(system.ErrorInvalidAccountDataLength)
	}

	a.data = make([]byte, space)
	return nil
}

func assign(e *executor, a *account, meta instructionAccount, owner []byte) error {
	if bytes.Equal(a.owner, owner) {
		return nil
	}

	if !meta.signer {
		e.logf("Assign: account %s must sign", base58.Encode(a.key))
		return program.ErrMissingRequiredSignature
	}

	a.owner = append([]byte{}, owner...)
	return nil
}

func transfer(e *executor, from *account, fromMeta instructionAccount, to *account, lamports uint64) error {
	if !fromMeta.signer {
		e.logf("Transfer: `from` account %s must sign", base58.Encode(from.key))
		return program.ErrMissingRequiredSignature
	}

	if len(from.data) != 0 {
		e.logf("Transfer: `from` must not carry data")
		return program.ErrInvalidArgument
	}

	if lamports > from.lamports {
		e.logf("Transfer: insufficient lamports %d, need %d", from.lamports, lamports)
		return program.CustomError(system.ErrorResultWithNegativeLamports)
	}

	if to.lamports > math.MaxUint64-lamports {
		return program.ErrArithmeticOverflow
	}

	from.lamports -= lamports
	to.lamports += lamports
	return nil
}

// processMemo is the native memo program. The memo must be valid UTF-8 and
// every account passed must have signed.
func processMemo(e *executor, f *frame, data []byte) error {
	for i := range f.accounts {
		a, meta, err := f.at(e, i)
		if err != nil {
			return err
		}
		if !meta.signer {
			e.logf("Missing a required signature: %s", base58.Encode(a.key))
			return program.ErrMissingRequiredSignature
		}
	}

	text, err := memo.Parse(data)
	if err != nil {
		e.logf("Invalid UTF-8")
		return program.ErrInvalidInstructionData
	}

	e.logf("Program log: Memo (len %d): %q", len(data), text)
	return nil
}

// processComputeBudget is the native compute budget program. Its instructions
// are applied before execution starts, so running one does nothing.
func processComputeBudget(_ *executor, _ *frame, _ []byte) error {
	return nil
}
