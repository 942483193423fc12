package system

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/counter-program/pkg/solana"
	solana_binary "github.com/code-payments/counter-program/pkg/solana/binary"
)

// ProgramKey is the system program address (all zeros).
var ProgramKey [32]byte

const (
	CommandCreateAccount uint32 = iota
	CommandAssign
	CommandTransfer
	// nolint:varcheck,deadcode,unused
	commandCreateAccountWithSeed
	// nolint:varcheck,deadcode,unused
	commandAdvanceNonceAccount
	// nolint:varcheck,deadcode,unused
	commandWithdrawNonceAccount
	// nolint:varcheck,deadcode,unused
	commandInitializeNonceAccount
	// nolint:varcheck,deadcode,unused
	commandAuthorizeNonceAccount
	CommandAllocate
)

// Custom error codes returned by the system program.
//
// Reference: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/system_instruction.rs#L20
const (
	ErrorAccountAlreadyInUse uint32 = iota
	ErrorResultWithNegativeLamports
	ErrorInvalidProgramId
	ErrorInvalidAccountDataLength
)

const (
	CommandSize = 4

	// CreateAccountDataSize is the encoded size of a CreateAccount instruction:
	// command, lamports, space and owner.
	CreateAccountDataSize = CommandSize + 2*8 + ed25519.PublicKeySize

	TransferDataSize = CommandSize + 8
	AssignDataSize   = CommandSize + ed25519.PublicKeySize
	AllocateDataSize = CommandSize + 8
)

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	//
	// CreateAccount {
	//   // Number of lamports to transfer to the new account
	//   lamports: u64,
	//   // Number of bytes of memory to allocate
	//   space: u64,
	//
	//   //Address of program that will own the new account
	//   owner: Pubkey,
	// }
	//
	data := make([]byte, CreateAccountDataSize)
	binary.LittleEndian.PutUint32(data, CommandCreateAccount)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	binary.LittleEndian.PutUint64(data[4+8:], size)
	copy(data[4+2*8:], owner)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

// Transfer returns an instruction moving lamports between two system owned
// accounts.
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE] Recipient account
	data := make([]byte, TransferDataSize)
	binary.LittleEndian.PutUint32(data, CommandTransfer)
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

// Assign returns an instruction assigning account to owner.
func Assign(account, owner ed25519.PublicKey) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Assigned account public key
	data := make([]byte, AssignDataSize)
	binary.LittleEndian.PutUint32(data, CommandAssign)
	copy(data[4:], owner)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(account, true),
	)
}

// Allocate returns an instruction allocating size bytes for account.
func Allocate(account ed25519.PublicKey, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] New account
	data := make([]byte, AllocateDataSize)
	binary.LittleEndian.PutUint32(data, CommandAllocate)
	binary.LittleEndian.PutUint64(data[4:], size)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(account, true),
	)
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecompileCreateAccount(m solana.Message, index int) (*DecompiledCreateAccount, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey[:]) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	v, err := ParseCreateAccountData(i.Data)
	if err != nil {
		return nil, err
	}
	v.Funder = m.Accounts[i.Accounts[0]]
	v.Address = m.Accounts[i.Accounts[1]]

	return v, nil
}

// ParseCreateAccountData decodes the data of a CreateAccount instruction.
// Funder and Address are left unset.
func ParseCreateAccountData(data []byte) (*DecompiledCreateAccount, error) {
	if err := checkCommand(data, CommandCreateAccount, CreateAccountDataSize); err != nil {
		return nil, err
	}

	v := &DecompiledCreateAccount{}
	offset := CommandSize
	solana_binary.GetUint64(data[offset:], &v.Lamports, &offset)
	solana_binary.GetUint64(data[offset:], &v.Size, &offset)
	solana_binary.GetKey32(data[offset:], &v.Owner, &offset)

	return v, nil
}

// GetCommand returns the command an encoded system instruction carries.
func GetCommand(data []byte) (uint32, error) {
	if len(data) < CommandSize {
		return 0, solana.ErrIncorrectInstruction
	}
	return binary.LittleEndian.Uint32(data), nil
}

// ParseTransferData decodes the lamports of a Transfer instruction.
func ParseTransferData(data []byte) (uint64, error) {
	if err := checkCommand(data, CommandTransfer, TransferDataSize); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data[CommandSize:]), nil
}

// ParseAssignData decodes the new owner of an Assign instruction.
func ParseAssignData(data []byte) (ed25519.PublicKey, error) {
	if err := checkCommand(data, CommandAssign, AssignDataSize); err != nil {
		return nil, err
	}

	var owner ed25519.PublicKey
	offset := CommandSize
	solana_binary.GetKey32(data[offset:], &owner, &offset)
	return owner, nil
}

// ParseAllocateData decodes the space of an Allocate instruction.
func ParseAllocateData(data []byte) (uint64, error) {
	if err := checkCommand(data, CommandAllocate, AllocateDataSize); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data[CommandSize:]), nil
}

func checkCommand(data []byte, command uint32, size int) error {
	actual, err := GetCommand(data)
	if err != nil {
		return err
	}
	if actual != command {
		return solana.ErrIncorrectInstruction
	}
	if len(data) != size {
		return errors.Errorf("invalid instruction data size: %d", len(data))
	}
	return nil
}
