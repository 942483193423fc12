package program

import (
	"encoding/binary"
	"errors"
	"math"
)

// Rent mirrors the rent sysvar.
//
// Reference: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/rent.rs
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

const (
	// AccountStorageOverhead is the per account byte overhead charged rent on
	// top of the data buffer.
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
	DefaultBurnPercent         = 50
)

// DefaultRent is the rent configuration of a freshly created cluster.
var DefaultRent = Rent{
	LamportsPerByteYear: DefaultLamportsPerByteYear,
	ExemptionThreshold:  DefaultExemptionThreshold,
	BurnPercent:         DefaultBurnPercent,
}

// MinimumBalance returns the lamports an account holding size bytes needs to
// be rent exempt.
func (r Rent) MinimumBalance(size uint64) uint64 {
	bytes := AccountStorageOverhead + size
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// RentSize is the size of the serialized rent sysvar.
const RentSize = 17

var errInvalidRentSize = errors.New("invalid rent sysvar size")

// Marshal serializes r in the rent sysvar account layout.
func (r Rent) Marshal() []byte {
	b := make([]byte, RentSize)
	binary.LittleEndian.PutUint64(b, r.LamportsPerByteYear)
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(r.ExemptionThreshold))
	b[16] = r.BurnPercent
	return b
}

// UnmarshalRent parses a rent sysvar account's data.
func UnmarshalRent(b []byte) (Rent, error) {
	if len(b) != RentSize {
		return Rent{}, errInvalidRentSize
	}
	return Rent{
		LamportsPerByteYear: binary.LittleEndian.Uint64(b),
		ExemptionThreshold:  math.Float64frombits(binary.LittleEndian.Uint64(b[8:])),
		BurnPercent:         b[16],
	}, nil
}

// InstructionC is the C-ABI instruction passed to the invoke syscall. Each
// slice field stands in for the (address, length) pair of the C struct.
//
// Reference: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/bpf/c/inc/sol/cpi.h
type InstructionC struct {
	ProgramID *[PubkeySize]byte
	Accounts  []AccountMetaC
	Data      []byte
}

// AccountMetaC is the C-ABI account meta.
type AccountMetaC struct {
	Pubkey     *[PubkeySize]byte
	IsWritable bool
	IsSigner   bool
}

// AccountInfoC is the C-ABI account info. Key, Lamports, Data and Owner
// reference the caller's input region.
type AccountInfoC struct {
	Key        *[PubkeySize]byte
	Lamports   *[8]byte
	DataLen    uint64
	Data       []byte
	Owner      *[PubkeySize]byte
	RentEpoch  uint64
	IsSigner   bool
	IsWritable bool
	Executable bool
}

// Syscalls is the set of host traps available to a program.
type Syscalls interface {
	// InvokeSignedC executes ix against another program. infos must include
	// every account referenced by ix. signerSeeds is a list of seed lists, one
	// per program derived signer. The result is a host result code.
	InvokeSignedC(ix *InstructionC, infos []AccountInfoC, signerSeeds [][][]byte) uint64

	// GetRentSysvar copies the rent sysvar into rent.
	GetRentSysvar(rent *Rent) uint64

	// Log writes a program log message.
	Log(message string)
}
