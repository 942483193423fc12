package program

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
)

// Borrow state kept in the first header byte once the entrypoint has parsed
// the region. The high bit marks an exclusive borrow, the low seven bits count
// shared borrows.
const (
	borrowNone      byte = 0x00
	borrowExclusive byte = 0x80
	borrowShared    byte = 0x7F
)

// AccountInfo is a view over one account header inside the host's input
// region. Nothing is copied: every accessor reads the region in place, and
// duplicate entries resolve to the same header, so they share borrow state.
type AccountInfo struct {
	raw []byte
}

// Key returns the account address.
func (a *AccountInfo) Key() ed25519.PublicKey {
	return ed25519.PublicKey(a.raw[OffsetKey : OffsetKey+PubkeySize : OffsetKey+PubkeySize])
}

// Owner returns the program that owns the account.
func (a *AccountInfo) Owner() ed25519.PublicKey {
	return ed25519.PublicKey(a.raw[OffsetOwner : OffsetOwner+PubkeySize : OffsetOwner+PubkeySize])
}

func (a *AccountInfo) Lamports() uint64 {
	return binary.LittleEndian.Uint64(a.raw[OffsetLamports:])
}

func (a *AccountInfo) DataLen() uint64 {
	return binary.LittleEndian.Uint64(a.raw[OffsetDataLen:])
}

func (a *AccountInfo) IsSigner() bool {
	return a.raw[OffsetIsSigner] != 0
}

func (a *AccountInfo) IsWritable() bool {
	return a.raw[OffsetIsWritable] != 0
}

func (a *AccountInfo) Executable() bool {
	return a.raw[OffsetExecutable] != 0
}

// IsOwnedBy reports whether the account's owner is program.
func (a *AccountInfo) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.Owner(), program)
}

// IsBorrowed reports whether any data borrow is outstanding.
func (a *AccountInfo) IsBorrowed() bool {
	return a.raw[OffsetBorrowState] != borrowNone
}

// TryBorrowData returns a shared view of the account data. It fails with
// ErrAccountBorrowFailed while an exclusive borrow is live.
func (a *AccountInfo) TryBorrowData() (DataRef, error) {
	state := &a.raw[OffsetBorrowState]
	if *state&borrowExclusive != 0 || *state&borrowShared == borrowShared {
		return DataRef{}, ErrAccountBorrowFailed
	}
	*state++

	return DataRef{state: state, data: a.data()}, nil
}

// TryBorrowMutData returns an exclusive view of the account data. It fails
// with ErrAccountBorrowFailed while any other borrow is live.
func (a *AccountInfo) TryBorrowMutData() (DataRefMut, error) {
	state := &a.raw[OffsetBorrowState]
	if *state != borrowNone {
		return DataRefMut{}, ErrAccountBorrowFailed
	}
	*state = borrowExclusive

	return DataRefMut{state: state, data: a.data()}, nil
}

// ToMetaC returns the C-ABI account meta for this account, carrying its
// current signer and writable flags.
func (a *AccountInfo) ToMetaC() AccountMetaC {
	return AccountMetaC{
		Pubkey:     (*[PubkeySize]byte)(a.raw[OffsetKey : OffsetKey+PubkeySize]),
		IsWritable: a.IsWritable(),
		IsSigner:   a.IsSigner(),
	}
}

// ToInfoC returns the C-ABI account info for this account. Pointer fields
// reference the input region directly.
func (a *AccountInfo) ToInfoC() AccountInfoC {
	return AccountInfoC{
		Key:        (*[PubkeySize]byte)(a.raw[OffsetKey : OffsetKey+PubkeySize]),
		Lamports:   (*[8]byte)(a.raw[OffsetLamports : OffsetLamports+8]),
		DataLen:    a.DataLen(),
		Data:       a.data(),
		Owner:      (*[PubkeySize]byte)(a.raw[OffsetOwner : OffsetOwner+PubkeySize]),
		RentEpoch:  a.rentEpoch(),
		IsSigner:   a.IsSigner(),
		IsWritable: a.IsWritable(),
		Executable: a.Executable(),
	}
}

func (a *AccountInfo) data() []byte {
	n := a.DataLen()
	return a.raw[OffsetData : OffsetData+n : OffsetData+n]
}

func (a *AccountInfo) rentEpoch() uint64 {
	originalLen := uint64(binary.LittleEndian.Uint32(a.raw[OffsetOriginalDataLen:]))
	offset := SerializedAccountSize(originalLen) - 8
	return binary.LittleEndian.Uint64(a.raw[offset:])
}

// DataRef is a live shared borrow of an account's data.
type DataRef struct {
	state *byte
	data  []byte
}

func (r DataRef) Data() []byte {
	return r.data
}

// Release ends the borrow. Releasing a zero DataRef is a no-op.
func (r DataRef) Release() {
	if r.state == nil {
		return
	}
	*r.state--
}

// DataRefMut is a live exclusive borrow of an account's data.
type DataRefMut struct {
	state *byte
	data  []byte
}

func (r DataRefMut) Data() []byte {
	return r.data
}

// Release ends the borrow. Releasing a zero DataRefMut is a no-op.
func (r DataRefMut) Release() {
	if r.state == nil {
		return
	}
	*r.state = borrowNone
}

// AccountAt returns the account at index i.
func AccountAt(accounts []AccountInfo, i int) (*AccountInfo, error) {
	if i < 0 || i >= len(accounts) {
		return nil, ErrNotEnoughAccountKeys
	}
	return &accounts[i], nil
}
