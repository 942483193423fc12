package program

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
)

// SerializeAccount is the host side description of one account passed to a
// program.
type SerializeAccount struct {
	Key        ed25519.PublicKey
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	RentEpoch  uint64
	IsSigner   bool
	IsWritable bool
	Executable bool
}

// Serialize lays accounts, data and programID out as an input region. Accounts
// whose key already appeared earlier in the list are written as duplicates of
// the first occurrence.
//
// The returned offsets hold, per account, the start of the header that owns
// its state in the region. Duplicates report the offset of the first
// occurrence.
func Serialize(accounts []SerializeAccount, data []byte, programID ed25519.PublicKey) ([]byte, []uint64) {
	firstIndex := make([]int, len(accounts))

	size := uint64(8)
	for i, account := range accounts {
		firstIndex[i] = i
		for j := 0; j < i; j++ {
			if bytes.Equal(accounts[j].Key, account.Key) {
				firstIndex[i] = j
				break
			}
		}

		if firstIndex[i] != i {
			size += DuplicateSize
		} else {
			size += SerializedAccountSize(uint64(len(account.Data)))
		}
	}
	size += 8 + uint64(len(data)) + PubkeySize

	region := make([]byte, size)
	offsets := make([]uint64, len(accounts))

	var offset uint64
	binary.LittleEndian.PutUint64(region, uint64(len(accounts)))
	offset += 8

	for i, account := range accounts {
		if first := firstIndex[i]; first != i {
			region[offset] = byte(first)
			offsets[i] = offsets[first]
			offset += DuplicateSize
			continue
		}

		header := region[offset:]
		header[OffsetBorrowState] = NonDupMarker
		header[OffsetIsSigner] = boolByte(account.IsSigner)
		header[OffsetIsWritable] = boolByte(account.IsWritable)
		header[OffsetExecutable] = boolByte(account.Executable)
		binary.LittleEndian.PutUint32(header[OffsetOriginalDataLen:], uint32(len(account.Data)))
		copy(header[OffsetKey:], account.Key)
		copy(header[OffsetOwner:], account.Owner)
		binary.LittleEndian.PutUint64(header[OffsetLamports:], account.Lamports)
		binary.LittleEndian.PutUint64(header[OffsetDataLen:], uint64(len(account.Data)))
		copy(header[OffsetData:], account.Data)

		accountSize := SerializedAccountSize(uint64(len(account.Data)))
		binary.LittleEndian.PutUint64(header[accountSize-8:], account.RentEpoch)

		offsets[i] = offset
		offset += accountSize
	}

	binary.LittleEndian.PutUint64(region[offset:], uint64(len(data)))
	offset += 8
	offset += uint64(copy(region[offset:], data))
	copy(region[offset:], programID)

	return region, offsets
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// ReadSerializedAccount reads back the account whose header starts at offset,
// reflecting any changes a program made to the region. Data is copied out.
func ReadSerializedAccount(region []byte, offset uint64) SerializeAccount {
	header := region[offset:]
	dataLen := binary.LittleEndian.Uint64(header[OffsetDataLen:])
	originalLen := uint64(binary.LittleEndian.Uint32(header[OffsetOriginalDataLen:]))

	account := SerializeAccount{
		Key:        append(ed25519.PublicKey(nil), header[OffsetKey:OffsetKey+PubkeySize]...),
		Owner:      append(ed25519.PublicKey(nil), header[OffsetOwner:OffsetOwner+PubkeySize]...),
		Lamports:   binary.LittleEndian.Uint64(header[OffsetLamports:]),
		Data:       append([]byte{}, header[OffsetData:OffsetData+dataLen]...),
		RentEpoch:  binary.LittleEndian.Uint64(header[SerializedAccountSize(originalLen)-8:]),
		IsSigner:   header[OffsetIsSigner] != 0,
		IsWritable: header[OffsetIsWritable] != 0,
		Executable: header[OffsetExecutable] != 0,
	}
	return account
}
