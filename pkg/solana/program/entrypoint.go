package program

import (
	"crypto/ed25519"
	"encoding/binary"
)

// ProcessFunc is a program's instruction processor.
type ProcessFunc func(sys Syscalls, programID ed25519.PublicKey, accounts []AccountInfo, data []byte) error

// Entrypoint parses the input region into views held in a fixed array and
// runs process against them. The returned value is the host result code.
func Entrypoint(sys Syscalls, input []byte, process ProcessFunc) uint64 {
	var accounts [MaxAccounts]AccountInfo

	n, data, programID, err := Deserialize(input, &accounts)
	if err != nil {
		return ToResult(err)
	}

	return ToResult(process(sys, programID, accounts[:n], data))
}

// Deserialize parses the host's input region. Account views are written into
// accounts; the number of views, the instruction data and the program id are
// returned as slices of input.
//
// Every non duplicate header has its marker byte reset to the unborrowed
// state, so the region must not be parsed twice.
func Deserialize(input []byte, accounts *[MaxAccounts]AccountInfo) (int, []byte, ed25519.PublicKey, error) {
	var offset uint64
	total := uint64(len(input))

	if total < 8 {
		return 0, nil, nil, ErrInvalidArgument
	}
	count := binary.LittleEndian.Uint64(input)
	offset += 8

	var n int
	for i := uint64(0); i < count; i++ {
		if offset >= total {
			return 0, nil, nil, ErrInvalidArgument
		}

		marker := input[offset]
		if marker != NonDupMarker {
			if offset+DuplicateSize > total || uint64(marker) >= i {
				return 0, nil, nil, ErrInvalidArgument
			}
			if i < MaxAccounts {
				accounts[i] = accounts[marker]
				n++
			}
			offset += DuplicateSize
			continue
		}

		if offset+AccountHeaderSize > total {
			return 0, nil, nil, ErrInvalidArgument
		}
		header := input[offset:]

		dataLen := binary.LittleEndian.Uint64(header[OffsetDataLen:])
		originalLen := uint64(binary.LittleEndian.Uint32(header[OffsetOriginalDataLen:]))
		if dataLen > MaxPermittedDataLength || dataLen > originalLen+MaxPermittedDataIncrease {
			return 0, nil, nil, ErrInvalidArgument
		}

		size := SerializedAccountSize(originalLen)
		if offset+size > total {
			return 0, nil, nil, ErrInvalidArgument
		}

		header[OffsetBorrowState] = borrowNone
		if i < MaxAccounts {
			accounts[i] = AccountInfo{raw: input[offset : offset+size : offset+size]}
			n++
		}
		offset += size
	}

	if offset+8 > total {
		return 0, nil, nil, ErrInvalidArgument
	}
	dataLen := binary.LittleEndian.Uint64(input[offset:])
	offset += 8

	if dataLen > total-offset || total-offset-dataLen < PubkeySize {
		return 0, nil, nil, ErrInvalidArgument
	}
	data := input[offset : offset+dataLen : offset+dataLen]
	offset += dataLen

	programID := ed25519.PublicKey(input[offset : offset+PubkeySize : offset+PubkeySize])

	return n, data, programID, nil
}
