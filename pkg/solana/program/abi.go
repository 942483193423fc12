package program

// Input region layout handed to a program by the host loader. All integers are
// little endian.
//
//	u64                         number of accounts
//	for each account, either:
//	  u8  NonDupMarker          (0xFF)
//	  u8  is_signer
//	  u8  is_writable
//	  u8  executable
//	  u32 original_data_len
//	  [32] key
//	  [32] owner
//	  u64 lamports
//	  u64 data_len
//	  [data_len] data
//	  [MaxPermittedDataIncrease] realloc padding, then aligned to 8
//	  u64 rent_epoch
//	or, for an account already listed:
//	  u8  index of the first occurrence
//	  [7] padding
//	u64                         instruction data length
//	[..] instruction data
//	[32] program id
//
// Reference: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/entrypoint.rs#L277
const (
	// MaxAccounts is the number of account views the entrypoint keeps.
	// Accounts past this index are parsed but not exposed.
	MaxAccounts = 32

	NonDupMarker = 0xFF

	MaxPermittedDataIncrease = 10 * 1024

	// MaxPermittedDataLength is the largest data buffer an account may hold.
	MaxPermittedDataLength = 10 * 1024 * 1024

	PubkeySize = 32

	AccountHeaderSize = 88
	DuplicateSize     = 8

	AlignOfU128 = 8
)

// Byte offsets within an account header.
const (
	OffsetBorrowState     = 0
	OffsetIsSigner        = 1
	OffsetIsWritable      = 2
	OffsetExecutable      = 3
	OffsetOriginalDataLen = 4
	OffsetKey             = 8
	OffsetOwner           = 40
	OffsetLamports        = 72
	OffsetDataLen         = 80
	OffsetData            = 88
)

// SerializedAccountSize is the number of bytes a non duplicate account with
// dataLen bytes of data occupies in the input region.
func SerializedAccountSize(dataLen uint64) uint64 {
	size := uint64(AccountHeaderSize) + dataLen + MaxPermittedDataIncrease
	size = AlignUp(size)
	return size + 8 // rent_epoch
}

// AlignUp rounds n up to the loader's alignment.
func AlignUp(n uint64) uint64 {
	return (n + (AlignOfU128 - 1)) &^ (AlignOfU128 - 1)
}
