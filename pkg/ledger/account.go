package ledger

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"math"
	"time"

	"github.com/mr-tron/base58"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrStaleVersion    = errors.New("account version is stale")
)

// Record is the persisted state of one ledger account. Address and Owner are
// base58 encoded public keys.
type Record struct {
	Id uint64

	Address string
	Owner   string

	Lamports   uint64
	Data       []byte
	Executable bool
	RentEpoch  uint64

	// Slot is the slot of the transaction that last wrote the account.
	Slot uint64

	Version       uint64
	LastUpdatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}
	if _, err := decodeKey(r.Address); err != nil {
		return errors.New("address is not a valid public key")
	}

	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}
	if _, err := decodeKey(r.Owner); err != nil {
		return errors.New("owner is not a valid public key")
	}

	// Lamports and rent epochs are stored in signed 64 bit columns.
	if r.Lamports > math.MaxInt64 {
		return errors.New("lamports overflows storage")
	}
	if r.RentEpoch > math.MaxInt64 {
		return errors.New("rent epoch overflows storage")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id:            r.Id,
		Address:       r.Address,
		Owner:         r.Owner,
		Lamports:      r.Lamports,
		Data:          cloneBytes(r.Data),
		Executable:    r.Executable,
		RentEpoch:     r.RentEpoch,
		Slot:          r.Slot,
		Version:       r.Version,
		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id
	dst.Address = r.Address
	dst.Owner = r.Owner
	dst.Lamports = r.Lamports
	dst.Data = cloneBytes(r.Data)
	dst.Executable = r.Executable
	dst.RentEpoch = r.RentEpoch
	dst.Slot = r.Slot
	dst.Version = r.Version
	dst.LastUpdatedAt = r.LastUpdatedAt
}

// Equal reports whether two records hold the same account state, ignoring
// bookkeeping fields.
func (r *Record) Equal(other *Record) bool {
	return r.Address == other.Address &&
		r.Owner == other.Owner &&
		r.Lamports == other.Lamports &&
		bytes.Equal(r.Data, other.Data) &&
		r.Executable == other.Executable &&
		r.RentEpoch == other.RentEpoch
}

func (r *Record) GetPublicKey() (ed25519.PublicKey, error) {
	return decodeKey(r.Address)
}

func (r *Record) GetOwner() (ed25519.PublicKey, error) {
	return decodeKey(r.Owner)
}

func decodeKey(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, err
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.New("invalid public key length")
	}
	return decoded, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
