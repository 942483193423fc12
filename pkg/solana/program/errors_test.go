package program

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestProgramError_Encoding(t *testing.T) {
	assert.EqualValues(t, 3<<32, ErrInvalidInstructionData)
	assert.EqualValues(t, 11<<32, ErrNotEnoughAccountKeys)
	assert.EqualValues(t, 18<<32, ErrIllegalOwner)

	assert.Equal(t, "InvalidInstructionData", ErrInvalidInstructionData.Error())
	assert.Equal(t, "IllegalOwner", ErrIllegalOwner.Name())

	assert.Equal(t, ErrCustomZero, CustomError(0))
	assert.True(t, CustomError(0).IsCustom())
	assert.True(t, CustomError(7).IsCustom())
	assert.False(t, ErrIllegalOwner.IsCustom())
	assert.Equal(t, "Custom(7)", CustomError(7).Error())
	assert.Equal(t, "Custom", CustomError(7).Name())
}

func TestProgramError_Results(t *testing.T) {
	assert.Equal(t, Success, ToResult(nil))
	assert.Equal(t, uint64(ErrMissingRequiredSignature), ToResult(ErrMissingRequiredSignature))
	assert.Equal(t, uint64(ErrIllegalOwner), ToResult(errors.Wrap(ErrIllegalOwner, "counter")))
	assert.Equal(t, uint64(ErrInvalidArgument), ToResult(errors.New("unexpected")))

	assert.NoError(t, FromResult(Success))
	assert.Equal(t, ErrAccountBorrowFailed, FromResult(uint64(ErrAccountBorrowFailed)))
	assert.True(t, errors.Is(FromResult(uint64(ErrUninitializedAccount)), ErrUninitializedAccount))
}

func TestRent_MinimumBalance(t *testing.T) {
	assert.EqualValues(t, 946560, DefaultRent.MinimumBalance(8))
	assert.EqualValues(t, 890880, DefaultRent.MinimumBalance(0))
}

func TestRent_Marshal(t *testing.T) {
	b := DefaultRent.Marshal()
	assert.Equal(t, []byte{0x98, 0x0d, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x40, 50}, b)

	rent, err := UnmarshalRent(b)
	assert.NoError(t, err)
	assert.Equal(t, DefaultRent, rent)

	_, err = UnmarshalRent(b[:16])
	assert.Equal(t, errInvalidRentSize, err)
}
