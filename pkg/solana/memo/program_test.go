package memo

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/counter-program/pkg/solana"
)

func TestInstruction(t *testing.T) {
	i := Instruction("hello, world!")
	assert.Equal(t, ProgramKey, i.Program)
	assert.Empty(t, i.Accounts)
	assert.Equal(t, "hello, world!", string(i.Data))

	signer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	i = Instruction("signed", signer)
	require.Len(t, i.Accounts, 1)
	assert.Equal(t, signer, i.Accounts[0].PublicKey)
	assert.True(t, i.Accounts[0].IsSigner)
	assert.False(t, i.Accounts[0].IsWritable)
}

func TestParse(t *testing.T) {
	text, err := Parse([]byte("increment #1"))
	require.NoError(t, err)
	assert.Equal(t, "increment #1", text)

	_, err = Parse([]byte{0xff, 0xfe})
	assert.Equal(t, ErrInvalidUTF8, err)
}

func TestDecompile(t *testing.T) {
	tx := solana.NewTransaction(
		make([]byte, 32),
		Instruction("hello, world"),
	)

	i, err := DecompileMemo(tx.Message, 0)
	assert.NoError(t, err)
	assert.Equal(t, "hello, world", string(i.Data))

	_, err = DecompileMemo(tx.Message, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "instruction doesn't exist")

	tx.Message.Accounts[1], _, err = ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, err = DecompileMemo(tx.Message, 0)
	assert.Error(t, err)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}
