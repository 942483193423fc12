package compute_budget

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/counter-program/pkg/solana"
)

func TestInstructions(t *testing.T) {
	limit, err := ParseSetComputeUnitLimitIxnData(SetComputeUnitLimit(300_000).Data)
	require.NoError(t, err)
	assert.EqualValues(t, 300_000, limit)

	price, err := ParseSetComputeUnitPriceIxnData(SetComputeUnitPrice(42).Data)
	require.NoError(t, err)
	assert.EqualValues(t, 42, price)

	_, err = ParseSetComputeUnitLimitIxnData(SetComputeUnitPrice(42).Data)
	assert.Error(t, err)
	_, err = ParseSetComputeUnitPriceIxnData([]byte{commandSetComputeUnitPrice})
	assert.Error(t, err)
}

func TestParseBudget(t *testing.T) {
	payer, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	txn := solana.NewTransaction(payer)
	budget, _, err := ParseBudget(txn.Message)
	require.NoError(t, err)
	assert.Nil(t, budget.UnitLimit)
	assert.Nil(t, budget.UnitPrice)

	txn = solana.NewTransaction(payer, SetComputeUnitLimit(1000), SetComputeUnitPrice(5))
	budget, _, err = ParseBudget(txn.Message)
	require.NoError(t, err)
	require.NotNil(t, budget.UnitLimit)
	require.NotNil(t, budget.UnitPrice)
	assert.EqualValues(t, 1000, *budget.UnitLimit)
	assert.EqualValues(t, 5, *budget.UnitPrice)

	txn = solana.NewTransaction(payer, SetComputeUnitLimit(1000), SetComputeUnitLimit(2000))
	_, index, err := ParseBudget(txn.Message)
	assert.Equal(t, ErrDuplicateInstruction, err)
	assert.Equal(t, 1, index)

	txn = solana.NewTransaction(payer, solana.NewInstruction(ProgramKey, []byte{9}))
	_, index, err = ParseBudget(txn.Message)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
	assert.Equal(t, 0, index)
}
