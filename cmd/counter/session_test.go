package main

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/counter-program/pkg/counter"
	ledger_memory "github.com/code-payments/counter-program/pkg/ledger/memory"
	"github.com/code-payments/counter-program/pkg/solana"
	"github.com/code-payments/counter-program/pkg/solana/runtime"
	"github.com/code-payments/counter-program/pkg/testutil"
)

const (
	feePerSignature = 5_000
	counterRent     = 946_560
)

func setupRuntime(t *testing.T) *runtime.Runtime {
	rt := runtime.New(ledger_memory.New(), runtime.WithEnvConfigs())
	require.NoError(t, rt.RegisterProgram(counter.ProgramKey, counter.Entrypoint))
	return rt
}

func testConfig() *Config {
	config := defaultConfig
	config.PollInterval = time.Millisecond
	config.ConfirmationTimeout = 10 * time.Millisecond
	return &config
}

func TestSession_Simulate(t *testing.T) {
	ctx := context.Background()
	rt := setupRuntime(t)

	config := testConfig()
	config.Increments = 4
	config.Memo = "counting"
	config.ComputeUnitLimit = 50_000

	payer := testutil.GenerateSolanaKeypair(t)
	res, err := newSession(rt.Client(ctx), config, payer).run(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 4, res.Count)
	assert.Len(t, res.Signatures, 6)

	info, err := rt.GetAccount(ctx, res.Counter)
	require.NoError(t, err)
	assert.EqualValues(t, counter.ProgramKey, info.Owner)
	assert.EqualValues(t, counterRent, info.Lamports)

	balance, err := rt.GetBalance(ctx, payer.Public().(ed25519.PublicKey))
	require.NoError(t, err)
	assert.EqualValues(t, config.AirdropLamports-counterRent-2*feePerSignature-4*feePerSignature, balance)

	for _, sig := range res.Signatures {
		status, err := rt.GetSignatureStatus(sig)
		require.NoError(t, err)
		assert.Nil(t, status.ErrorResult)
	}

	logs, err := rt.GetTransactionLogs(res.Signatures[len(res.Signatures)-1])
	require.NoError(t, err)
	assert.Contains(t, logs, `Program log: Memo (len 8): "counting"`)
}

func TestSession_NoIncrements(t *testing.T) {
	ctx := context.Background()
	rt := setupRuntime(t)

	config := testConfig()
	config.Increments = 0

	res, err := newSession(rt.Client(ctx), config, testutil.GenerateSolanaKeypair(t)).run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Len(t, res.Signatures, 2)
}

func TestSession_UnfundedPayer(t *testing.T) {
	ctx := context.Background()
	rt := setupRuntime(t)

	config := testConfig()
	config.AirdropLamports = 0

	res, err := newSession(rt.Client(ctx), config, testutil.GenerateSolanaKeypair(t)).run(ctx)
	require.Error(t, err)
	assert.Empty(t, res.Signatures)

	txErr, ok := errors.Cause(err).(*solana.TransactionError)
	require.True(t, ok, "unexpected error: %v", err)
	assert.Equal(t, solana.TransactionErrorAccountNotFound, txErr.ErrorKey())
}

func TestSession_ComputeUnitLimitTooLow(t *testing.T) {
	ctx := context.Background()
	rt := setupRuntime(t)

	config := testConfig()
	config.ComputeUnitLimit = 100

	res, err := newSession(rt.Client(ctx), config, testutil.GenerateSolanaKeypair(t)).run(ctx)
	require.Error(t, err)

	txErr, ok := errors.Cause(err).(*solana.TransactionError)
	require.True(t, ok, "unexpected error: %v", err)
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, solana.InstructionErrorComputationalBudgetExceeded, txErr.InstructionError().ErrorKey())

	// The failed initialize landed and paid its fee, so it's kept.
	require.Len(t, res.Signatures, 2)
	status, err := rt.GetSignatureStatus(res.Signatures[1])
	require.NoError(t, err)
	assert.NotNil(t, status.ErrorResult)
}

func TestSession_FailedIncrementKeepsLogs(t *testing.T) {
	ctx := context.Background()
	rt := setupRuntime(t)

	config := testConfig()
	config.Memo = "\xff"

	res, err := newSession(rt.Client(ctx), config, testutil.GenerateSolanaKeypair(t)).run(ctx)
	require.Error(t, err)

	require.Len(t, res.Signatures, 3)
	logs, err := rt.GetTransactionLogs(res.Signatures[2])
	require.NoError(t, err)
	assert.Contains(t, logs, "Invalid UTF-8")

	reset := testutil.DisableLogging()
	defer reset()
	printLogs(rt, res)
}

type unconfirmedClient struct {
	solana.Client

	calls int
}

func (c *unconfirmedClient) GetSignatureStatus(solana.Signature, solana.Commitment) (*solana.SignatureStatus, error) {
	c.calls++
	if c.calls == 1 {
		return nil, solana.ErrSignatureNotFound
	}

	confirmations := 0
	return &solana.SignatureStatus{
		Confirmations:      &confirmations,
		ConfirmationStatus: solana.CommitmentProcessed.Commitment,
	}, nil
}

func TestWaitForConfirmation_Timeout(t *testing.T) {
	client := &unconfirmedClient{}
	s := newSession(client, testConfig(), testutil.GenerateSolanaKeypair(t))

	err := s.waitForConfirmation(solana.Signature{})
	assert.Equal(t, errConfirmTimeout, errors.Cause(err))
	assert.Equal(t, 10, client.calls)
}

type failedClient struct {
	solana.Client
}

func (c *failedClient) GetSignatureStatus(solana.Signature, solana.Commitment) (*solana.SignatureStatus, error) {
	return &solana.SignatureStatus{
		Slot:        10,
		ErrorResult: solana.NewTransactionError(solana.TransactionErrorAccountInUse),
	}, nil
}

func TestWaitForConfirmation_Failed(t *testing.T) {
	s := newSession(&failedClient{}, testConfig(), testutil.GenerateSolanaKeypair(t))

	err := s.waitForConfirmation(solana.Signature{})
	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "unexpected error: %v", err)
	assert.Equal(t, solana.TransactionErrorAccountInUse, txErr.ErrorKey())
}
