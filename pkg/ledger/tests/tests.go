package tests

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/counter-program/pkg/ledger"
	"github.com/code-payments/counter-program/pkg/testutil"
)

func RunTests(t *testing.T, s ledger.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s ledger.Store){
		testRoundTrip,
		testUpdate,
		testStaleVersion,
		testInvalidRecord,
		testGetAll,
		testSaveBatch,
		testSaveBatchRollback,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	address := randomAddress(t)

	actual, err := s.Get(ctx, address)
	assert.Equal(t, ledger.ErrAccountNotFound, err)
	assert.Nil(t, actual)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	expected := &ledger.Record{
		Address:    address,
		Owner:      randomAddress(t),
		Lamports:   946560,
		Data:       []byte{1, 2, 3, 4, 5, 6, 7, 8},
		Executable: true,
		RentEpoch:  3,
		Slot:       42,
	}
	cloned := expected.Clone()
	require.NoError(t, s.Save(ctx, expected))
	assert.EqualValues(t, 1, expected.Version)
	assert.NotZero(t, expected.Id)

	actual, err = s.Get(ctx, address)
	require.NoError(t, err)
	assert.True(t, cloned.Equal(actual))
	assert.EqualValues(t, 42, actual.Slot)
	assert.EqualValues(t, 1, actual.Version)
	assert.Equal(t, expected.Id, actual.Id)
	assert.False(t, actual.LastUpdatedAt.IsZero())

	pub, err := actual.GetPublicKey()
	require.NoError(t, err)
	assert.Equal(t, address, base58.Encode(pub))

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func testUpdate(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	record := &ledger.Record{
		Address:  randomAddress(t),
		Owner:    randomAddress(t),
		Lamports: 1,
	}
	require.NoError(t, s.Save(ctx, record))

	record.Owner = randomAddress(t)
	record.Lamports = 2
	record.Data = []byte{9}
	record.Slot = 2
	require.NoError(t, s.Save(ctx, record))
	assert.EqualValues(t, 2, record.Version)

	actual, err := s.Get(ctx, record.Address)
	require.NoError(t, err)
	assert.True(t, record.Equal(actual))
	assert.EqualValues(t, 2, actual.Slot)
	assert.EqualValues(t, 2, actual.Version)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func testStaleVersion(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	record := &ledger.Record{
		Address:  randomAddress(t),
		Owner:    randomAddress(t),
		Lamports: 1,
	}
	require.NoError(t, s.Save(ctx, record))

	stale := record.Clone()
	stale.Version = 0
	stale.Lamports = 100
	assert.Equal(t, ledger.ErrStaleVersion, s.Save(ctx, &stale))

	record.Lamports = 5
	require.NoError(t, s.Save(ctx, record))

	stale = record.Clone()
	stale.Version = 1
	assert.Equal(t, ledger.ErrStaleVersion, s.Save(ctx, &stale))

	actual, err := s.Get(ctx, record.Address)
	require.NoError(t, err)
	assert.EqualValues(t, 5, actual.Lamports)
	assert.EqualValues(t, 2, actual.Version)
}

func testInvalidRecord(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	for _, record := range []*ledger.Record{
		{Owner: randomAddress(t)},
		{Address: randomAddress(t)},
		{Address: "not-base58!", Owner: randomAddress(t)},
		{Address: base58.Encode([]byte{1, 2, 3}), Owner: randomAddress(t)},
		{Address: randomAddress(t), Owner: randomAddress(t), Lamports: 1 << 63},
	} {
		assert.Error(t, s.Save(ctx, record))
		assert.Error(t, s.SaveBatch(ctx, record))
	}

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func testGetAll(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	records, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	var addresses []string
	for i, key := range testutil.GenerateSolanaKeys(t, 3) {
		record := &ledger.Record{
			Address:  base58.Encode(key),
			Owner:    randomAddress(t),
			Lamports: uint64(i + 1),
		}
		require.NoError(t, s.Save(ctx, record))
		addresses = append(addresses, record.Address)
	}

	missing := randomAddress(t)
	records, err = s.GetAll(ctx, addresses[2], missing, addresses[0])
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, addresses[2], records[0].Address)
	assert.EqualValues(t, 3, records[0].Lamports)
	assert.Equal(t, addresses[0], records[1].Address)
	assert.EqualValues(t, 1, records[1].Lamports)

	records, err = s.GetAll(ctx, missing)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func testSaveBatch(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	existing := &ledger.Record{
		Address:  randomAddress(t),
		Owner:    randomAddress(t),
		Lamports: 10,
	}
	require.NoError(t, s.Save(ctx, existing))

	existing.Lamports = 5
	created := &ledger.Record{
		Address:  randomAddress(t),
		Owner:    randomAddress(t),
		Lamports: 5,
		Data:     make([]byte, 8),
	}
	require.NoError(t, s.SaveBatch(ctx, existing, created))
	assert.EqualValues(t, 2, existing.Version)
	assert.EqualValues(t, 1, created.Version)

	records, err := s.GetAll(ctx, existing.Address, created.Address)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, existing.Equal(records[0]))
	assert.True(t, created.Equal(records[1]))

	require.NoError(t, s.SaveBatch(ctx))
}

func testSaveBatchRollback(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	existing := &ledger.Record{
		Address:  randomAddress(t),
		Owner:    randomAddress(t),
		Lamports: 10,
	}
	require.NoError(t, s.Save(ctx, existing))

	created := &ledger.Record{
		Address:  randomAddress(t),
		Owner:    randomAddress(t),
		Lamports: 5,
	}
	stale := existing.Clone()
	stale.Version = 0
	stale.Lamports = 0

	assert.Equal(t, ledger.ErrStaleVersion, s.SaveBatch(ctx, created, &stale))

	_, err := s.Get(ctx, created.Address)
	assert.Equal(t, ledger.ErrAccountNotFound, err)

	actual, err := s.Get(ctx, existing.Address)
	require.NoError(t, err)
	assert.EqualValues(t, 10, actual.Lamports)
	assert.EqualValues(t, 1, actual.Version)
}

func randomAddress(t *testing.T) string {
	return base58.Encode(testutil.GenerateSolanaKeypair(t).Public().(ed25519.PublicKey))
}
