// Package runtime is an in-process Solana host. It executes transactions
// against a ledger.Store, running registered programs over the aligned input
// region and servicing their syscalls, including cross program invocations
// into the native system program.
package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/counter-program/pkg/ledger"
	"github.com/code-payments/counter-program/pkg/rate"
	"github.com/code-payments/counter-program/pkg/solana"
	compute_budget "github.com/code-payments/counter-program/pkg/solana/computebudget"
	"github.com/code-payments/counter-program/pkg/solana/memo"
	"github.com/code-payments/counter-program/pkg/solana/program"
	"github.com/code-payments/counter-program/pkg/solana/system"
	syncutil "github.com/code-payments/counter-program/pkg/sync"
)

const (
	metricsStructName = "solana.runtime"
)

var (
	// NativeLoaderKey owns the builtin programs.
	NativeLoaderKey = mustDecode("NativeLoader1111111111111111111111111111111")

	// LoaderKey owns programs registered with RegisterProgram.
	LoaderKey = mustDecode("BPFLoaderUpgradeab1e11111111111111111111111")
)

func mustDecode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

// Entrypoint is a program's loader entrypoint. It receives the serialized
// input region and returns a program result code.
type Entrypoint func(sys program.Syscalls, input []byte) uint64

// native is a builtin program operating directly on transaction accounts.
type native func(e *executor, f *frame, data []byte) error

// Runtime executes transactions against a ledger.
type Runtime struct {
	log   *logrus.Entry
	conf  *conf
	store ledger.Store

	natives map[string]native

	programsMu sync.RWMutex
	programs   map[string]Entrypoint

	accountLocks *syncutil.StripedLock
	signatures   *signatureSet
	faucet       rate.Limiter

	bankMu       sync.RWMutex
	slot         uint64
	blockhash    solana.Blockhash
	blockhashes  map[solana.Blockhash]uint64
	recentHashes []solana.Blockhash
	statuses     map[solana.Signature]*transactionStatus
}

type transactionStatus struct {
	slot         uint64
	err          *solana.TransactionError
	logs         []string
	computeUnits uint64
}

// New returns a Runtime persisting accounts to store.
func New(store ledger.Store, configProvider ConfigProvider) *Runtime {
	conf := configProvider()
	ctx := context.Background()

	r := &Runtime{
		log:   logrus.StandardLogger().WithField("type", "solana/runtime"),
		conf:  conf,
		store: store,

		programs: make(map[string]Entrypoint),

		accountLocks: syncutil.NewStripedLock(uint(conf.accountLockStripes.Get(ctx))),
		signatures:   newSignatureSet(uint(conf.expectedSignatures.Get(ctx))),
		faucet:       rate.NewLocalRateLimiter(xrate.Limit(conf.faucetRateLimit.Get(ctx))),

		blockhashes: make(map[solana.Blockhash]uint64),
		statuses:    make(map[solana.Signature]*transactionStatus),
	}

	r.natives = map[string]native{
		string(system.ProgramKey[:]):      processSystem,
		string(memo.ProgramKey):           processMemo,
		string(compute_budget.ProgramKey): processComputeBudget,
	}

	r.advance(sha256.Sum256([]byte("genesis")))

	return r
}

// RegisterProgram makes entrypoint executable at programID.
func (r *Runtime) RegisterProgram(programID ed25519.PublicKey, entrypoint Entrypoint) error {
	if _, ok := r.natives[string(programID)]; ok {
		return ErrProgramAlreadyRegistered
	}

	r.programsMu.Lock()
	defer r.programsMu.Unlock()

	if _, ok := r.programs[string(programID)]; ok {
		return ErrProgramAlreadyRegistered
	}
	r.programs[string(programID)] = entrypoint

	r.log.WithField("program", base58.Encode(programID)).Info("registered program")
	return nil
}

func (r *Runtime) getProgram(programID ed25519.PublicKey) (Entrypoint, bool) {
	r.programsMu.RLock()
	defer r.programsMu.RUnlock()

	entrypoint, ok := r.programs[string(programID)]
	return entrypoint, ok
}

// programOwner returns the loader owning programID, or nil if it isn't an
// executable program.
func (r *Runtime) programOwner(programID ed25519.PublicKey) ed25519.PublicKey {
	if _, ok := r.natives[string(programID)]; ok {
		return NativeLoaderKey
	}
	if _, ok := r.getProgram(programID); ok {
		return LoaderKey
	}
	return nil
}

// Rent returns the rent parameters programs observe.
func (r *Runtime) Rent(ctx context.Context) program.Rent {
	return program.Rent{
		LamportsPerByteYear: r.conf.lamportsPerByteYear.Get(ctx),
		ExemptionThreshold:  r.conf.rentExemptionThreshold.Get(ctx),
		BurnPercent:         program.DefaultBurnPercent,
	}
}

// GetSlot returns the slot the next transaction will be recorded at.
func (r *Runtime) GetSlot() uint64 {
	r.bankMu.RLock()
	defer r.bankMu.RUnlock()

	return r.slot
}

// GetLatestBlockhash returns the most recent blockhash.
func (r *Runtime) GetLatestBlockhash() solana.Blockhash {
	r.bankMu.RLock()
	defer r.bankMu.RUnlock()

	return r.blockhash
}

func (r *Runtime) isRecentBlockhash(blockhash solana.Blockhash) bool {
	r.bankMu.RLock()
	defer r.bankMu.RUnlock()

	_, ok := r.blockhashes[blockhash]
	return ok
}

// advance closes the current slot, deriving the next blockhash from seed, and
// returns the slot that was closed.
func (r *Runtime) advance(seed [32]byte) uint64 {
	r.bankMu.Lock()
	defer r.bankMu.Unlock()

	return r.advanceLocked(seed)
}

func (r *Runtime) advanceLocked(seed [32]byte) uint64 {
	closed := r.slot

	var slot [8]byte
	binary.LittleEndian.PutUint64(slot[:], closed)

	h := sha256.New()
	h.Write(r.blockhash[:])
	h.Write(seed[:])
	h.Write(slot[:])

	var next solana.Blockhash
	copy(next[:], h.Sum(nil))

	r.slot++
	r.blockhash = next
	r.blockhashes[next] = r.slot
	r.recentHashes = append(r.recentHashes, next)

	max := int(r.conf.maxRecentBlockhashes.Get(context.Background()))
	for len(r.recentHashes) > max {
		delete(r.blockhashes, r.recentHashes[0])
		r.recentHashes = r.recentHashes[1:]
	}

	return closed
}

// record stores the outcome of a transaction.
func (r *Runtime) record(sig solana.Signature, status *transactionStatus) {
	r.bankMu.Lock()
	defer r.bankMu.Unlock()

	r.statuses[sig] = status
}

// GetSignatureStatus returns the status of a processed transaction.
//
// Returns ErrSignatureNotFound if the runtime hasn't processed it.
func (r *Runtime) GetSignatureStatus(sig solana.Signature) (*solana.SignatureStatus, error) {
	r.bankMu.RLock()
	defer r.bankMu.RUnlock()

	status, ok := r.statuses[sig]
	if !ok {
		return nil, ErrSignatureNotFound
	}

	// The runtime is its own root, so every processed transaction is final.
	return &solana.SignatureStatus{
		Slot:               status.slot,
		ErrorResult:        status.err,
		ConfirmationStatus: solana.CommitmentFinalized.Commitment,
	}, nil
}

// GetTransactionLogs returns the program logs a processed transaction
// produced.
func (r *Runtime) GetTransactionLogs(sig solana.Signature) ([]string, error) {
	r.bankMu.RLock()
	defer r.bankMu.RUnlock()

	status, ok := r.statuses[sig]
	if !ok {
		return nil, ErrSignatureNotFound
	}
	return append([]string{}, status.logs...), nil
}

// GetAccount returns the account at key. Registered programs are reported as
// executable accounts owned by their loader, and the rent sysvar holds the
// current rent parameters.
//
// Returns ledger.ErrAccountNotFound if the account holds no lamports.
func (r *Runtime) GetAccount(ctx context.Context, key ed25519.PublicKey) (*solana.AccountInfo, error) {
	if bytes.Equal(key, system.RentSysVar) {
		rent := r.Rent(ctx)
		return &solana.AccountInfo{
			Data:     rent.Marshal(),
			Owner:    system.SysvarOwner,
			Lamports: rent.MinimumBalance(program.RentSize),
		}, nil
	}

	if owner := r.programOwner(key); owner != nil {
		return &solana.AccountInfo{
			Owner:      owner,
			Lamports:   1,
			Executable: true,
		}, nil
	}

	record, err := r.store.Get(ctx, base58.Encode(key))
	if err != nil {
		return nil, err
	}
	if record.Lamports == 0 {
		return nil, ledger.ErrAccountNotFound
	}

	owner, err := record.GetOwner()
	if err != nil {
		return nil, err
	}

	return &solana.AccountInfo{
		Data:       append([]byte{}, record.Data...),
		Owner:      owner,
		Lamports:   record.Lamports,
		Executable: record.Executable,
	}, nil
}

// GetBalance returns the lamports held at key, zero for unknown accounts.
func (r *Runtime) GetBalance(ctx context.Context, key ed25519.PublicKey) (uint64, error) {
	record, err := r.store.Get(ctx, base58.Encode(key))
	if err == ledger.ErrAccountNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return record.Lamports, nil
}
