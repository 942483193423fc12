package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"runtime/debug"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/counter-program/pkg/ledger"
	"github.com/code-payments/counter-program/pkg/metrics"
	"github.com/code-payments/counter-program/pkg/solana"
	compute_budget "github.com/code-payments/counter-program/pkg/solana/computebudget"
	"github.com/code-payments/counter-program/pkg/solana/program"
	"github.com/code-payments/counter-program/pkg/solana/system"
)

// executor runs the instructions of one transaction.
type executor struct {
	rt  *Runtime
	ctx context.Context
	log *logrus.Entry

	msg      *solana.Message
	accounts []*account

	meter *meter
	stack []*frame
	logs  []string
}

// SubmitTransaction executes txn and commits its effects.
//
// Transactions rejected before execution return a *solana.TransactionError
// and leave no trace. Transactions that fail during execution are recorded,
// charge the fee payer and return a *solana.TransactionError alongside their
// signature.
func (r *Runtime) SubmitTransaction(ctx context.Context, txn solana.Transaction) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitTransaction")
	defer tracer.End()

	var sig solana.Signature
	if len(txn.Signatures) > 0 {
		sig = txn.Signatures[0]
	}

	log := r.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": base58.Encode(sig[:]),
	})

	status, err := r.process(ctx, log, txn)
	if err != nil {
		tracer.OnError(err)

		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			metrics.RecordEvent(ctx, "RuntimeTransactionRejected", map[string]interface{}{
				"error": string(txErr.ErrorKey()),
			})
			log.WithError(err).Debug("transaction rejected")
		} else {
			log.WithError(err).Warn("failure processing transaction")
		}
		return sig, err
	}

	metrics.RecordCount(ctx, "RuntimeTransactionsProcessed", 1)
	tracer.AddAttributes(map[string]interface{}{
		"slot":          status.slot,
		"compute_units": status.computeUnits,
	})

	if status.err != nil {
		metrics.RecordEvent(ctx, "RuntimeTransactionFailed", map[string]interface{}{
			"error": status.err.Error(),
		})
		log.WithError(status.err).Debug("transaction failed")
		return sig, status.err
	}

	log.WithField("slot", status.slot).Debug("transaction succeeded")
	return sig, nil
}

func (r *Runtime) process(ctx context.Context, log *logrus.Entry, txn solana.Transaction) (*transactionStatus, error) {
	msg := &txn.Message

	if err := msg.Sanitize(); err != nil {
		log.WithError(err).Debug("message failed to sanitize")
		return nil, solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}
	if err := txn.VerifySignatures(); err != nil {
		log.WithError(err).Debug("signature verification failed")
		return nil, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}
	if !r.isRecentBlockhash(msg.RecentBlockhash) {
		return nil, solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}

	budget, index, err := compute_budget.ParseBudget(*msg)
	if err == compute_budget.ErrDuplicateInstruction {
		return nil, solana.NewTransactionError(solana.TransactionErrorDuplicateInstruction)
	} else if err != nil {
		return nil, transactionError(index, program.ErrInvalidInstructionData)
	}

	for i := range msg.Accounts {
		if r.programOwner(msg.Accounts[i]) != nil && msg.IsWritable(i) {
			return nil, solana.NewTransactionError(solana.TransactionErrorInvalidWritableAccount)
		}
	}
	for _, ix := range msg.Instructions {
		if r.programOwner(msg.Accounts[ix.ProgramIndex]) == nil {
			return nil, solana.NewTransactionError(solana.TransactionErrorProgramAccountNotFound)
		}
	}

	keys := make([][]byte, len(msg.Accounts))
	exclusive := make([]bool, len(msg.Accounts))
	for i := range msg.Accounts {
		keys[i] = msg.Accounts[i]
		exclusive[i] = msg.IsWritable(i)
	}
	release := r.accountLocks.Acquire(keys, exclusive)
	defer release()

	// The fee payer is write locked, so a concurrent copy of this transaction
	// is serialized behind us.
	sig := txn.Signatures[0]
	if r.signatures.Contains(sig) {
		return nil, solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}

	accounts, err := r.load(ctx, msg)
	if err != nil {
		return nil, err
	}

	payer := accounts[0]
	fee := r.conf.lamportsPerSignature.Get(ctx) * uint64(len(txn.Signatures))
	switch {
	case payer.record == nil || payer.lamports == 0:
		return nil, solana.NewTransactionError(solana.TransactionErrorAccountNotFound)
	case !bytes.Equal(payer.owner, system.ProgramKey[:]) || len(payer.data) != 0:
		return nil, solana.NewTransactionError(solana.TransactionErrorInvalidAccountForFee)
	case payer.lamports < fee:
		return nil, solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	}
	payer.lamports -= fee

	limit := r.conf.defaultComputeUnitLimit.Get(ctx)
	if budget.UnitLimit != nil {
		limit = uint64(*budget.UnitLimit)
	}
	if max := r.conf.maxComputeUnitLimit.Get(ctx); limit > max {
		limit = max
	}

	e := &executor{
		rt:       r,
		ctx:      ctx,
		log:      log,
		msg:      msg,
		accounts: accounts,
		meter:    &meter{limit: limit, remaining: limit},
	}

	txErr := e.execute()
	if txErr == nil {
		txErr = r.checkRent(ctx, msg, accounts)
	}

	// A failed transaction still pays its fee, but nothing else it did
	// survives.
	committed := accounts
	if txErr != nil {
		feeOnly, err := newAccount(payer.key, payer.record)
		if err != nil {
			return nil, err
		}
		feeOnly.lamports -= fee
		committed = []*account{feeOnly}
	}

	slot := r.advance(sha256.Sum256(sig[:]))

	var records []*ledger.Record
	for i, a := range committed {
		if !msg.IsWritable(i) || a.executable || !a.changed() {
			continue
		}
		records = append(records, a.toRecord(slot))
	}

	if err := r.store.SaveBatch(ctx, records...); err == ledger.ErrStaleVersion {
		return nil, solana.NewTransactionError(solana.TransactionErrorAccountInUse)
	} else if err != nil {
		return nil, errors.Wrap(err, "failure saving accounts")
	}

	r.signatures.Add(sig)

	status := &transactionStatus{
		slot:         slot,
		err:          txErr,
		logs:         e.logs,
		computeUnits: e.meter.consumed(),
	}
	r.record(sig, status)

	return status, nil
}

// load reads every account of msg from the ledger. Programs are materialized
// as executable accounts owned by their loader.
func (r *Runtime) load(ctx context.Context, msg *solana.Message) ([]*account, error) {
	addresses := make([]string, len(msg.Accounts))
	for i, key := range msg.Accounts {
		addresses[i] = base58.Encode(key)
	}

	records, err := r.store.GetAll(ctx, addresses...)
	if err != nil {
		return nil, errors.Wrap(err, "failure loading accounts")
	}

	byAddress := make(map[string]*ledger.Record, len(records))
	for _, record := range records {
		byAddress[record.Address] = record
	}

	accounts := make([]*account, len(msg.Accounts))
	for i, key := range msg.Accounts {
		if owner := r.programOwner(key); owner != nil {
			accounts[i] = &account{
				key:        key,
				owner:      owner,
				lamports:   1,
				executable: true,
			}
			continue
		}

		accounts[i], err = newAccount(key, byAddress[addresses[i]])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid ledger record for %s", addresses[i])
		}
	}

	return accounts, nil
}

// checkRent rejects transactions that leave a written account funded but
// below the rent exempt minimum for its size. An account that was already
// below the minimum may stay there as long as its size is unchanged and it
// gains no lamports.
func (r *Runtime) checkRent(ctx context.Context, msg *solana.Message, accounts []*account) *solana.TransactionError {
	rent := r.Rent(ctx)
	for i, a := range accounts {
		if !msg.IsWritable(i) || a.executable || !a.changed() || a.lamports == 0 {
			continue
		}
		if a.lamports >= rent.MinimumBalance(uint64(len(a.data))) {
			continue
		}
		if a.wasRentPaying(rent) && len(a.data) == len(a.record.Data) && a.lamports <= a.record.Lamports {
			continue
		}
		return solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForRent)
	}
	return nil
}

// execute runs each instruction in order, stopping at the first failure.
func (e *executor) execute() *solana.TransactionError {
	for i := range e.msg.Instructions {
		if err := e.executeInstruction(i); err != nil {
			e.log.WithError(err).WithField("instruction", i).Debug("instruction failed")
			return transactionError(i, err)
		}
	}
	return nil
}

func (e *executor) executeInstruction(index int) (err error) {
	ix := e.msg.Instructions[index]

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		e.stack = e.stack[:0]
		if a, ok := r.(abort); ok {
			err = a.err
			return
		}

		e.log.WithFields(logrus.Fields{
			"instruction": index,
			"panic":       fmt.Sprintf("%v", r),
			"stack":       string(debug.Stack()),
		}).Warn("program panicked")
		err = errProgramFailedToComplete
	}()

	accounts := make([]instructionAccount, len(ix.Accounts))
	for i, accountIndex := range ix.Accounts {
		accounts[i] = instructionAccount{
			index:    int(accountIndex),
			signer:   e.msg.IsSigner(int(accountIndex)),
			writable: e.msg.IsWritable(int(accountIndex)),
		}
	}

	return e.invoke(e.msg.Accounts[ix.ProgramIndex], accounts, ix.Data)
}

// logf records a program log line.
func (e *executor) logf(format string, args ...interface{}) {
	if !e.rt.conf.enableProgramLogs.Get(e.ctx) {
		return
	}
	e.logs = append(e.logs, fmt.Sprintf(format, args...))
}

// instructionAccount is an account as seen by one invocation, with the
// privileges granted to it there.
type instructionAccount struct {
	index    int
	signer   bool
	writable bool
}

// frame is one program invocation on the call stack.
type frame struct {
	programID ed25519.PublicKey
	accounts  []instructionAccount

	// pre holds, per transaction account index, the state the checks after
	// this invocation compare against.
	pre map[int]snapshot

	// region and offsets are set for programs run over an input region.
	region      []byte
	offsets     []uint64
	originalLen map[int]uint64
}

func (f *frame) isWritable(index int) bool {
	for _, a := range f.accounts {
		if a.index == index && a.writable {
			return true
		}
	}
	return false
}

// at returns the i-th instruction account of the frame.
func (f *frame) at(e *executor, i int) (*account, instructionAccount, error) {
	if i >= len(f.accounts) {
		return nil, instructionAccount{}, program.ErrNotEnoughAccountKeys
	}
	return e.accounts[f.accounts[i].index], f.accounts[i], nil
}

func (f *frame) snapshot(e *executor) {
	f.pre = make(map[int]snapshot, len(f.accounts))
	for _, a := range f.accounts {
		if _, ok := f.pre[a.index]; !ok {
			f.pre[a.index] = e.accounts[a.index].snapshot()
		}
	}
}

// invoke runs programID over accounts, then checks the changes it made.
func (e *executor) invoke(programID ed25519.PublicKey, accounts []instructionAccount, data []byte) error {
	if uint64(len(e.stack)) >= e.rt.conf.maxInvokeDepth.Get(e.ctx) {
		return errCallDepth
	}
	for i, caller := range e.stack {
		if bytes.Equal(caller.programID, programID) && i != len(e.stack)-1 {
			return errReentrancyNotAllowed
		}
	}

	before := e.meter.remaining
	e.meter.consume(e.rt.conf.invocationCost.Get(e.ctx))

	f := &frame{
		programID: programID,
		accounts:  accounts,
	}
	f.snapshot(e)

	e.stack = append(e.stack, f)
	defer func() {
		e.stack = e.stack[:len(e.stack)-1]
	}()

	encoded := base58.Encode(programID)
	e.logf("Program %s invoke [%d]", encoded, len(e.stack))

	var err error
	if native, ok := e.rt.natives[string(programID)]; ok {
		err = native(e, f, data)
	} else if entrypoint, ok := e.rt.getProgram(programID); ok {
		err = e.run(f, entrypoint, data)
	} else {
		err = errUnsupportedProgramID
	}

	if err == nil {
		err = e.verify(f)
	}

	e.logf("Program %s consumed %d of %d compute units", encoded, before-e.meter.remaining, before)
	if err != nil {
		e.logf("Program %s failed: %s", encoded, err)
		return err
	}
	e.logf("Program %s success", encoded)
	return nil
}

// verify checks every account change made during the frame, and that the
// frame created or destroyed no lamports.
func (e *executor) verify(f *frame) error {
	var pre, post lamportSum
	for index, before := range f.pre {
		a := e.accounts[index]
		if err := verifyChange(f.programID, before, a, f.isWritable(index)); err != nil {
			return err
		}

		pre.add(before.lamports)
		post.add(a.lamports)
	}

	if pre != post {
		return errUnbalancedInstruction
	}
	return nil
}

// meter tracks the compute units left to a transaction.
type meter struct {
	limit     uint64
	remaining uint64
}

// consume charges units, aborting the running program once the budget is
// exhausted.
func (m *meter) consume(units uint64) {
	if units > m.remaining {
		m.remaining = 0
		panic(abort{err: errComputationalBudgetExceeded})
	}
	m.remaining -= units
}

func (m *meter) consumed() uint64 {
	return m.limit - m.remaining
}
