package counter

import (
	"crypto/ed25519"

	"github.com/code-payments/counter-program/pkg/solana/binary"
	"github.com/code-payments/counter-program/pkg/solana/program"
	"github.com/code-payments/counter-program/pkg/solana/system"
)

// createAccountRequest is a system program CreateAccount call laid out in the
// host's C-ABI. It lives on the caller's stack for the duration of one invoke.
type createAccountRequest struct {
	data  [system.CreateAccountDataSize]byte
	metas [2]program.AccountMetaC
	infos [2]program.AccountInfoC
	ix    program.InstructionC
}

// build fills the request. payer funds lamports into counter, which is
// allocated size bytes and assigned to owner.
func (r *createAccountRequest) build(payer, counter *program.AccountInfo, lamports, size uint64, owner ed25519.PublicKey) {
	var offset int
	binary.PutUint32(r.data[offset:], system.CommandCreateAccount, &offset)
	binary.PutUint64(r.data[offset:], lamports, &offset)
	binary.PutUint64(r.data[offset:], size, &offset)
	binary.PutKey32(r.data[offset:], owner, &offset)

	r.metas[0] = payer.ToMetaC()
	r.metas[1] = counter.ToMetaC()

	r.infos[0] = payer.ToInfoC()
	r.infos[1] = counter.ToInfoC()

	r.ix = program.InstructionC{
		ProgramID: &system.ProgramKey,
		Accounts:  r.metas[:],
		Data:      r.data[:offset],
	}
}

// createCounterAccount asks the system program to create counter as a rent
// exempt account of CounterAccountSize bytes owned by owner.
func createCounterAccount(sys program.Syscalls, payer, counter *program.AccountInfo, owner ed25519.PublicKey) error {
	var rent program.Rent
	if err := program.FromResult(sys.GetRentSysvar(&rent)); err != nil {
		return err
	}

	var req createAccountRequest
	req.build(payer, counter, rent.MinimumBalance(CounterAccountSize), CounterAccountSize, owner)

	return program.FromResult(sys.InvokeSignedC(&req.ix, req.infos[:], nil))
}
