package runtime

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/code-payments/counter-program/pkg/solana/program"
)

// run serializes the frame's accounts into an input region, executes
// entrypoint over it and applies the resulting region back to the
// transaction accounts.
func (e *executor) run(f *frame, entrypoint Entrypoint, data []byte) error {
	serialized := make([]program.SerializeAccount, len(f.accounts))
	f.originalLen = make(map[int]uint64, len(f.accounts))
	for i, ia := range f.accounts {
		a := e.accounts[ia.index]
		serialized[i] = program.SerializeAccount{
			Key:        a.key,
			Owner:      a.owner,
			Lamports:   a.lamports,
			Data:       a.data,
			RentEpoch:  a.rentEpoch,
			IsSigner:   ia.signer,
			IsWritable: ia.writable,
			Executable: a.executable,
		}
		f.originalLen[ia.index] = uint64(len(a.data))
	}
	f.region, f.offsets = program.Serialize(serialized, data, f.programID)

	sys := &syscalls{e: e, f: f}
	if err := program.FromResult(entrypoint(sys, f.region)); err != nil {
		return err
	}

	for i, ia := range f.accounts {
		if err := e.syncFromRegion(f, i, ia.index); err != nil {
			return err
		}
	}
	return nil
}

// syncFromRegion copies the state of the i-th frame account out of the input
// region.
func (e *executor) syncFromRegion(f *frame, i, index int) error {
	offset := f.offsets[i]
	dataLen := binary.LittleEndian.Uint64(f.region[offset+program.OffsetDataLen:])
	if dataLen > f.originalLen[index]+program.MaxPermittedDataIncrease {
		return errInvalidRealloc
	}

	state := program.ReadSerializedAccount(f.region, offset)
	a := e.accounts[index]
	a.owner = state.Owner
	a.lamports = state.Lamports
	a.data = state.Data
	return nil
}

// syncToRegion writes the state of the i-th frame account into the input
// region after a cross program invocation changed it.
func (e *executor) syncToRegion(f *frame, i, index int) error {
	a := e.accounts[index]
	dataLen := uint64(len(a.data))
	if dataLen > f.originalLen[index]+program.MaxPermittedDataIncrease {
		return errInvalidRealloc
	}

	header := f.region[f.offsets[i]:]
	copy(header[program.OffsetOwner:program.OffsetOwner+program.PubkeySize], a.owner)
	binary.LittleEndian.PutUint64(header[program.OffsetLamports:], a.lamports)

	previousLen := binary.LittleEndian.Uint64(header[program.OffsetDataLen:])
	binary.LittleEndian.PutUint64(header[program.OffsetDataLen:], dataLen)
	copy(header[program.OffsetData:], a.data)
	if previousLen > dataLen {
		tail := header[program.OffsetData+dataLen : program.OffsetData+previousLen]
		for j := range tail {
			tail[j] = 0
		}
	}
	return nil
}

// indexOf returns the position in the frame of the account with key.
func (f *frame) indexOf(e *executor, key []byte) (int, bool) {
	for i, ia := range f.accounts {
		if bytes.Equal(e.accounts[ia.index].key, key) {
			return i, true
		}
	}
	return 0, false
}

// syscalls services the host calls of one program invocation.
type syscalls struct {
	e *executor
	f *frame
}

// InvokeSignedC implements program.Syscalls.InvokeSignedC. Failures abort the
// calling program, so the only result it ever hands back is success.
//
// Reference: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/programs/bpf_loader/src/syscalls/cpi.rs
func (s *syscalls) InvokeSignedC(ix *program.InstructionC, infos []program.AccountInfoC, signerSeeds [][][]byte) uint64 {
	e, f := s.e, s.f

	e.meter.consume(e.rt.conf.cpiCost.Get(e.ctx))

	// Program derived signers aren't supported.
	if len(signerSeeds) > 0 {
		panic(abort{err: errInvalidSeeds})
	}
	if ix == nil || ix.ProgramID == nil {
		panic(abort{err: errMissingAccount})
	}
	programID := ed25519.PublicKey(append([]byte{}, ix.ProgramID[:]...))

	// Every account handed over must come from the caller, and its region must
	// not be borrowed while the callee can change it.
	infoPositions := make([]int, len(infos))
	for i, info := range infos {
		if info.Key == nil {
			panic(abort{err: errMissingAccount})
		}

		position, ok := f.indexOf(e, info.Key[:])
		if !ok {
			panic(abort{err: errMissingAccount})
		}
		if f.region[f.offsets[position]+program.OffsetBorrowState] != 0 {
			panic(abort{err: errAccountBorrowFailed})
		}
		infoPositions[i] = position
	}

	callee := make([]instructionAccount, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		if meta.Pubkey == nil {
			panic(abort{err: errMissingAccount})
		}

		var found bool
		for _, position := range infoPositions {
			if bytes.Equal(e.accounts[f.accounts[position].index].key, meta.Pubkey[:]) {
				found = true
				break
			}
		}
		if !found {
			panic(abort{err: errMissingAccount})
		}

		position, _ := f.indexOf(e, meta.Pubkey[:])
		caller := f.accounts[position]
		if (meta.IsWritable && !f.isWritable(caller.index)) || (meta.IsSigner && !s.isSigner(caller.index)) {
			panic(abort{err: errPrivilegeEscalation})
		}

		callee[i] = instructionAccount{
			index:    caller.index,
			signer:   meta.IsSigner,
			writable: meta.IsWritable,
		}
	}

	// Bring the caller's changes so far into the transaction accounts and
	// check them, before the callee observes them.
	for _, position := range infoPositions {
		index := f.accounts[position].index
		if err := e.syncFromRegion(f, position, index); err != nil {
			panic(abort{err: err})
		}
		if err := verifyChange(f.programID, f.pre[index], e.accounts[index], f.isWritable(index)); err != nil {
			panic(abort{err: err})
		}
	}

	if err := e.invoke(programID, callee, append([]byte{}, ix.Data...)); err != nil {
		panic(abort{err: err})
	}

	// The callee's changes become the caller's new baseline.
	for _, position := range infoPositions {
		index := f.accounts[position].index
		if err := e.syncToRegion(f, position, index); err != nil {
			panic(abort{err: err})
		}
		f.pre[index] = e.accounts[index].snapshot()
	}

	return program.Success
}

func (s *syscalls) isSigner(index int) bool {
	for _, ia := range s.f.accounts {
		if ia.index == index && ia.signer {
			return true
		}
	}
	return false
}

// GetRentSysvar implements program.Syscalls.GetRentSysvar.
func (s *syscalls) GetRentSysvar(rent *program.Rent) uint64 {
	s.e.meter.consume(s.e.rt.conf.sysvarCost.Get(s.e.ctx))

	*rent = s.e.rt.Rent(s.e.ctx)
	return program.Success
}

// Log implements program.Syscalls.Log.
func (s *syscalls) Log(message string) {
	s.e.meter.consume(s.e.rt.conf.logCost.Get(s.e.ctx))

	s.e.logf("Program log: %s", message)
}
