package runtime

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"math"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/counter-program/pkg/ledger"
	"github.com/code-payments/counter-program/pkg/metrics"
	"github.com/code-payments/counter-program/pkg/solana"
	"github.com/code-payments/counter-program/pkg/solana/system"
)

// RequestAirdrop mints lamports into the system account at key. Requests are
// rate limited per recipient and capped in size.
func (r *Runtime) RequestAirdrop(ctx context.Context, key ed25519.PublicKey, lamports uint64) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "RequestAirdrop")
	defer tracer.End()

	address := base58.Encode(key)
	log := r.log.WithFields(logrus.Fields{
		"method":   "RequestAirdrop",
		"address":  address,
		"lamports": lamports,
	})

	sig, err := func() (solana.Signature, error) {
		if lamports == 0 || lamports > r.conf.faucetMaxLamports.Get(ctx) {
			return solana.Signature{}, ErrInvalidAirdrop
		}

		allowed, err := r.faucet.Allow(address)
		if err != nil {
			return solana.Signature{}, errors.Wrap(err, "failure checking faucet rate limit")
		} else if !allowed {
			return solana.Signature{}, ErrAirdropRateLimited
		}

		release := r.accountLocks.Acquire([][]byte{key}, []bool{true})
		defer release()

		record, err := r.store.Get(ctx, address)
		if err == ledger.ErrAccountNotFound {
			record = &ledger.Record{
				Address: address,
				Owner:   base58.Encode(system.ProgramKey[:]),
			}
		} else if err != nil {
			return solana.Signature{}, errors.Wrap(err, "failure loading recipient")
		}

		if record.Lamports > math.MaxInt64-lamports {
			return solana.Signature{}, ErrInvalidAirdrop
		}

		var nonce [8]byte
		binary.LittleEndian.PutUint64(nonce[:], record.Version)
		blockhash := r.GetLatestBlockhash()
		sig := solana.Signature(sha512.Sum512(append(append(append([]byte{}, key...), nonce[:]...), blockhash[:]...)))

		slot := r.advance(sha256.Sum256(sig[:]))

		record.Lamports += lamports
		record.Slot = slot
		if err := r.store.Save(ctx, record); err != nil {
			return solana.Signature{}, errors.Wrap(err, "failure crediting recipient")
		}

		r.signatures.Add(sig)
		r.record(sig, &transactionStatus{slot: slot})
		return sig, nil
	}()
	if err != nil {
		tracer.OnError(err)
		log.WithError(err).Debug("airdrop rejected")
		return solana.Signature{}, err
	}

	metrics.RecordCount(ctx, "RuntimeAirdrops", 1)
	log.Debug("airdrop credited")
	return sig, nil
}
