package main

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/counter-program/pkg/counter"
	"github.com/code-payments/counter-program/pkg/metrics"
	"github.com/code-payments/counter-program/pkg/retry"
	"github.com/code-payments/counter-program/pkg/retry/backoff"
	"github.com/code-payments/counter-program/pkg/solana"
	compute_budget "github.com/code-payments/counter-program/pkg/solana/computebudget"
	"github.com/code-payments/counter-program/pkg/solana/memo"
)

var (
	errNotConfirmed   = errors.New("transaction not yet confirmed")
	errCountMismatch  = errors.New("counter value doesn't match the increments submitted")
	errConfirmTimeout = errors.New("timed out waiting for confirmation")
)

// session drives one counter through its lifecycle against a solana.Client.
type session struct {
	log    *logrus.Entry
	client solana.Client
	conf   *Config
	payer  ed25519.PrivateKey
}

type sessionResult struct {
	Counter    ed25519.PublicKey
	Count      uint64
	Signatures []solana.Signature
}

func newSession(client solana.Client, conf *Config, payer ed25519.PrivateKey) *session {
	return &session{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type":  "counter/session",
			"payer": base58.Encode(payer.Public().(ed25519.PublicKey)),
		}),
		client: client,
		conf:   conf,
		payer:  payer,
	}
}

// run funds the payer, creates a fresh counter account, increments it and
// checks the stored value matches.
func (s *session) run(ctx context.Context) (*sessionResult, error) {
	ctx, end := metrics.StartTransaction(ctx, "counter/session")
	defer end()

	res := &sessionResult{}

	if s.conf.AirdropLamports > 0 {
		sig, err := s.client.RequestAirdrop(s.payerKey(), s.conf.AirdropLamports, solana.CommitmentConfirmed)
		if err != nil {
			return res, errors.Wrap(err, "failed to request airdrop")
		}
		if err := s.waitForConfirmation(sig); err != nil {
			return res, errors.Wrap(err, "airdrop failed")
		}
		res.Signatures = append(res.Signatures, sig)
		s.log.WithField("lamports", s.conf.AirdropLamports).Info("payer funded")
	}

	_, counterKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return res, errors.Wrap(err, "failed to generate counter key")
	}
	res.Counter = counterKey.Public().(ed25519.PublicKey)
	log := s.log.WithField("counter", base58.Encode(res.Counter))

	sig, err := s.submit(
		[]ed25519.PrivateKey{counterKey},
		counter.NewInitializeInstruction(s.payerKey(), res.Counter),
	)
	res.track(s, sig, err)
	if err != nil {
		return res, errors.Wrap(err, "failed to initialize counter")
	}
	log.Info("counter initialized")

	for i := uint64(0); i < s.conf.Increments; i++ {
		instructions := []solana.Instruction{counter.NewIncrementInstruction(res.Counter, s.payerKey())}
		if len(s.conf.Memo) > 0 {
			instructions = append(instructions, memo.Instruction(s.conf.Memo))
		}

		sig, err := s.submit(nil, instructions...)
		res.track(s, sig, err)
		if err != nil {
			return res, errors.Wrapf(err, "failed to submit increment %d", i+1)
		}
		metrics.RecordCount(ctx, "CounterIncrements", 1)
	}

	info, err := s.client.GetAccountInfo(res.Counter, solana.CommitmentConfirmed)
	if err != nil {
		return res, errors.Wrap(err, "failed to load counter")
	}
	res.Count, err = counter.UnmarshalCounterAccount(info.Data)
	if err != nil {
		return res, errors.Wrap(err, "invalid counter account")
	}
	if res.Count != s.conf.Increments {
		return res, errors.Wrapf(errCountMismatch, "expected %d, got %d", s.conf.Increments, res.Count)
	}

	log.WithField("count", res.Count).Info("counter verified")
	return res, nil
}

// submit signs instructions with the payer and extra signers, sends them and
// waits for confirmation.
func (s *session) submit(signers []ed25519.PrivateKey, instructions ...solana.Instruction) (solana.Signature, error) {
	if s.conf.ComputeUnitLimit > 0 {
		instructions = append([]solana.Instruction{compute_budget.SetComputeUnitLimit(s.conf.ComputeUnitLimit)}, instructions...)
	}

	blockhash, err := s.client.GetLatestBlockhash()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to get recent blockhash")
	}

	txn := solana.NewTransaction(s.payerKey(), instructions...)
	txn.SetBlockhash(blockhash)
	if err := txn.Sign(append([]ed25519.PrivateKey{s.payer}, signers...)...); err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to sign transaction")
	}

	sig, err := s.client.SubmitTransaction(txn, solana.CommitmentConfirmed)
	if err != nil {
		return sig, err
	}
	return sig, s.waitForConfirmation(sig)
}

// waitForConfirmation polls until sig is confirmed. A transaction that landed
// with an error is reported as that error.
func (s *session) waitForConfirmation(sig solana.Signature) error {
	var failed error
	attempts := uint(s.conf.ConfirmationTimeout / s.conf.PollInterval)

	_, err := retry.Retry(
		func() error {
			status, err := s.client.GetSignatureStatus(sig, solana.CommitmentConfirmed)
			if err != nil {
				return err
			}
			if status.ErrorResult != nil {
				failed = status.ErrorResult
				return nil
			}
			if !status.Confirmed() {
				return errNotConfirmed
			}
			return nil
		},
		retry.RetriableErrors(errNotConfirmed, solana.ErrSignatureNotFound),
		retry.Limit(attempts),
		retry.Backoff(backoff.Constant(s.conf.PollInterval), s.conf.PollInterval),
	)
	if err == errNotConfirmed || err == solana.ErrSignatureNotFound {
		return errors.Wrapf(errConfirmTimeout, "%s after %v", base58.Encode(sig[:]), time.Duration(attempts)*s.conf.PollInterval)
	} else if err != nil {
		return err
	}
	return failed
}

// track records sig if it made it into the ledger. A transaction that failed
// during execution is kept so its program logs can be inspected, one that was
// rejected outright is not.
func (r *sessionResult) track(s *session, sig solana.Signature, err error) {
	if sig == (solana.Signature{}) {
		return
	}
	if err != nil {
		if _, statusErr := s.client.GetSignatureStatus(sig, solana.CommitmentProcessed); statusErr != nil {
			return
		}
	}
	r.Signatures = append(r.Signatures, sig)
}

func (s *session) payerKey() ed25519.PublicKey {
	return s.payer.Public().(ed25519.PublicKey)
}
