package runtime

import (
	"github.com/code-payments/counter-program/pkg/config"
	"github.com/code-payments/counter-program/pkg/config/env"
	"github.com/code-payments/counter-program/pkg/config/memory"
	"github.com/code-payments/counter-program/pkg/config/wrapper"
	"github.com/code-payments/counter-program/pkg/solana/program"
)

const (
	envConfigPrefix = "RUNTIME_"

	DefaultComputeUnitLimitConfigEnvName = envConfigPrefix + "DEFAULT_COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit              = 200_000

	MaxComputeUnitLimitConfigEnvName = envConfigPrefix + "MAX_COMPUTE_UNIT_LIMIT"
	defaultMaxComputeUnitLimit       = 1_400_000

	InvocationCostConfigEnvName = envConfigPrefix + "INVOCATION_COST"
	defaultInvocationCost       = 1_000

	CpiCostConfigEnvName = envConfigPrefix + "CPI_COST"
	defaultCpiCost       = 1_000

	LogCostConfigEnvName = envConfigPrefix + "LOG_COST"
	defaultLogCost       = 100

	SysvarCostConfigEnvName = envConfigPrefix + "SYSVAR_COST"
	defaultSysvarCost       = 100

	MaxInvokeDepthConfigEnvName = envConfigPrefix + "MAX_INVOKE_DEPTH"
	defaultMaxInvokeDepth       = 4

	LamportsPerSignatureConfigEnvName = envConfigPrefix + "LAMPORTS_PER_SIGNATURE"
	defaultLamportsPerSignature       = 5_000

	LamportsPerByteYearConfigEnvName = envConfigPrefix + "LAMPORTS_PER_BYTE_YEAR"
	defaultLamportsPerByteYear       = program.DefaultLamportsPerByteYear

	RentExemptionThresholdConfigEnvName = envConfigPrefix + "RENT_EXEMPTION_THRESHOLD"
	defaultRentExemptionThreshold       = program.DefaultExemptionThreshold

	MaxRecentBlockhashesConfigEnvName = envConfigPrefix + "MAX_RECENT_BLOCKHASHES"
	defaultMaxRecentBlockhashes       = 150

	AccountLockStripesConfigEnvName = envConfigPrefix + "ACCOUNT_LOCK_STRIPES"
	defaultAccountLockStripes       = 1024

	ExpectedSignaturesConfigEnvName = envConfigPrefix + "EXPECTED_SIGNATURES"
	defaultExpectedSignatures       = 1_000_000

	FaucetRateLimitConfigEnvName = envConfigPrefix + "FAUCET_RATE_LIMIT"
	defaultFaucetRateLimit       = 5.0

	FaucetMaxLamportsConfigEnvName = envConfigPrefix + "FAUCET_MAX_LAMPORTS"
	defaultFaucetMaxLamports       = 10_000_000_000

	EnableProgramLogsConfigEnvName = envConfigPrefix + "ENABLE_PROGRAM_LOGS"
	defaultEnableProgramLogs       = true
)

type conf struct {
	defaultComputeUnitLimit config.Uint64
	maxComputeUnitLimit     config.Uint64
	invocationCost          config.Uint64
	cpiCost                 config.Uint64
	logCost                 config.Uint64
	sysvarCost              config.Uint64
	maxInvokeDepth          config.Uint64

	lamportsPerSignature   config.Uint64
	lamportsPerByteYear    config.Uint64
	rentExemptionThreshold config.Float64

	maxRecentBlockhashes config.Uint64
	accountLockStripes   config.Uint64
	expectedSignatures   config.Uint64

	faucetRateLimit   config.Float64
	faucetMaxLamports config.Uint64

	enableProgramLogs config.Bool
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			defaultComputeUnitLimit: env.NewUint64Config(DefaultComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			maxComputeUnitLimit:     env.NewUint64Config(MaxComputeUnitLimitConfigEnvName, defaultMaxComputeUnitLimit),
			invocationCost:          env.NewUint64Config(InvocationCostConfigEnvName, defaultInvocationCost),
			cpiCost:                 env.NewUint64Config(CpiCostConfigEnvName, defaultCpiCost),
			logCost:                 env.NewUint64Config(LogCostConfigEnvName, defaultLogCost),
			sysvarCost:              env.NewUint64Config(SysvarCostConfigEnvName, defaultSysvarCost),
			maxInvokeDepth:          env.NewUint64Config(MaxInvokeDepthConfigEnvName, defaultMaxInvokeDepth),

			lamportsPerSignature:   env.NewUint64Config(LamportsPerSignatureConfigEnvName, defaultLamportsPerSignature),
			lamportsPerByteYear:    env.NewUint64Config(LamportsPerByteYearConfigEnvName, defaultLamportsPerByteYear),
			rentExemptionThreshold: env.NewFloat64Config(RentExemptionThresholdConfigEnvName, defaultRentExemptionThreshold),

			maxRecentBlockhashes: env.NewUint64Config(MaxRecentBlockhashesConfigEnvName, defaultMaxRecentBlockhashes),
			accountLockStripes:   env.NewUint64Config(AccountLockStripesConfigEnvName, defaultAccountLockStripes),
			expectedSignatures:   env.NewUint64Config(ExpectedSignaturesConfigEnvName, defaultExpectedSignatures),

			faucetRateLimit:   env.NewFloat64Config(FaucetRateLimitConfigEnvName, defaultFaucetRateLimit),
			faucetMaxLamports: env.NewUint64Config(FaucetMaxLamportsConfigEnvName, defaultFaucetMaxLamports),

			enableProgramLogs: env.NewBoolConfig(EnableProgramLogsConfigEnvName, defaultEnableProgramLogs),
		}
	}
}

type testOverrides struct {
	defaultComputeUnitLimit uint64
	invocationCost          uint64
	sysvarCost              uint64
	maxRecentBlockhashes    uint64
	faucetRateLimit         float64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	if overrides.defaultComputeUnitLimit == 0 {
		overrides.defaultComputeUnitLimit = defaultComputeUnitLimit
	}
	if overrides.invocationCost == 0 {
		overrides.invocationCost = defaultInvocationCost
	}
	if overrides.sysvarCost == 0 {
		overrides.sysvarCost = defaultSysvarCost
	}
	if overrides.maxRecentBlockhashes == 0 {
		overrides.maxRecentBlockhashes = defaultMaxRecentBlockhashes
	}
	if overrides.faucetRateLimit == 0 {
		overrides.faucetRateLimit = 1_000
	}

	return func() *conf {
		return &conf{
			defaultComputeUnitLimit: wrapper.NewUint64Config(memory.NewConfig(overrides.defaultComputeUnitLimit), defaultComputeUnitLimit),
			maxComputeUnitLimit:     wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxComputeUnitLimit)), defaultMaxComputeUnitLimit),
			invocationCost:          wrapper.NewUint64Config(memory.NewConfig(overrides.invocationCost), defaultInvocationCost),
			cpiCost:                 wrapper.NewUint64Config(memory.NewConfig(uint64(defaultCpiCost)), defaultCpiCost),
			logCost:                 wrapper.NewUint64Config(memory.NewConfig(uint64(defaultLogCost)), defaultLogCost),
			sysvarCost:              wrapper.NewUint64Config(memory.NewConfig(overrides.sysvarCost), defaultSysvarCost),
			maxInvokeDepth:          wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxInvokeDepth)), defaultMaxInvokeDepth),

			lamportsPerSignature:   wrapper.NewUint64Config(memory.NewConfig(uint64(defaultLamportsPerSignature)), defaultLamportsPerSignature),
			lamportsPerByteYear:    wrapper.NewUint64Config(memory.NewConfig(uint64(defaultLamportsPerByteYear)), defaultLamportsPerByteYear),
			rentExemptionThreshold: wrapper.NewFloat64Config(memory.NewConfig(defaultRentExemptionThreshold), defaultRentExemptionThreshold),

			maxRecentBlockhashes: wrapper.NewUint64Config(memory.NewConfig(overrides.maxRecentBlockhashes), defaultMaxRecentBlockhashes),
			accountLockStripes:   wrapper.NewUint64Config(memory.NewConfig(uint64(16)), defaultAccountLockStripes),
			expectedSignatures:   wrapper.NewUint64Config(memory.NewConfig(uint64(10_000)), defaultExpectedSignatures),

			faucetRateLimit:   wrapper.NewFloat64Config(memory.NewConfig(overrides.faucetRateLimit), defaultFaucetRateLimit),
			faucetMaxLamports: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultFaucetMaxLamports)), defaultFaucetMaxLamports),

			enableProgramLogs: wrapper.NewBoolConfig(memory.NewConfig(true), defaultEnableProgramLogs),
		}
	}
}
