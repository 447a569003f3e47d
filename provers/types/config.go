package types

import (
	"os"
	"strconv"
	"time"
)

// Config holds the prover configuration
type Config struct {
	RootDir string

	// RPCEndpoint is the beacon node REST endpoint, or a directory when DataSource is "file"
	RPCEndpoint string
	DataSource  string

	SlotsPerEpoch  uint64
	SlotsPerPeriod uint64
	HTTPTimeout    time.Duration

	// Prover selects the proving backend: "external" or "gnark"
	Prover string
	// WitnessGen and Rapidsnark are the external binaries, Zkey the proving key they use
	WitnessGen string
	Rapidsnark string
	Zkey       string
	// Circuit is the base name of the gnark circuit artifacts under RootDir
	Circuit string
}

func NewConfig() *Config {
	return &Config{
		RootDir:        getEnv("ROOT", "."),
		RPCEndpoint:    getEnv("RPC_ENDPOINT", "https://lodestar-mainnet.chainsafe.io/"),
		DataSource:     getEnv("DATA_SOURCE", "rpc"),
		SlotsPerEpoch:  getEnvUint("SLOTS_PER_EPOCH", 32),
		SlotsPerPeriod: getEnvUint("SLOTS_PER_PERIOD", 8192),
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 0),
		Prover:         getEnv("PROVER", "external"),
		WitnessGen:     getEnv("WITNESS_GEN", "./build/main_c"),
		Rapidsnark:     getEnv("RAPIDSNARK", "rapidsnark"),
		Zkey:           getEnv("ZKEY", "build/p1.zkey"),
		Circuit:        getEnv("CIRCUIT", "StepCircuit"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if v, err := strconv.ParseUint(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
