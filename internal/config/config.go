// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// GameConfig holds everything the match engine needs: tick pacing, world
// dimensions, and mode tuning constants.
type GameConfig struct {
	TickRate         int     // Simulation ticks per second
	BroadcastDivisor int     // Snapshots every Nth tick (1 = every tick)
	WorldWidth       float64 // World units
	WorldHeight      float64

	RespawnDelay        float64 // Seconds between death and respawn
	SpawnProtectSeconds float64 // Invulnerability window after spawning

	RoundSeconds float64 // Round duration (0 = untimed)
	RestSeconds  float64 // Rest between rounds
	Rounds       int     // Rounds per match (0 = single endless round)
	ScoreLimit   int     // First team to reach it wins (0 = none)

	// KOTH tuning.
	CaptureSeconds      float64
	ZoneRadius          float64
	ZoneCount           int
	ZonePointsPerSecond float64

	// CTF / oddball tuning.
	FlagReturnSeconds      float64
	OddballPointsPerSecond float64

	// Juggernaut / lone-wolf tuning.
	JuggernautPoints int
	LoneWolfGrowth   float64 // Attribute multiplier step per wolf death

	// Zombie defense tuning.
	ZombieBaseWave    int
	ZombiePerWave     int
	ZombieRestSeconds float64
	ZombieHumanLives  int

	// Weapon preset overrides.
	WeaponDamageMult float64
	ReloadMult       float64
}

// DefaultGame returns the default simulation configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickRate:         60,
		BroadcastDivisor: 1,
		WorldWidth:       2400,
		WorldHeight:      1600,

		RespawnDelay:        3.0,
		SpawnProtectSeconds: 2.0,

		RoundSeconds: 300,
		RestSeconds:  10,
		Rounds:       1,
		ScoreLimit:   50,

		CaptureSeconds:      3.0,
		ZoneRadius:          80,
		ZoneCount:           1,
		ZonePointsPerSecond: 1,

		FlagReturnSeconds:      15,
		OddballPointsPerSecond: 1,

		JuggernautPoints: 5,
		LoneWolfGrowth:   0.10,

		ZombieBaseWave:    6,
		ZombiePerWave:     4,
		ZombieRestSeconds: 8,
		ZombieHumanLives:  3,

		WeaponDamageMult: 1.0,
		ReloadMult:       1.0,
	}
}

// GameFromEnv returns simulation configuration with environment variable
// overrides. Environment variables take precedence over defaults.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvInt("BROADCAST_DIVISOR", 0); v > 0 {
		cfg.BroadcastDivisor = v
	}
	if v := getEnvFloat("WORLD_WIDTH", 0); v > 0 {
		cfg.WorldWidth = v
	}
	if v := getEnvFloat("WORLD_HEIGHT", 0); v > 0 {
		cfg.WorldHeight = v
	}
	if v := getEnvFloat("RESPAWN_DELAY", -1); v >= 0 {
		cfg.RespawnDelay = v
	}
	if v := getEnvInt("SCORE_LIMIT", -1); v >= 0 {
		cfg.ScoreLimit = v
	}
	if v := getEnvFloat("ROUND_SECONDS", 0); v > 0 {
		cfg.RoundSeconds = v
	}
	if v := getEnvInt("ROUNDS", 0); v > 0 {
		cfg.Rounds = v
	}
	if v := getEnvFloat("RELOAD_MULT", 0); v > 0 {
		cfg.ReloadMult = v
	}
	if v := getEnvFloat("WEAPON_DAMAGE_MULT", 0); v > 0 {
		cfg.WeaponDamageMult = v
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// Limits controls capacity and DoS protection.
type Limits struct {
	MaxPlayersPerMatch    int
	MaxGlobalPlayers      int
	MaxSpectatorsPerMatch int
	MaxEntitiesPerMatch   int // Hard cap on live entities per match
	MaxMatches            int // Concurrent matches (tick pool size)
	MatchCullInterval     time.Duration
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPlayersPerMatch:    16,
		MaxGlobalPlayers:      256,
		MaxSpectatorsPerMatch: 16,
		MaxEntitiesPerMatch:   2000,
		MaxMatches:            64,
		MatchCullInterval:     60 * time.Second,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() Limits {
	cfg := DefaultLimits()

	if v := getEnvInt("MAX_PLAYERS_PER_MATCH", 0); v > 0 {
		cfg.MaxPlayersPerMatch = v
	}
	if v := getEnvInt("MAX_GLOBAL_PLAYERS", 0); v > 0 {
		cfg.MaxGlobalPlayers = v
	}
	if v := getEnvInt("MAX_SPECTATORS_PER_MATCH", -1); v >= 0 {
		cfg.MaxSpectatorsPerMatch = v
	}
	if v := getEnvInt("MAX_ENTITIES_PER_MATCH", 0); v > 0 {
		cfg.MaxEntitiesPerMatch = v
	}
	if v := getEnvInt("MAX_MATCHES", 0); v > 0 {
		cfg.MaxMatches = v
	}
	if v := getEnvInt("MATCH_CULL_INTERVAL", 0); v > 0 {
		cfg.MatchCullInterval = time.Duration(v) * time.Second
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               int
	DebugPort          int // localhost-only pprof/metrics server
	DisableDebugServer bool
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		DebugPort: 6060,
	}
}

// ServerFromEnv returns server configuration with environment variable
// overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if p := getEnvInt("DEBUG_PORT", 0); p > 0 {
		cfg.DebugPort = p
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DisableDebugServer = true
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// Config holds the complete application configuration.
type Config struct {
	Game   GameConfig
	Server ServerConfig
	Limits Limits
}

// Load returns the complete configuration with environment overrides.
func Load() Config {
	return Config{
		Game:   GameFromEnv(),
		Server: ServerFromEnv(),
		Limits: LimitsFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
