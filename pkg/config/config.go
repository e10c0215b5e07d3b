package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cfortin/slapshot/pkg/log"
	"gopkg.in/yaml.v3"
)

// Combo reward types.
const (
	RewardExtraPoint = "extra_point"
	RewardPowerUp    = "power_up"
)

// Config holds every gameplay option. Durations and frequencies are
// expressed in seconds in the file and over the environment; frequencies
// are mean intervals that the scheduler converts to per-tick trigger
// probabilities.
type Config struct {
	PeriodLength         int    `yaml:"period_length" json:"period_length"`
	OvertimeLength       int    `yaml:"overtime_length" json:"overtime_length"`
	IntermissionLength   int    `yaml:"intermission_length" json:"intermission_length"`
	MaxPeriods           int    `yaml:"max_periods" json:"max_periods"`
	PowerUpFrequency     int    `yaml:"power_up_frequency" json:"power_up_frequency"`
	PowerUpMinDuration   int    `yaml:"power_up_min_duration" json:"power_up_min_duration"`
	PowerUpMaxDuration   int    `yaml:"power_up_max_duration" json:"power_up_max_duration"`
	TauntFrequency       int    `yaml:"taunt_frequency" json:"taunt_frequency"`
	TauntsEnabled        bool   `yaml:"taunts_enabled" json:"taunts_enabled"`
	RandomSoundsEnabled  bool   `yaml:"random_sounds_enabled" json:"random_sounds_enabled"`
	RandomSoundFrequency int    `yaml:"random_sound_frequency" json:"random_sound_frequency"`
	ComboGoalsEnabled    bool   `yaml:"combo_goals_enabled" json:"combo_goals_enabled"`
	ComboTimeWindow      int    `yaml:"combo_time_window" json:"combo_time_window"`
	ComboRewardType      string `yaml:"combo_reward_type" json:"combo_reward_type"`
	ComboMaxStack        int    `yaml:"combo_max_stack" json:"combo_max_stack"`
	QuickResponseWindow  int    `yaml:"quick_response_window" json:"quick_response_window"`
	GameOverIdleTimeout  int    `yaml:"game_over_idle_timeout" json:"game_over_idle_timeout"`
	TickRate             int    `yaml:"tick_rate" json:"tick_rate"`
}

// Default returns the stock cabinet configuration.
func Default() Config {
	return Config{
		PeriodLength:         180,
		OvertimeLength:       180,
		IntermissionLength:   60,
		MaxPeriods:           3,
		PowerUpFrequency:     30,
		PowerUpMinDuration:   10,
		PowerUpMaxDuration:   20,
		TauntFrequency:       60,
		TauntsEnabled:        true,
		RandomSoundsEnabled:  true,
		RandomSoundFrequency: 60,
		ComboGoalsEnabled:    true,
		ComboTimeWindow:      30,
		ComboRewardType:      RewardExtraPoint,
		ComboMaxStack:        5,
		QuickResponseWindow:  10,
		GameOverIdleTimeout:  120,
		TickRate:             10,
	}
}

// Load reads the configuration file at path, then applies SLAPSHOT_*
// environment overrides. A missing file is not an error: the cabinet
// runs on defaults until someone writes a config.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Warn("config file %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %v", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %v", err)
			}
		}
	}
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.PeriodLength = getEnvAsInt("SLAPSHOT_PERIOD_LENGTH", c.PeriodLength)
	c.OvertimeLength = getEnvAsInt("SLAPSHOT_OVERTIME_LENGTH", c.OvertimeLength)
	c.IntermissionLength = getEnvAsInt("SLAPSHOT_INTERMISSION_LENGTH", c.IntermissionLength)
	c.MaxPeriods = getEnvAsInt("SLAPSHOT_MAX_PERIODS", c.MaxPeriods)
	c.PowerUpFrequency = getEnvAsInt("SLAPSHOT_POWER_UP_FREQUENCY", c.PowerUpFrequency)
	c.PowerUpMinDuration = getEnvAsInt("SLAPSHOT_POWER_UP_MIN_DURATION", c.PowerUpMinDuration)
	c.PowerUpMaxDuration = getEnvAsInt("SLAPSHOT_POWER_UP_MAX_DURATION", c.PowerUpMaxDuration)
	c.TauntFrequency = getEnvAsInt("SLAPSHOT_TAUNT_FREQUENCY", c.TauntFrequency)
	c.TauntsEnabled = getEnvAsBool("SLAPSHOT_TAUNTS_ENABLED", c.TauntsEnabled)
	c.RandomSoundsEnabled = getEnvAsBool("SLAPSHOT_RANDOM_SOUNDS_ENABLED", c.RandomSoundsEnabled)
	c.RandomSoundFrequency = getEnvAsInt("SLAPSHOT_RANDOM_SOUND_FREQUENCY", c.RandomSoundFrequency)
	c.ComboGoalsEnabled = getEnvAsBool("SLAPSHOT_COMBO_GOALS_ENABLED", c.ComboGoalsEnabled)
	c.ComboTimeWindow = getEnvAsInt("SLAPSHOT_COMBO_TIME_WINDOW", c.ComboTimeWindow)
	c.ComboRewardType = getEnv("SLAPSHOT_COMBO_REWARD_TYPE", c.ComboRewardType)
	c.ComboMaxStack = getEnvAsInt("SLAPSHOT_COMBO_MAX_STACK", c.ComboMaxStack)
	c.QuickResponseWindow = getEnvAsInt("SLAPSHOT_QUICK_RESPONSE_WINDOW", c.QuickResponseWindow)
	c.GameOverIdleTimeout = getEnvAsInt("SLAPSHOT_GAME_OVER_IDLE_TIMEOUT", c.GameOverIdleTimeout)
	c.TickRate = getEnvAsInt("SLAPSHOT_TICK_RATE", c.TickRate)
}

// Validate checks every option against its allowed range. An invalid
// configuration is a refusal to start a game, never a silent clamp.
func (c Config) Validate() error {
	if c.PeriodLength < 60 || c.PeriodLength > 600 {
		return fmt.Errorf("period_length must be between 60 and 600 seconds, got %d", c.PeriodLength)
	}
	if c.OvertimeLength < 60 || c.OvertimeLength > 600 {
		return fmt.Errorf("overtime_length must be between 60 and 600 seconds, got %d", c.OvertimeLength)
	}
	if c.IntermissionLength < 10 || c.IntermissionLength > 300 {
		return fmt.Errorf("intermission_length must be between 10 and 300 seconds, got %d", c.IntermissionLength)
	}
	if c.MaxPeriods < 1 || c.MaxPeriods > 7 {
		return fmt.Errorf("max_periods must be between 1 and 7, got %d", c.MaxPeriods)
	}
	if c.PowerUpFrequency < 1 {
		return fmt.Errorf("power_up_frequency must be at least 1 second, got %d", c.PowerUpFrequency)
	}
	if c.PowerUpMinDuration < 1 {
		return fmt.Errorf("power_up_min_duration must be at least 1 second, got %d", c.PowerUpMinDuration)
	}
	if c.PowerUpMaxDuration < c.PowerUpMinDuration {
		return fmt.Errorf("power_up_max_duration must be at least power_up_min_duration (%d), got %d", c.PowerUpMinDuration, c.PowerUpMaxDuration)
	}
	if c.TauntFrequency < 1 {
		return fmt.Errorf("taunt_frequency must be at least 1 second, got %d", c.TauntFrequency)
	}
	if c.RandomSoundFrequency < 1 {
		return fmt.Errorf("random_sound_frequency must be at least 1 second, got %d", c.RandomSoundFrequency)
	}
	if c.ComboTimeWindow < 1 || c.ComboTimeWindow > 300 {
		return fmt.Errorf("combo_time_window must be between 1 and 300 seconds, got %d", c.ComboTimeWindow)
	}
	if c.ComboRewardType != RewardExtraPoint && c.ComboRewardType != RewardPowerUp {
		return fmt.Errorf("combo_reward_type must be %q or %q, got %q", RewardExtraPoint, RewardPowerUp, c.ComboRewardType)
	}
	if c.ComboMaxStack < 1 || c.ComboMaxStack > 10 {
		return fmt.Errorf("combo_max_stack must be between 1 and 10, got %d", c.ComboMaxStack)
	}
	if c.QuickResponseWindow < 1 {
		return fmt.Errorf("quick_response_window must be at least 1 second, got %d", c.QuickResponseWindow)
	}
	if c.GameOverIdleTimeout < 0 {
		return fmt.Errorf("game_over_idle_timeout must not be negative, got %d", c.GameOverIdleTimeout)
	}
	if c.TickRate < 1 || c.TickRate > 100 {
		return fmt.Errorf("tick_rate must be between 1 and 100 ticks per second, got %d", c.TickRate)
	}
	return nil
}

// PeriodDuration returns period_length as a duration.
func (c Config) PeriodDuration() time.Duration {
	return time.Duration(c.PeriodLength) * time.Second
}

// OvertimeDuration returns overtime_length as a duration.
func (c Config) OvertimeDuration() time.Duration {
	return time.Duration(c.OvertimeLength) * time.Second
}

// IntermissionDuration returns intermission_length as a duration.
func (c Config) IntermissionDuration() time.Duration {
	return time.Duration(c.IntermissionLength) * time.Second
}

// ComboWindow returns combo_time_window as a duration.
func (c Config) ComboWindow() time.Duration {
	return time.Duration(c.ComboTimeWindow) * time.Second
}

// QuickResponseDuration returns quick_response_window as a duration.
func (c Config) QuickResponseDuration() time.Duration {
	return time.Duration(c.QuickResponseWindow) * time.Second
}

// IdleTimeout returns game_over_idle_timeout as a duration; zero means
// the idle reset is disabled.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.GameOverIdleTimeout) * time.Second
}

// TickInterval returns the engine tick interval.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn("ignoring non-integer value for %s: %s", key, v)
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn("ignoring non-boolean value for %s: %s", key, v)
	}
	return fallback
}
