package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/world"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Grid     GridConfig     `mapstructure:"grid"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
}

type AIConfig struct {
	UpdateRateMs       int    `mapstructure:"update_rate_ms"`
	Seed               int64  `mapstructure:"seed"`
	MemoryTTLMs        int    `mapstructure:"memory_ttl_ms"`
	PlayerPositionsCap int    `mapstructure:"player_positions_cap"`
	StateTTLMs         int    `mapstructure:"state_ttl_ms"`
	ArchetypesPath     string `mapstructure:"archetypes_path"` // empty uses the built-in roster
}

// Director converts the AI section into Director settings.
func (c AIConfig) Director() world.DirectorConfig {
	return world.DirectorConfig{
		UpdateRate: time.Duration(c.UpdateRateMs) * time.Millisecond,
		StateTTL:   time.Duration(c.StateTTLMs) * time.Millisecond,
		Seed:       c.Seed,
		Memory: ai.MemoryConfig{
			TTL:                time.Duration(c.MemoryTTLMs) * time.Millisecond,
			PlayerPositionsCap: c.PlayerPositionsCap,
		},
	}
}

type GridConfig struct {
	WorldWidth  float64 `mapstructure:"world_width"`
	WorldHeight float64 `mapstructure:"world_height"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // memory | sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	cache.CacheConfig `mapstructure:",squash"`
	StatsInterval     time.Duration `mapstructure:"stats_interval"`
}

type JournalConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	Retention     time.Duration `mapstructure:"retention"` // 0 keeps rows forever
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("ai.update_rate_ms", 16)
	v.SetDefault("ai.seed", 0)
	v.SetDefault("ai.memory_ttl_ms", 10000)
	v.SetDefault("ai.player_positions_cap", 10)
	v.SetDefault("ai.state_ttl_ms", 30000)
	v.SetDefault("ai.archetypes_path", "")
	v.SetDefault("grid.world_width", 2000)
	v.SetDefault("grid.world_height", 600)
	v.SetDefault("database.mode", "memory")
	v.SetDefault("database.sqlite_path", "./data/enemyai.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("cache.stats_interval", "5s")
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.batch_size", 64)
	v.SetDefault("journal.flush_interval", "2s")
	v.SetDefault("journal.retention", "24h")
	v.SetDefault("journal.prune_interval", "1h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("security.allowed_origins", []string{})
}

// Load reads config from the given YAML file path. An empty path yields the
// defaults alone. ENEMYAI_* environment variables override file values
// (ENEMYAI_SERVER_PORT for server.port).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("enemyai")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
