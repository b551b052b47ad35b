package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Store     StoreConfig     `mapstructure:"store"`
	DB        DBConfig        `mapstructure:"db"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	WS        WSConfig        `mapstructure:"ws"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Cron      CronConfig      `mapstructure:"cron"`
	LoginCode LoginCodeConfig `mapstructure:"login_code"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type JWTConfig struct {
	Issuer string        `mapstructure:"issuer"`
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type WSConfig struct {
	Origin string `mapstructure:"origin"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
	Sampling    bool   `mapstructure:"sampling"`
}

type RateLimitConfig struct {
	Backend string  `mapstructure:"backend"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JournalConfig struct {
	Path string `mapstructure:"path"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type CronConfig struct {
	PruneSpec string `mapstructure:"prune_spec"`
}

type LoginCodeConfig struct {
	Attempts int `mapstructure:"attempts"`
}

// Load reads configuration from the environment, a .env file in the working
// directory and, when path is non-empty, a YAML file. Environment wins.
// Keys map to env names by upper-casing and replacing dots, so db.dsn is
// DB_DSN.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	normalize(&c)
	return c, c.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("jwt.issuer", "lv-ledger")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("ws.origin", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("rate_limit.backend", RateLimitMemory)
	v.SetDefault("rate_limit.rps", 10)
	v.SetDefault("rate_limit.burst", 30)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("journal.path", "")
	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("cron.prune_spec", "@every 1m")
	v.SetDefault("login_code.attempts", 10)
}

func normalize(c *Config) {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
	c.Log.Encoding = strings.ToLower(strings.TrimSpace(c.Log.Encoding))
	c.Admin.Username = strings.TrimSpace(c.Admin.Username)
}

func (c Config) validate() error {
	var missing []string
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.DB.DSN == "" {
			missing = append(missing, "DB_DSN")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: use postgres or memory", c.Store.Driver)
	}
	switch c.RateLimit.Backend {
	case RateLimitMemory:
	case RateLimitRedis:
		if c.Redis.Addr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	default:
		return fmt.Errorf("invalid RATE_LIMIT_BACKEND %q: use memory or redis", c.RateLimit.Backend)
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		if c.Admin.Username == "" {
			missing = append(missing, "ADMIN_USERNAME")
		} else {
			missing = append(missing, "ADMIN_PASSWORD")
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required env: " + strings.Join(missing, ","))
	}
	if c.JWT.TTL <= 0 {
		return errors.New("invalid JWT_TTL: must be a positive duration")
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		return fmt.Errorf("invalid LOG_ENCODING %q: use json or console", c.Log.Encoding)
	}
	if c.LoginCode.Attempts < 1 {
		return errors.New("invalid LOGIN_CODE_ATTEMPTS: must be >= 1")
	}
	return nil
}

// BootstrapAdmin reports whether startup should ensure an admin account.
func (c Config) BootstrapAdmin() bool {
	return c.Admin.Username != "" && c.Admin.Password != ""
}
