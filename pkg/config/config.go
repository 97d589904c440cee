package config

import (
	"crypto/rand"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/cache"
	"github.com/matst80/securityapp/pkg/common"
	"github.com/matst80/securityapp/pkg/firebase"
	"github.com/matst80/securityapp/pkg/messaging"
	"github.com/matst80/securityapp/pkg/types"
)

type FirebaseConfig struct {
	ProjectID       string `env:"PROJECT_ID"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
	StorageBucket   string `env:"STORAGE_BUCKET"`
	APIKey          string `env:"API_KEY"`
}

func (c FirebaseConfig) Options() firebase.Options {
	return firebase.Options{
		ProjectID:       c.ProjectID,
		CredentialsFile: c.CredentialsFile,
		StorageBucket:   c.StorageBucket,
		APIKey:          c.APIKey,
	}
}

type SessionConfig struct {
	Key           string        `env:"SESSION_KEY"`
	TTL           time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"true"`
}

type RedisConfig struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	// TTL bounds how long records written to the store by other processes stay hidden.
	TTL      time.Duration `env:"TTL" envDefault:"30s"`
	LocalTTL time.Duration `env:"LOCAL_TTL" envDefault:"5s"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func (c RedisConfig) Options() cache.Options {
	return cache.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		TTL:      c.TTL,
		LocalTTL: c.LocalTTL,
	}
}

type Config struct {
	ListenAddress string `env:"LISTEN_ADDRESS" envDefault:":8080"`
	PublicURL     string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	// LocalDataDir switches to the on-disk document store, blob store and auth.
	LocalDataDir    string         `env:"LOCAL_DATA_DIR"`
	ViewIdleTimeout time.Duration  `env:"VIEW_IDLE_TIMEOUT" envDefault:"15m"`
	Firebase        FirebaseConfig `envPrefix:"FIREBASE_"`
	Session         SessionConfig
	Redis           RedisConfig `envPrefix:"REDIS_"`
	Rabbit          messaging.RabbitConfig
	Timeouts        common.TimeoutConfig
	Schema          types.Schema `envPrefix:"SCHEMA_"`
}

func (c Config) Local() bool {
	return c.LocalDataDir != ""
}

// LoadEnv loads the env files that exist and returns how many were read.
func LoadEnv(envFiles ...string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func Parse() (Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return c, errors.Wrap(err, "parse environment")
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Load reads the env files and the environment and configures logging.
func Load(envFiles ...string) (Config, error) {
	n, err := LoadEnv(envFiles...)
	if err != nil {
		return Config{}, errors.Wrap(err, "load env files")
	}
	c, err := Parse()
	if err != nil {
		return c, err
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return c, errors.Wrap(err, "log level")
	}
	log.SetLevel(level)
	log.Printf("configuration loaded from environment and %d env files", n)
	return c, nil
}

func (c *Config) validate() error {
	if c.Session.Key == "" {
		if !c.Local() {
			return errors.New("SESSION_KEY is required")
		}
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return errors.Wrap(err, "generate session key")
		}
		log.Printf("no SESSION_KEY set, sessions will not survive a restart")
		c.Session.Key = string(key)
	}
	if c.ViewIdleTimeout <= 0 {
		return errors.New("VIEW_IDLE_TIMEOUT must be positive")
	}
	return nil
}
