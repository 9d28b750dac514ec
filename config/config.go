package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/pion/ion-sfu/pkg/logger"
	"github.com/spf13/viper"
)

type MongoConfig struct {
	URI          string `mapstructure:"uri"`
	Database     string `mapstructure:"database"`
	Transactions bool   `mapstructure:"transactions"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	// seconds
	Expire int `mapstructure:"expire"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"clientid"`
	ClientSecret string `mapstructure:"clientsecret"`
	RedirectURL  string `mapstructure:"redirecturl"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Sender   string `mapstructure:"sender"`
}

type RateLimitConfig struct {
	Rate     float64 `mapstructure:"rate"`
	Capacity int64   `mapstructure:"capacity"`
}

type ImagesConfig struct {
	BaseURL string `mapstructure:"baseurl"`
	MaxSize int64  `mapstructure:"maxsize"`
}

type AuthConfig struct {
	// accept identity assertions posted by the caller, offline use only
	Direct bool `mapstructure:"direct"`
}

type CorsConfig struct {
	Origins []string `mapstructure:"origins"`
}

type Config struct {
	Addr      string           `mapstructure:"addr"`
	Log       log.GlobalConfig `mapstructure:"log"`
	Mongo     MongoConfig      `mapstructure:"mongo"`
	JWT       JWTConfig        `mapstructure:"jwt"`
	Google    GoogleConfig     `mapstructure:"google"`
	SMTP      SMTPConfig       `mapstructure:"smtp"`
	RateLimit RateLimitConfig  `mapstructure:"ratelimit"`
	Images    ImagesConfig     `mapstructure:"images"`
	Auth      AuthConfig       `mapstructure:"auth"`
	Cors      CorsConfig       `mapstructure:"cors"`
}

const EnvPrefix = "CHATEY"

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":7000")
	v.SetDefault("log.v", 0)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "chatey")
	v.SetDefault("mongo.transactions", false)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire", 604800)
	v.SetDefault("google.clientid", "")
	v.SetDefault("google.clientsecret", "")
	v.SetDefault("google.redirecturl", "http://localhost:7000/auth/google/callback")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.sender", "")
	v.SetDefault("ratelimit.rate", 100)
	v.SetDefault("ratelimit.capacity", 100)
	v.SetDefault("images.baseurl", "http://localhost:7000")
	v.SetDefault("images.maxsize", 2*1024*1024)
	v.SetDefault("auth.direct", false)
	v.SetDefault("cors.origins", []string{"http://localhost:3000"})
}

// Load reads file, when given, over the defaults. Environment variables
// named CHATEY_<SECTION>_<KEY> win over both.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("config file %s: %w", file, err)
		}

		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file %s loaded fail: %w", file, err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr can not empty")
	}

	if c.RateLimit.Rate <= 0 || c.RateLimit.Capacity <= 0 {
		return errors.New("ratelimit rate and capacity must be positive")
	}

	if c.Images.MaxSize <= 0 {
		return errors.New("images.maxsize must be positive")
	}

	if c.JWT.Expire <= 0 {
		return errors.New("jwt.expire must be positive")
	}

	return nil
}

var ErrNoSecret = errors.New("jwt.secret must be set unless running with -mem")

// CheckSecret refuses a deployment that would sign sessions with the
// built-in development secret.
func (c *Config) CheckSecret(memMode bool) error {
	if c.JWT.Secret == "" && !memMode {
		return ErrNoSecret
	}
	return nil
}

// GoogleEnabled reports whether the Google sign-in endpoints can be served.
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.Sender != ""
}
