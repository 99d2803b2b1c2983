package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"ftputil/transfer"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. FTPUTIL_FTP_HOST for ftp.host.
const EnvPrefix = "FTPUTIL"

// Config is the runtime configuration of the ftputil shell.
type Config struct {
	FTP         FTPLoginConfig `mapstructure:"ftp"`
	Retry       RetryConfig    `mapstructure:"retry"`
	LogLevel    string         `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	MetricsFile string         `mapstructure:"metrics_file"`
}

// FTPLoginConfig holds FTP connection credentials and settings.
type FTPLoginConfig struct {
	Host     string        `mapstructure:"host" validate:"omitempty,hostname_rfc1123|ip"`
	Port     int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// RetryConfig controls the fixed-delay retry applied to remote operations.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" validate:"gte=1,lte=100"`
	Delay    time.Duration `mapstructure:"delay" validate:"gte=0"`
}

// Address returns host:port, e.g. "ftp.gnu.org:21".
func (c FTPLoginConfig) Address() string {
	port := c.Port
	if port == 0 {
		port = 21
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// RetryPolicy maps the retry settings onto a transfer.RetryPolicy that
// retries transport errors only.
func (c *Config) RetryPolicy() transfer.RetryPolicy {
	p := transfer.DefaultRetryPolicy()
	p.Attempts = c.Retry.Attempts
	p.Delay = c.Retry.Delay
	return p
}

// Load reads configuration from defaults, an optional YAML file, a .env file
// in the working directory and FTPUTIL_* environment variables, in increasing
// order of precedence.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ftp.host", "")
	v.SetDefault("ftp.port", 21)
	v.SetDefault("ftp.username", "")
	v.SetDefault("ftp.password", "")
	v.SetDefault("ftp.timeout", 30*time.Second)

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 5*time.Second)

	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_file", "")
}
