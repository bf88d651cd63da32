// Package config loads bincodecd configuration from a YAML file with
// BINCODEC_ environment overrides, and can watch the file for changes.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/bincodec"
)

// Config is the full daemon configuration.
type Config struct {
	Codec  CodecConfig  `mapstructure:"codec"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Socket SocketConfig `mapstructure:"socket"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Log    LogConfig    `mapstructure:"log"`
}

// CodecConfig controls the serialization layer.
type CodecConfig struct {
	// Format is the active encoding: messagepack, schema or json.
	Format string `mapstructure:"format"`
	// FallbackEnabled allows degrading to json when the active
	// format fails to encode or overflows MaxEncodedSize.
	FallbackEnabled bool `mapstructure:"fallback_enabled"`
	// MaxEncodedSize rejects payloads larger than this many bytes.
	// Zero disables the check.
	MaxEncodedSize int `mapstructure:"max_encoded_size"`
	// TagPayloads prefixes every payload with a format envelope so
	// mixed-format streams stay decodable.
	TagPayloads bool `mapstructure:"tag_payloads"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type SocketConfig struct {
	Addr         string `mapstructure:"addr"`
	MaxFrameSize int64  `mapstructure:"max_frame_size"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if _, err := bincodec.ParseFormat(c.Codec.Format); err != nil {
		return fmt.Errorf("codec.format: %w", err)
	}
	if c.Codec.MaxEncodedSize < 0 {
		return fmt.Errorf("codec.max_encoded_size must be >= 0, got %d", c.Codec.MaxEncodedSize)
	}
	if c.Socket.MaxFrameSize < 0 {
		return fmt.Errorf("socket.max_frame_size must be >= 0, got %d", c.Socket.MaxFrameSize)
	}
	if c.Kafka.Topic == "" && len(c.Kafka.Brokers) > 0 {
		return fmt.Errorf("kafka.topic is required when kafka.brokers is set")
	}
	return nil
}

// CodecOptions maps the codec section onto bincodec.Options. Validate
// must have passed; an unparsable format falls back to the default.
func (c *Config) CodecOptions() bincodec.Options {
	f, err := bincodec.ParseFormat(c.Codec.Format)
	if err != nil {
		f = bincodec.FormatPrimary
	}
	return bincodec.Options{
		Format:          f,
		DisableFallback: !c.Codec.FallbackEnabled,
		MaxEncodedSize:  c.Codec.MaxEncodedSize,
		TagPayloads:     c.Codec.TagPayloads,
	}
}

// Manager wraps viper with thread-safe access and change subscription.
type Manager struct {
	v    *viper.Viper
	mu   sync.RWMutex
	cfg  *Config
	subs []func(*Config)
}

// Load reads the config file at path, applies BINCODEC_ environment
// overrides and validates the result. An empty path loads defaults
// and environment only.
func Load(path string) (*Manager, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BINCODEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	return &Manager{v: v, cfg: cfg}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("codec.format", "messagepack")
	v.SetDefault("codec.fallback_enabled", true)
	v.SetDefault("codec.max_encoded_size", 0)
	v.SetDefault("codec.tag_payloads", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("socket.addr", ":8081")
	v.SetDefault("socket.max_frame_size", 1<<20)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Current returns the most recently loaded configuration.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Subscribe registers fn to run with the new configuration after every
// successful reload.
func (m *Manager) Subscribe(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Watch re-loads the file on change and notifies subscribers. Reloads
// that fail to parse or validate are discarded, keeping the previous
// configuration active. onErr may be nil.
func (m *Manager) Watch(onErr func(error)) {
	m.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := unmarshal(m.v)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}

		m.mu.Lock()
		m.cfg = cfg
		subs := make([]func(*Config), len(m.subs))
		copy(subs, m.subs)
		m.mu.Unlock()

		for _, fn := range subs {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}
