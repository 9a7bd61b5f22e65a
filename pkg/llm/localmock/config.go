package localmock

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 脚本文件结构
//
// 离线演示时可通过 provider.base_url 指向该文件：
//
//	default_response: "**Loop** chalta hai 10 baar."
//	responses:
//	  - "first"
//	  - "second"
//	delay: 200ms
//	simulate_error: ""
type Config struct {
	// DefaultResponse 默认响应
	DefaultResponse string `yaml:"default_response"`

	// Responses 响应队列（非空时优先于 DefaultResponse）
	Responses []string `yaml:"responses"`

	// Delay 响应延迟（如 "100ms", "1s"）
	Delay string `yaml:"delay"`

	// SimulateError 非空时每次调用都返回该错误
	SimulateError string `yaml:"simulate_error"`
}

// LoadConfigFile 从 YAML 文件加载脚本
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script file: %w", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes 从 YAML 数据加载脚本
func LoadConfigFromBytes(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return cfg, nil
}

// Options 将脚本转换为 Option 列表
func (cfg *Config) Options() ([]Option, error) {
	var opts []Option
	if cfg.DefaultResponse != "" {
		opts = append(opts, WithResponse(cfg.DefaultResponse))
	}
	if len(cfg.Responses) > 0 {
		opts = append(opts, WithResponses(cfg.Responses...))
	}
	if cfg.Delay != "" {
		d, err := time.ParseDuration(cfg.Delay)
		if err != nil {
			return nil, fmt.Errorf("parse delay %q: %w", cfg.Delay, err)
		}
		opts = append(opts, WithDelay(d))
	}
	if cfg.SimulateError != "" {
		opts = append(opts, WithError(errors.New(cfg.SimulateError)))
	}
	return opts, nil
}

// WithConfigFile 从脚本文件加载设置
//
// 加载失败时错误会在首次调用时返回。
func WithConfigFile(path string) Option {
	return func(c *Client) {
		cfg, err := LoadConfigFile(path)
		if err != nil {
			c.err = err
			return
		}
		opts, err := cfg.Options()
		if err != nil {
			c.err = err
			return
		}
		for _, opt := range opts {
			opt(c)
		}
	}
}
