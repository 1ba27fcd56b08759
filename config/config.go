// Package config reads the bot configuration: defaults, then a yaml file, then environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/khlpkg/gateway"
	"github.com/khlpkg/gateway/internal/util"
)

type Bot struct {
	Token       string   `yaml:"token" env:"KHL_BOT_TOKEN"`
	Active      bool     `yaml:"active" env:"KHL_ACTIVE"`
	AtMe        bool     `yaml:"at_me" env:"KHL_AT_ME"`
	ProcessChar []string `yaml:"process_char" env:"KHL_PROCESS_CHAR" envSeparator:","`
	Debug       bool     `yaml:"debug" env:"KHL_DEBUG"`
	Compress    bool     `yaml:"compress" env:"KHL_COMPRESS"`
	BaseURL     string   `yaml:"base_url" env:"KHL_BASE_URL"`

	DispatchWorkers int    `yaml:"dispatch_workers" env:"KHL_DISPATCH_WORKERS"`
	RedisURL        string `yaml:"redis_url" env:"KHL_REDIS_URL"`
	NATSURL         string `yaml:"nats_url" env:"KHL_NATS_URL"`
	NATSSubject     string `yaml:"nats_subject" env:"KHL_NATS_SUBJECT"`
}

func Default() Bot {
	return Bot{
		Active:      true,
		AtMe:        true,
		ProcessChar: []string{".", "。"},
		Compress:    true,
	}
}

// Load reads the configuration. An empty path skips the file.
func Load(path string) (Bot, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Bot{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Bot{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Bot{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Bot{}, err
	}
	return cfg, nil
}

func (b *Bot) Validate() error {
	if b.Token == "" {
		return fmt.Errorf("config: %w", gateway.ErrMissingCredential)
	}
	if b.DispatchWorkers < 0 {
		return errors.New("config: dispatch_workers can not be negative")
	}
	if len(util.NewSet(b.ProcessChar...)) != len(b.ProcessChar) {
		return errors.New("config: process_char contains duplicates")
	}
	return nil
}

// Warnings lists settings that break the public bot requirements of the platform.
func (b *Bot) Warnings() []string {
	var warnings []string
	if !b.AtMe {
		warnings = append(warnings, "bot does not require a mention to trigger plugins, public bots must")
	}
	triggers := util.NewSet(b.ProcessChar...)
	if !triggers.Contains(".") || !triggers.Contains("。") {
		warnings = append(warnings, "bot is not triggered by both '.' and '。', public bots must")
	}
	return warnings
}

// Options converts the configuration into client options.
func (b *Bot) Options() []gateway.Option {
	return []gateway.Option{
		gateway.WithBotToken(b.Token),
		gateway.WithActive(b.Active),
		gateway.WithMentionRequired(b.AtMe),
		gateway.WithTriggerPrefixes(b.ProcessChar...),
		gateway.WithCompression(b.Compress),
	}
}
