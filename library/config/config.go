package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Astemirdum/solidarity-library/library/internal/service"
	"github.com/Astemirdum/solidarity-library/library/internal/service/openlibrary"
	"github.com/Astemirdum/solidarity-library/pkg/auth"
	"github.com/Astemirdum/solidarity-library/pkg/kafka"
	"github.com/Astemirdum/solidarity-library/pkg/logger"
	"github.com/Astemirdum/solidarity-library/pkg/mailer"
	"github.com/Astemirdum/solidarity-library/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE"`
}

type Config struct {
	Server      HTTPServer `yaml:"server"`
	Database    postgres.DB
	Kafka       kafka.Config
	Auth        auth.Config
	OpenLibrary openlibrary.Config
	Mail        mailer.Config
	Newsletter  service.NewsletterConfig
	Log         logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment. Options preset values the
// environment may still override.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
