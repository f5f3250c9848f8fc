package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the deployer configuration.
// Every variable is read with the AGENT_DEPLOYER_ prefix, e.g. AGENT_DEPLOYER_API_KEY.
type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":3000"`
	APIKey        string `env:"API_KEY" envDefault:""`
	APIKeyHeader  string `env:"API_KEY_HEADER" envDefault:"x-api-key"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	Version       string `env:"VERSION" envDefault:"dev"`

	AWS   AWSConfig
	Agent AgentConfig
	Logs  LogsConfig
}

// AWSConfig identifies the account and region agents are deployed into.
// Credentials are resolved by the AWS SDK default chain.
type AWSConfig struct {
	Region         string `env:"AWS_REGION" envDefault:""`
	AccountID      string `env:"AWS_ACCOUNT_ID" envDefault:""`
	AccessRoleName string `env:"APPRUNNER_ACCESS_ROLE" envDefault:"AppRunnerECRAccessRole"`
}

// AgentConfig controls how agent images are built and how their services are sized.
type AgentConfig struct {
	NamePrefix    string `env:"AGENT_NAME_PREFIX" envDefault:"agent-"`
	ImageTag      string `env:"AGENT_IMAGE_TAG" envDefault:"latest"`
	Platform      string `env:"AGENT_PLATFORM" envDefault:"linux/amd64"`
	BaseImage     string `env:"AGENT_BASE_IMAGE" envDefault:"node:22-alpine"`
	Port          int    `env:"AGENT_PORT" envDefault:"8080"`
	CPU           string `env:"AGENT_CPU" envDefault:"512"`
	Memory        string `env:"AGENT_MEMORY" envDefault:"1024"`
	APIKey        string `env:"AGENT_API_KEY" envDefault:""`
	Password      string `env:"AGENT_PASSWORD" envDefault:""`
	RuntimeAPIURL string `env:"AGENT_RUNTIME_API_URL" envDefault:"https://kadena-agents.onrender.com"`
	BuildDir      string `env:"BUILD_DIR" envDefault:""`
	DockerBinary  string `env:"DOCKER_BINARY" envDefault:"docker"`
}

// LogsConfig tunes the log facade.
type LogsConfig struct {
	GroupPrefix      string        `env:"LOG_GROUP_PREFIX" envDefault:"/aws/apprunner/"`
	DefaultLimit     int           `env:"LOGS_DEFAULT_LIMIT" envDefault:"100"`
	DefaultTailLines int           `env:"LOGS_DEFAULT_TAIL_LINES" envDefault:"50"`
	MaxTailLines     int           `env:"LOGS_MAX_TAIL_LINES" envDefault:"10000"`
	TailLookback     time.Duration `env:"LOGS_TAIL_LOOKBACK" envDefault:"24h"`
	MaxPages         int           `env:"LOGS_MAX_PAGES" envDefault:"50"`
}

// NewConfig loads an optional .env file and parses the environment.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix: "AGENT_DEPLOYER_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate reports every problem with cfg at once.
func Validate(cfg *Config) error {
	var errs []error
	if cfg.AWS.Region == "" {
		errs = append(errs, errors.New("AWS_REGION is required"))
	}
	if cfg.AWS.AccountID == "" {
		errs = append(errs, errors.New("AWS_ACCOUNT_ID is required"))
	}
	if cfg.APIKey == "" {
		errs = append(errs, errors.New("API_KEY is required"))
	}
	if cfg.Agent.Port <= 0 || cfg.Agent.Port > 65535 {
		errs = append(errs, fmt.Errorf("AGENT_PORT must be a valid port, got %d", cfg.Agent.Port))
	}
	if cfg.Agent.NamePrefix == "" {
		errs = append(errs, errors.New("AGENT_NAME_PREFIX must not be empty"))
	}
	if _, ok := validLogLevels[strings.ToLower(cfg.LogLevel)]; !ok {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Logs.MaxTailLines <= 0 {
		errs = append(errs, errors.New("LOGS_MAX_TAIL_LINES must be positive"))
	}
	return errors.Join(errs...)
}

// RegistryHost is the container registry host for the configured account and region.
func (c *Config) RegistryHost() string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", c.AWS.AccountID, c.AWS.Region)
}

// AccessRoleARN is the role the managed compute service assumes to pull images.
func (c *Config) AccessRoleARN() string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", c.AWS.AccountID, c.AWS.AccessRoleName)
}
