package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/config"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("AGENT_DEPLOYER_AWS_REGION", "us-east-1")
	t.Setenv("AGENT_DEPLOYER_AWS_ACCOUNT_ID", "123456789012")
	t.Setenv("AGENT_DEPLOYER_API_KEY", "secret")

	cfg, err := config.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.ServerAddress)
	assert.Equal(t, "x-api-key", cfg.APIKeyHeader)
	assert.Equal(t, "linux/amd64", cfg.Agent.Platform)
	assert.Equal(t, 8080, cfg.Agent.Port)
	assert.Equal(t, "512", cfg.Agent.CPU)
	assert.Equal(t, "1024", cfg.Agent.Memory)
	assert.Equal(t, "/aws/apprunner/", cfg.Logs.GroupPrefix)
	assert.NoError(t, config.Validate(cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "valid"},
		{name: "missing region", mutate: func(c *config.Config) { c.AWS.Region = "" }, wantErr: "AWS_REGION"},
		{name: "missing account", mutate: func(c *config.Config) { c.AWS.AccountID = "" }, wantErr: "AWS_ACCOUNT_ID"},
		{name: "missing api key", mutate: func(c *config.Config) { c.APIKey = "" }, wantErr: "API_KEY"},
		{name: "bad port", mutate: func(c *config.Config) { c.Agent.Port = 0 }, wantErr: "AGENT_PORT"},
		{name: "bad log level", mutate: func(c *config.Config) { c.LogLevel = "loud" }, wantErr: "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := config.Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDerivedNames(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, "123456789012.dkr.ecr.us-east-1.amazonaws.com", cfg.RegistryHost())
	assert.Equal(t, "arn:aws:iam::123456789012:role/AppRunnerECRAccessRole", cfg.AccessRoleARN())
}

func validConfig() *config.Config {
	return &config.Config{
		APIKey:   "secret",
		LogLevel: "info",
		AWS: config.AWSConfig{
			Region:         "us-east-1",
			AccountID:      "123456789012",
			AccessRoleName: "AppRunnerECRAccessRole",
		},
		Agent: config.AgentConfig{
			NamePrefix: "agent-",
			ImageTag:   "latest",
			Port:       8080,
		},
		Logs: config.LogsConfig{MaxTailLines: 10000},
	}
}
