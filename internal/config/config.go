package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sandbox drivers selectable through CODESNAP_SANDBOX_DRIVER.
const (
	SandboxDriverProcess = "process"
	SandboxDriverDocker  = "docker"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBConnLifetime   time.Duration
	RedisURL         string
	NATSURL          string
	EventsSubject    string
	JWTSecret        string
	CORSAllowOrigins string
	ExerciseCacheTTL time.Duration

	SandboxDriver    string
	WorkspaceRoot    string
	DockerHost       string
	ExecutionTimeout time.Duration
	LintTimeout      time.Duration
	CodeRunMemoryMB  int
	CodeRunCPUShares int
	OutputLimitBytes int

	PythonBin   string
	NodeBin     string
	PylintBin   string
	ESLintCmd   []string
	PythonImage string
	NodeImage   string
	PylintImage string
	ESLintImage string

	RateLimitMax    int
	RateLimitWindow time.Duration

	OpenAIAPIKey string
	OpenAIModel  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODESNAP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeSnap API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.subject", "attempts.graded")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_lifetime", "30m")
	v.SetDefault("exercise.cache_ttl", "10m")
	v.SetDefault("sandbox.driver", SandboxDriverProcess)
	v.SetDefault("execution_timeout_ms", 5000)
	v.SetDefault("lint_timeout_ms", 10000)
	v.SetDefault("code_run_memory_mb", 256)
	v.SetDefault("code_run_cpu_shares", 512)
	v.SetDefault("output_limit_bytes", 1<<20)
	v.SetDefault("python.bin", "python3")
	v.SetDefault("node.bin", "node")
	v.SetDefault("pylint.bin", "pylint")
	v.SetDefault("python.image", "python:3.11-alpine")
	v.SetDefault("node.image", "node:20-alpine")
	v.SetDefault("pylint.image", "cytopia/pylint:latest")
	v.SetDefault("eslint.image", "cytopia/eslint:latest")
	v.SetDefault("rate_limit.max", 10)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("openai.model", "gpt-4o-mini")

	ttl, err := parseDuration(v, "exercise.cache_ttl", "10m")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "rate_limit.window", "1m")
	if err != nil {
		return Config{}, err
	}
	connLifetime, err := parseDuration(v, "database.conn_lifetime", "30m")
	if err != nil {
		return Config{}, err
	}

	timeoutMs := v.GetInt("execution_timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	lintTimeoutMs := v.GetInt("lint_timeout_ms")
	if lintTimeoutMs <= 0 {
		lintTimeoutMs = 10000
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		DBMaxOpenConns:   v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:   v.GetInt("database.max_idle_conns"),
		DBConnLifetime:   connLifetime,
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventsSubject:    v.GetString("events.subject"),
		JWTSecret:        v.GetString("jwt.secret"),
		CORSAllowOrigins: v.GetString("cors.allow_origins"),
		ExerciseCacheTTL: ttl,
		SandboxDriver:    strings.ToLower(strings.TrimSpace(v.GetString("sandbox.driver"))),
		WorkspaceRoot:    v.GetString("workspace.root"),
		DockerHost:       v.GetString("docker_host"),
		ExecutionTimeout: time.Duration(timeoutMs) * time.Millisecond,
		LintTimeout:      time.Duration(lintTimeoutMs) * time.Millisecond,
		CodeRunMemoryMB:  v.GetInt("code_run_memory_mb"),
		CodeRunCPUShares: v.GetInt("code_run_cpu_shares"),
		OutputLimitBytes: v.GetInt("output_limit_bytes"),
		PythonBin:        v.GetString("python.bin"),
		NodeBin:          v.GetString("node.bin"),
		PylintBin:        v.GetString("pylint.bin"),
		ESLintCmd:        strings.Fields(v.GetString("eslint.cmd")),
		PythonImage:      v.GetString("python.image"),
		NodeImage:        v.GetString("node.image"),
		PylintImage:      v.GetString("pylint.image"),
		ESLintImage:      v.GetString("eslint.image"),
		RateLimitMax:     v.GetInt("rate_limit.max"),
		RateLimitWindow:  window,
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		OpenAIModel:      v.GetString("openai.model"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.SandboxDriver {
	case SandboxDriverProcess, SandboxDriverDocker:
	default:
		return Config{}, fmt.Errorf("unknown sandbox driver %q", cfg.SandboxDriver)
	}

	// The eslint image has no network for npx to fetch with.
	if !v.IsSet("eslint.cmd") {
		cfg.ESLintCmd = []string{"npx", "eslint"}
		if cfg.SandboxDriver == SandboxDriverDocker {
			cfg.ESLintCmd = []string{"eslint"}
		}
	}

	if len(cfg.ESLintCmd) == 0 {
		return Config{}, fmt.Errorf("eslint command must not be empty")
	}

	if cfg.CodeRunMemoryMB <= 0 {
		cfg.CodeRunMemoryMB = 256
	}

	if cfg.CodeRunCPUShares <= 0 {
		cfg.CodeRunCPUShares = 512
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		raw = fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
