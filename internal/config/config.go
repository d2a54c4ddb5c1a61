package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Roles select which runtime components the process starts.
const (
	RoleAll     = "all"
	RoleWorker  = "worker"
	RoleGateway = "gateway"
)

// Event bus drivers.
const (
	BusMemory = "memory"
	BusRedis  = "redis"
	BusKafka  = "kafka"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	Role            string
	LogLevel        string
	TokenSecret     string
	TokenTTL        time.Duration
	ShutdownTimeout time.Duration

	// AdminUserIDs may change order status and inspect the job queue.
	AdminUserIDs []int64

	EventBus       string
	RedisAddress   string
	RedisPassword  string
	RedisDB        int
	KafkaBrokers   []string
	EventBusPrefix string

	WorkerPoolSize  int
	JobPollInterval time.Duration
	JobBatchSize    int
	JobMaxAttempts  int
	JobBackoffBase  time.Duration
	JobBackoffMax   time.Duration
	JobTimeout      time.Duration
	TxTimeout       time.Duration

	PointValue     decimal.Decimal
	PointsEarnRate decimal.Decimal

	SMTPAddress  string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	GatewaySendBuffer   int
	GatewayPingInterval time.Duration
}

const (
	defaultRunAddress          = ":8080"
	defaultRole                = RoleAll
	defaultLogLevel            = "info"
	defaultTokenSecret         = "change-me-in-production"
	defaultTokenTTL            = 24 * time.Hour
	defaultShutdownTimeout     = 10 * time.Second
	defaultEventBus            = BusMemory
	defaultEventBusPrefix      = "storefront"
	defaultWorkerPoolSize      = 4
	defaultJobPollInterval     = 500 * time.Millisecond
	defaultJobBatchSize        = 16
	defaultJobMaxAttempts      = 5
	defaultJobBackoffBase      = time.Second
	defaultJobBackoffMax       = time.Minute
	defaultJobTimeout          = 30 * time.Second
	defaultTxTimeout           = 10 * time.Second
	defaultPointValue          = "1"
	defaultPointsEarnRate      = "100"
	defaultGatewaySendBuffer   = 64
	defaultGatewayPingInterval = 30 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:          getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:         getString(lookup, "DATABASE_URI", ""),
		Role:                getString(lookup, "ROLE", defaultRole),
		LogLevel:            getString(lookup, "LOG_LEVEL", defaultLogLevel),
		TokenSecret:         getString(lookup, "TOKEN_SECRET", defaultTokenSecret),
		TokenTTL:            getDuration(lookup, "TOKEN_TTL", defaultTokenTTL),
		ShutdownTimeout:     getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		EventBus:            getString(lookup, "EVENT_BUS", defaultEventBus),
		RedisAddress:        getString(lookup, "REDIS_ADDRESS", ""),
		RedisPassword:       getString(lookup, "REDIS_PASSWORD", ""),
		RedisDB:             getInt(lookup, "REDIS_DB", 0),
		EventBusPrefix:      getString(lookup, "EVENT_BUS_PREFIX", defaultEventBusPrefix),
		WorkerPoolSize:      getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		JobPollInterval:     getDuration(lookup, "JOB_POLL_INTERVAL", defaultJobPollInterval),
		JobBatchSize:        getInt(lookup, "JOB_BATCH_SIZE", defaultJobBatchSize),
		JobMaxAttempts:      getInt(lookup, "JOB_MAX_ATTEMPTS", defaultJobMaxAttempts),
		JobBackoffBase:      getDuration(lookup, "JOB_BACKOFF_BASE", defaultJobBackoffBase),
		JobBackoffMax:       getDuration(lookup, "JOB_BACKOFF_MAX", defaultJobBackoffMax),
		JobTimeout:          getDuration(lookup, "JOB_TIMEOUT", defaultJobTimeout),
		TxTimeout:           getDuration(lookup, "TX_TIMEOUT", defaultTxTimeout),
		SMTPAddress:         getString(lookup, "SMTP_ADDRESS", ""),
		SMTPUser:            getString(lookup, "SMTP_USER", ""),
		SMTPPassword:        getString(lookup, "SMTP_PASSWORD", ""),
		SMTPFrom:            getString(lookup, "SMTP_FROM", "orders@storefront.local"),
		GatewaySendBuffer:   getInt(lookup, "GATEWAY_SEND_BUFFER", defaultGatewaySendBuffer),
		GatewayPingInterval: getDuration(lookup, "GATEWAY_PING_INTERVAL", defaultGatewayPingInterval),
	}

	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		kafkaBrokers    = getString(lookup, "KAFKA_BROKERS", "")
		adminIDs        = getString(lookup, "ADMIN_USER_IDS", "")
		pointValue      = getString(lookup, "POINT_VALUE", defaultPointValue)
		pointsEarnRate  = getString(lookup, "POINTS_EARN_RATE", defaultPointsEarnRate)
		pollIntervalStr = cfg.JobPollInterval.String()
		jobTimeoutStr   = cfg.JobTimeout.String()
		shutdownStr     = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.Role, "role", cfg.Role, "Process role: all, worker or gateway")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&cfg.EventBus, "bus", cfg.EventBus, "Event bus driver: memory, redis or kafka")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address")
	fs.StringVar(&kafkaBrokers, "kafka", kafkaBrokers, "Comma separated Kafka brokers")
	fs.StringVar(&adminIDs, "admins", adminIDs, "Comma separated admin user ids")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Secret for signing session tokens")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent job workers")
	fs.IntVar(&cfg.JobBatchSize, "job-batch", cfg.JobBatchSize, "Maximum jobs claimed per poll")
	fs.IntVar(&cfg.JobMaxAttempts, "job-attempts", cfg.JobMaxAttempts, "Maximum attempts per job")
	fs.StringVar(&pollIntervalStr, "poll-interval", pollIntervalStr, "Interval between queue polls")
	fs.StringVar(&jobTimeoutStr, "job-timeout", jobTimeoutStr, "Processing timeout per job")
	fs.StringVar(&shutdownStr, "shutdown-timeout", shutdownStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.JobPollInterval, err = time.ParseDuration(pollIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}
	if cfg.JobTimeout, err = time.ParseDuration(jobTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid job timeout: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	if cfg.PointValue, err = decimal.NewFromString(pointValue); err != nil {
		return nil, fmt.Errorf("invalid point value: %w", err)
	}
	if cfg.PointsEarnRate, err = decimal.NewFromString(pointsEarnRate); err != nil {
		return nil, fmt.Errorf("invalid points earn rate: %w", err)
	}
	cfg.KafkaBrokers = splitList(kafkaBrokers)
	for _, raw := range splitList(adminIDs) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid admin user id %q", raw)
		}
		cfg.AdminUserIDs = append(cfg.AdminUserIDs, id)
	}

	if secretFile, ok := lookup("TOKEN_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read token secret file: %w", err)
		}
		cfg.TokenSecret = strings.TrimSpace(string(content))
	}

	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = defaultWorkerPoolSize
	}
	if c.JobBatchSize <= 0 {
		c.JobBatchSize = defaultJobBatchSize
	}
	if c.JobMaxAttempts <= 0 {
		c.JobMaxAttempts = defaultJobMaxAttempts
	}
	if c.JobPollInterval <= 0 {
		c.JobPollInterval = defaultJobPollInterval
	}
	if c.JobBackoffBase <= 0 {
		c.JobBackoffBase = defaultJobBackoffBase
	}
	if c.JobBackoffMax < c.JobBackoffBase {
		c.JobBackoffMax = c.JobBackoffBase
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}
	if c.TxTimeout <= 0 {
		c.TxTimeout = defaultTxTimeout
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.GatewaySendBuffer <= 0 {
		c.GatewaySendBuffer = defaultGatewaySendBuffer
	}
	if c.GatewayPingInterval <= 0 {
		c.GatewayPingInterval = defaultGatewayPingInterval
	}
	if !c.PointValue.IsPositive() {
		c.PointValue = decimal.RequireFromString(defaultPointValue)
	}
	if !c.PointsEarnRate.IsPositive() {
		c.PointsEarnRate = decimal.RequireFromString(defaultPointsEarnRate)
	}
	c.Role = strings.ToLower(strings.TrimSpace(c.Role))
	c.EventBus = strings.ToLower(strings.TrimSpace(c.EventBus))
}

func (c *Config) validate() error {
	switch c.Role {
	case RoleAll, RoleWorker, RoleGateway:
	default:
		return fmt.Errorf("unknown role %q", c.Role)
	}

	switch c.EventBus {
	case BusMemory:
		if c.Role != RoleAll {
			return fmt.Errorf("memory event bus only works with role %q", RoleAll)
		}
	case BusRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("redis address must be provided for redis event bus")
		}
	case BusKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka brokers must be provided for kafka event bus")
		}
	default:
		return fmt.Errorf("unknown event bus %q", c.EventBus)
	}

	if c.DatabaseURI == "" {
		return fmt.Errorf("database URI must be provided")
	}

	return nil
}

// RunsWorker reports whether the job processor is started.
func (c *Config) RunsWorker() bool {
	return c.Role == RoleAll || c.Role == RoleWorker
}

// RunsGateway reports whether the HTTP API and realtime gateway are started.
func (c *Config) RunsGateway() bool {
	return c.Role == RoleAll || c.Role == RoleGateway
}

// IsAdmin reports whether userID is listed in AdminUserIDs.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.AdminUserIDs, userID)
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
