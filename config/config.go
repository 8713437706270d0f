package config

type Config struct {
	AppName  string `env:"APP_NAME" env-default:"refproxy"`
	Version  string `env:"APP_VERSION" env-default:"dev"`
	Port     int    `env:"PORT" env-default:"3000"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"60"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Outbound fan-out cap, per spec §5's "suggested cap of 8". It is read
	// from the environment but not passed on: the enricher (C3) and the
	// per-record FK resolver (C10) use fanout.DefaultConcurrency (8).
	FanoutConcurrency int `env:"FANOUT_CONCURRENCY" env-default:"8"`

	// Auth is an out-of-scope collaborator (spec §1); when an issuer is
	// configured, bearer tokens on incoming requests are verified.
	AuthEnabled   bool   `env:"AUTH_ENABLED" env-default:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	AuthClientID  string `env:"AUTH_CLIENT_ID" env-default:""`

	// Redis backs the optional outbound rate limiter (SPEC_FULL §11) and
	// the health check's "redis" dependency probe. RedisEnabled=false (the
	// default) leaves both disabled.
	RedisEnabled  bool   `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Outbound rate limit applied to source/target calls, distinct from
	// the core's own no-rate-limiting non-goal (spec §1): this throttles
	// calls this service makes to someone else's API, not calls made to it.
	OutboundRateLimit        int64 `env:"OUTBOUND_RATE_LIMIT" env-default:"0"` // 0 disables
	OutboundRateLimitWindowS int   `env:"OUTBOUND_RATE_LIMIT_WINDOW_SECONDS" env-default:"1"`

	// Kafka backs fire-and-forget export/import audit events (SPEC_FULL
	// §11). KafkaEnabled=false (the default) leaves audit publishing
	// disabled.
	KafkaEnabled    bool   `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers    string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaEventTopic string `env:"KAFKA_EVENT_TOPIC" env-default:"refproxy-audit"`
	KafkaErrorTopic string `env:"KAFKA_ERROR_TOPIC" env-default:"refproxy-audit-errors"`

	// Tracing settings
	OTLPEnabled  bool   `env:"OTLP_ENABLED" env-default:"false"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	OTLPInsecure bool   `env:"OTLP_INSECURE" env-default:"true"`

	// RecordURLBase, when set, is used by the diagram codec (C6) to emit
	// `click` handlers linking exported nodes back to their source record.
	RecordURLBase string `env:"RECORD_URL_BASE" env-default:""`
}
