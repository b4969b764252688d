package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"ceknomor"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"ceknomor"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"ceknum"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// WhatsApp Business API（无状态校验）
	WhatsAppAPIURL   string `env:"WHATSAPP_API_URL" envDefault:"https://graph.facebook.com/v19.0"`
	WhatsAppAPIToken string `env:"WHATSAPP_API_TOKEN"`
	WhatsAppPhoneID  string `env:"WHATSAPP_PHONE_ID"`

	// WhatsApp 网关（账号绑定的 deeplink profile 校验，网关内持有登录会话）
	WhatsAppGatewayURL string `env:"WHATSAPP_GATEWAY_URL" envDefault:"http://localhost:3000"`

	// Telegram
	TelegramBotToken   string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAPIURL     string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	TelegramMTPGateway string `env:"TELEGRAM_MTP_GATEWAY_URL" envDefault:"http://localhost:3001"`

	// 校验引擎配置
	QuickCheckMaxNumbers   int `env:"QUICK_CHECK_MAX_NUMBERS" envDefault:"20"`
	BulkMaxNumbers         int `env:"BULK_MAX_NUMBERS" envDefault:"1000"`
	UploadMaxBytes         int `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"` // 10MB
	BulkWorkerCount        int `env:"BULK_WORKER_COUNT" envDefault:"5"`
	QuickCheckTimeoutSec   int `env:"QUICK_CHECK_TIMEOUT_SECONDS" envDefault:"60"`
	ProviderTimeoutSec     int `env:"PROVIDER_TIMEOUT_SECONDS" envDefault:"15"`
	ProviderMaxRetries     int `env:"PROVIDER_MAX_RETRIES" envDefault:"2"`
	CacheTTLDays           int `env:"VALIDATION_CACHE_TTL_DAYS" envDefault:"7"`
	QRCodeExpireSeconds    int `env:"QR_CODE_EXPIRE_SECONDS" envDefault:"300"`
	StaleJobThresholdMin   int `env:"STALE_JOB_THRESHOLD_MINUTES" envDefault:"30"`
	DefaultCredits         int `env:"DEFAULT_CREDITS" envDefault:"0"` // 新用户默认额度，充值走账务后台
	AccountDefaultMaxDaily int `env:"ACCOUNT_DEFAULT_MAX_DAILY" envDefault:"200"`

	// 加密配置
	EncryptionKey string `env:"ENCRYPTION_KEY"` // 用于加密代理凭据等敏感数据，32字节 AES-256
	PhoneHashSalt string `env:"PHONEHASH_SALT"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// OpenTelemetry 配置
	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"` // 每秒请求数
}

func init() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	if Cfg.EncryptionKey == "" {
		log.Fatal("ENCRYPTION_KEY is required (32 bytes for AES-256)")
	}

	if len(Cfg.EncryptionKey) != 32 {
		log.Fatal("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	if Cfg.WhatsAppAPIToken == "" {
		log.Printf("WARN: WHATSAPP_API_TOKEN is not set, WhatsApp standard validation will not work")
	}

	if Cfg.TelegramBotToken == "" {
		log.Printf("WARN: TELEGRAM_BOT_TOKEN is not set, Telegram standard validation will not work")
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
