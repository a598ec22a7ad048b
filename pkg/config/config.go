package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port           string          `mapstructure:"port"`
	GRPCHealthPort string          `mapstructure:"grpc_health_port"`
	EnableMetrics  bool            `mapstructure:"enable_metrics"`
	JWTSecret      string          `mapstructure:"jwt_secret"`
	MongoSQL       DatabaseConfig  `mapstructure:"mongo"`
	Redis          RedisConfig     `mapstructure:"redis"`
	PostgreSQL     DatabaseConfig  `mapstructure:"pg"`
	MinIO          MinIOConfig     `mapstructure:"minio"`
	Kafka          KafkaConfig     `mapstructure:"kafka"`
	RabbitMQ       RabbitMQConfig  `mapstructure:"rabbitmq"`
	Websocket      WebsocketConfig `mapstructure:"websocket"`
	Messaging      MessagingConfig `mapstructure:"messaging"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	RedisDB    int           `mapstructure:"redis_db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition media bucket setting
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	BucketName    string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	RetryInterval int           `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}

// KafkaConfig definition chat event topic
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// RabbitMQConfig definition offline notification queue
type RabbitMQConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	Queue         string `mapstructure:"queue"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// WebsocketConfig definition realtime gateway limits
type WebsocketConfig struct {
	SendQueueSize    int           `mapstructure:"send_queue_size"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	PongWait         time.Duration `mapstructure:"pong_wait"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	RateEvents       int           `mapstructure:"rate_events"`
	RateWindow       time.Duration `mapstructure:"rate_window"`
	MaxFrameBytes    int64         `mapstructure:"max_frame_bytes"`
}

// MessagingConfig definition messaging business rules
type MessagingConfig struct {
	BlockPolicy    string `mapstructure:"block_policy"`
	MaxContentSize int    `mapstructure:"max_content_size"`
	SearchLimit    int    `mapstructure:"search_limit"`
	MaxPageSize    int    `mapstructure:"max_page_size"`
}

// frameEnvelopeBytes room for the websocket request fields besides content
const frameEnvelopeBytes = 4096

// WithDefaults fill the zero values of the realtime and messaging sections
func (c Chat) WithDefaults() Chat {
	ws := &c.Websocket
	if ws.SendQueueSize <= 0 {
		ws.SendQueueSize = 256
	}
	if ws.PingInterval <= 0 {
		ws.PingInterval = 25 * time.Second
	}
	if ws.PongWait <= ws.PingInterval {
		ws.PongWait = ws.PingInterval + 15*time.Second
	}
	if ws.WriteTimeout <= 0 {
		ws.WriteTimeout = 5 * time.Second
	}
	if ws.HandshakeTimeout <= 0 {
		ws.HandshakeTimeout = 10 * time.Second
	}
	if ws.RateEvents <= 0 {
		ws.RateEvents = 120
	}
	if ws.RateWindow <= 0 {
		ws.RateWindow = 10 * time.Second
	}

	m := &c.Messaging
	if m.BlockPolicy == "" {
		m.BlockPolicy = "asymmetric"
	}
	if m.MaxContentSize <= 0 {
		m.MaxContentSize = 4000
	}
	if m.SearchLimit <= 0 {
		m.SearchLimit = 50
	}
	if m.MaxPageSize <= 0 {
		m.MaxPageSize = 100
	}
	// 最長內容以 \uXXXX 轉義計算, 再加上 envelope
	if ws.MaxFrameBytes <= 0 {
		ws.MaxFrameBytes = int64(m.MaxContentSize)*6 + frameEnvelopeBytes
	}

	if c.Redis.SessionTTL <= 0 {
		c.Redis.SessionTTL = time.Hour
	}
	if c.MinIO.PresignExpiry <= 0 {
		c.MinIO.PresignExpiry = 15 * time.Minute
	}
	return c
}
