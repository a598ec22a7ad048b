package database

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// defaultRetryDelay wait between attempts when the config leaves retry_interval empty
const defaultRetryDelay = time.Second

// Connection connection string of mongo (conversations, messages), postgres (member lookup)
// or rabbitmq (offline notifications). RetryInterval is counted in seconds, as in the yaml
type Connection struct {
	ConnectStr string

	RetryCount    int
	RetryInterval time.Duration
}

// MongoDB client plus the chat database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// MinIOConnection bucket holding message attachments
type MinIOConnection struct {
	Endpoint   string
	User       string
	Password   string
	BucketName string
	UseSSL     bool

	RetryCount    int
	RetryInterval time.Duration
}

// KafkaConnection brokers and topic of chat events
type KafkaConnection struct {
	Brokers       []string
	Topic         string
	RetryCount    int
	RetryInterval time.Duration
}

// retryDelay convert a seconds based retry_interval, zero or negative falls back to one second
func retryDelay(interval time.Duration) time.Duration {
	if interval <= 0 {
		return defaultRetryDelay
	}
	return interval * time.Second
}
