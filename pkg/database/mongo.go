package database

import (
	"context"
	"fmt"
	"time"

	"recruit_chat_service/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// mongoAttemptTimeout bound of one connect + ping attempt
const mongoAttemptTimeout = 10 * time.Second

// NewMongoDB connect and ping the primary, retrying RetryCount times
func NewMongoDB(ctx context.Context, c Connection, dbName string) (*MongoDB, error) {
	clientOpts := options.Client().
		ApplyURI(c.ConnectStr).
		SetServerSelectionTimeout(mongoAttemptTimeout).
		SetRetryWrites(true)

	var err error
	for i := 0; i <= c.RetryCount; i++ {
		var client *mongo.Client
		client, err = connectMongo(ctx, clientOpts)
		if err == nil {
			return &MongoDB{
				Client:   client,
				Database: client.Database(dbName),
			}, nil
		}

		logger.Log.Warn("Failed to connect to mongoDB, retrying...",
			zap.Int("attempt", i+1),
			zap.String("database", dbName),
			zap.Error(err),
		)
		if i < c.RetryCount {
			time.Sleep(retryDelay(c.RetryInterval))
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after retries: %w", err)
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, mongoAttemptTimeout)
	defer cancel()

	client, err := mongo.Connect(attemptCtx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(attemptCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// Close disconnect the client
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
