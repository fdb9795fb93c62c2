package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/gogotex/ocrsearch/internal/config"
	"github.com/gogotex/ocrsearch/internal/document/repository"
)

const appName = "ocrsearch"

// ConnectMongo opens a connection and pings the primary. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo connect: DATABASE_URL is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// OpenMongo connects and prepares the document collections in cfg.Database.
func OpenMongo(ctx context.Context, cfg config.StoreConfig) (*repository.MongoRepo, error) {
	client, err := ConnectMongo(ctx, cfg.URL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	r, err := repository.NewMongoRepo(ctx, client, cfg.Database)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}
