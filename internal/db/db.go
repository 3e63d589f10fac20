package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DatabaseName extracts the database name from the path of a MongoDB URI.
func DatabaseName(mongoURI string) (string, error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return "", fmt.Errorf("error parsing MongoDB URI: %w", err)
	}

	dbName := strings.TrimPrefix(uri.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("MongoDB URI %q names no database", uri.Redacted())
	}
	return dbName, nil
}

// ConnectToDB connects and pings the MongoDB deployment named by mongoURI.
// The caller disconnects the returned client on shutdown.
func ConnectToDB(mongoURI string) (*mongo.Client, *mongo.Database, error) {
	dbName, err := DatabaseName(mongoURI)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	return client, client.Database(dbName), nil
}
