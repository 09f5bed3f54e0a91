package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotFound is returned when a lookup by id matches no document.
var ErrNotFound = errors.New("document not found")

// Collections names the collections the client reads from and writes to.
type Collections struct {
	SeriesMeta  string
	Summaries   string
	DatasetMeta string
	Points      string
}

// Options configures Connect.
type Options struct {
	URI            string
	Database       string
	Collections    Collections
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
}

// Client is a MongoDB client for OI SST metadata, summaries and grid points.
type Client struct {
	logger    *slog.Logger
	mongoCli  *mongo.Client
	db        *mongo.Database
	colls     Collections
	opTimeout time.Duration
}

// Connect dials the database and verifies the connection with a ping.
func Connect(ctx context.Context, logger *slog.Logger, opts Options) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(opts.URI)
	clientOpts.SetServerSelectionTimeout(opts.ConnectTimeout)
	clientOpts.SetConnectTimeout(opts.ConnectTimeout)

	mongoCli, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}
	if err := mongoCli.Ping(ctx, readpref.Primary()); err != nil {
		_ = mongoCli.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}

	c := New(logger, mongoCli.Database(opts.Database), opts.Collections, opts.OpTimeout)
	c.mongoCli = mongoCli
	return c, nil
}

// New creates a client over an already connected database.
func New(logger *slog.Logger, db *mongo.Database, colls Collections, opTimeout time.Duration) *Client {
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &Client{
		logger:    logger,
		db:        db,
		colls:     colls,
		opTimeout: opTimeout,
	}
}

// Close disconnects from the database if the client owns the connection.
func (c *Client) Close(ctx context.Context) error {
	if c.mongoCli == nil {
		return nil
	}
	return c.mongoCli.Disconnect(ctx)
}

// SeriesMeta returns the time-series metadata document of a series.
func (c *Client) SeriesMeta(ctx context.Context, id string) (*Meta, error) {
	var m Meta
	if err := c.findByID(ctx, c.colls.SeriesMeta, id, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DatasetMeta returns the metadata document describing a loaded dataset.
func (c *Client) DatasetMeta(ctx context.Context, id string) (*Meta, error) {
	var m Meta
	if err := c.findByID(ctx, c.colls.DatasetMeta, id, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Summary returns the summary document with the given id.
func (c *Client) Summary(ctx context.Context, id string) (*Summary, error) {
	var s Summary
	if err := c.findByID(ctx, c.colls.Summaries, id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PutSummary inserts the summary document or replaces it in full.
func (c *Client) PutSummary(ctx context.Context, s *Summary) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	res, err := c.db.Collection(c.colls.Summaries).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: s.ID}}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	c.logger.Debug("Summary written", "id", s.ID, "matched", res.MatchedCount, "upserted", res.UpsertedCount)
	return nil
}

// GridPoint returns the record of a grid cell by its "<lon>_<lat>" key.
func (c *Client) GridPoint(ctx context.Context, key string) (*GridPoint, error) {
	var p GridPoint
	if err := c.findByID(ctx, c.colls.Points, key, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) findByID(ctx context.Context, coll, id string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	err := c.db.Collection(coll).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %q: %w", coll, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s %q: %w", coll, id, err)
	}
	return nil
}
