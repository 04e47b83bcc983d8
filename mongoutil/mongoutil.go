// Package mongoutil wraps the MongoDB driver behind the shared result
// contract: connection lifecycle problems surface as errors, while
// per-operation failures (document not found, write errors, lost
// connections) come back as failure results the caller can branch on.
package mongoutil

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/inodevs/inoutils/result"
)

// Static errors for client construction.
var (
	// ErrDatabaseRequired is returned when no database name is provided.
	ErrDatabaseRequired = errors.New("mongoutil: database name is required")
	// ErrNotConnected is returned when Close is called on a nil client.
	ErrNotConnected = errors.New("mongoutil: not connected")
)

// ConnectOptions configures Connect. Either URI or the host/port component
// fields are used; URI wins when both are set.
type ConnectOptions struct {
	URI string

	Host       string
	Port       int
	Username   string
	Password   string
	AuthSource string

	// Database is the database all operations run against. Required.
	Database string
	// AppName is advertised to the server for diagnostics.
	AppName string
	// CheckConnection pings the server after connecting, failing fast when
	// it is unreachable.
	CheckConnection bool
	// EnsureCollection, when non-empty, creates a marker collection so the
	// database materializes on servers that create databases lazily.
	EnsureCollection string
	// ServerSelectionTimeout bounds server discovery. Defaults to 5s.
	ServerSelectionTimeout time.Duration
}

// buildURI assembles a mongodb:// URI from the component fields.
func buildURI(opts ConnectOptions) string {
	if opts.URI != "" {
		return opts.URI
	}

	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	port := opts.Port
	if port <= 0 {
		port = 27017
	}

	var userinfo string
	if opts.Username != "" {
		userinfo = url.QueryEscape(opts.Username)
		if opts.Password != "" {
			userinfo += ":" + url.QueryEscape(opts.Password)
		}
		userinfo += "@"
	}

	uri := fmt.Sprintf("mongodb://%s%s:%d", userinfo, host, port)
	if opts.AuthSource != "" {
		uri += "/?authSource=" + url.QueryEscape(opts.AuthSource)
	}
	return uri
}

// Client is a connected MongoDB database handle.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes a MongoDB connection. Unreachable servers are
// reported as an error when CheckConnection is set; otherwise connection
// problems surface on the first operation as failure results.
func Connect(ctx context.Context, opts ConnectOptions) (*Client, error) {
	if opts.Database == "" {
		return nil, ErrDatabaseRequired
	}

	timeout := opts.ServerSelectionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(buildURI(opts)).
		SetServerSelectionTimeout(timeout)
	if opts.AppName != "" {
		clientOpts = clientOpts.SetAppName(opts.AppName)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongoutil: connect: %w", err)
	}

	if opts.CheckConnection {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongoutil: ping: %w", err)
		}
	}

	c := &Client{client: client, db: client.Database(opts.Database)}

	if opts.EnsureCollection != "" {
		// Ignore "already exists"; the point is only to materialize the DB.
		_ = c.db.CreateCollection(ctx, opts.EnsureCollection)
	}

	return c, nil
}

// Close disconnects from the server.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrNotConnected
	}
	return c.client.Disconnect(ctx)
}

// InsertOneResult reports the outcome of an insert.
type InsertOneResult struct {
	result.Status
	InsertedID string `json:"inserted_id,omitempty"`
}

// InsertOne inserts a document into the collection.
func (c *Client) InsertOne(ctx context.Context, collection string, doc any) InsertOneResult {
	res, err := c.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return InsertOneResult{Status: result.Err("insert into %s: %v", collection, err)}
	}
	return InsertOneResult{
		Status:     result.Ok("document inserted"),
		InsertedID: formatID(res.InsertedID),
	}
}

// FindOneResult carries a single matched document.
type FindOneResult struct {
	result.Status
	Document map[string]any `json:"document,omitempty"`
}

// FindOne returns the first document matching filter. No match is a
// failure result, not an error.
func (c *Client) FindOne(ctx context.Context, collection string, filter any) FindOneResult {
	if filter == nil {
		filter = bson.M{}
	}

	var doc map[string]any
	err := c.db.Collection(collection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return FindOneResult{Status: result.Err("no document matched in %s", collection)}
	}
	if err != nil {
		return FindOneResult{Status: result.Err("find in %s: %v", collection, err)}
	}
	return FindOneResult{Status: result.Ok("document found"), Document: doc}
}

// FindOptions shape a Find query.
type FindOptions struct {
	// Sort is a field-to-direction map (1 ascending, -1 descending).
	Sort map[string]int
	// Limit caps the number of returned documents; 0 means no cap.
	Limit int64
}

// FindResult carries all matched documents. Documents is empty on failure.
type FindResult struct {
	result.Status
	Documents []map[string]any `json:"documents,omitempty"`
	Count     int              `json:"count"`
}

// Find returns all documents matching filter.
func (c *Client) Find(ctx context.Context, collection string, filter any, opts FindOptions) FindResult {
	if filter == nil {
		filter = bson.M{}
	}

	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for field, dir := range opts.Sort {
			sort = append(sort, bson.E{Key: field, Value: dir})
		}
		findOpts = findOpts.SetSort(sort)
	}
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(opts.Limit)
	}

	cursor, err := c.db.Collection(collection).Find(ctx, filter, findOpts)
	if err != nil {
		return FindResult{Status: result.Err("find in %s: %v", collection, err)}
	}

	var docs []map[string]any
	if err := cursor.All(ctx, &docs); err != nil {
		return FindResult{Status: result.Err("read cursor for %s: %v", collection, err)}
	}

	return FindResult{
		Status:    result.Ok(fmt.Sprintf("found %d documents", len(docs))),
		Documents: docs,
		Count:     len(docs),
	}
}

// UpdateResult reports matched and modified counts.
type UpdateResult struct {
	result.Status
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

// UpdateOne applies update to the first document matching filter. Matching
// nothing is a failure result.
func (c *Client) UpdateOne(ctx context.Context, collection string, filter, update any) UpdateResult {
	res, err := c.db.Collection(collection).UpdateOne(ctx, filter, update)
	if err != nil {
		return UpdateResult{Status: result.Err("update in %s: %v", collection, err)}
	}
	if res.MatchedCount == 0 {
		return UpdateResult{Status: result.Err("no document matched in %s", collection)}
	}
	return UpdateResult{
		Status:   result.Ok("document updated"),
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
	}
}

// DeleteResult reports the number of deleted documents.
type DeleteResult struct {
	result.Status
	Deleted int64 `json:"deleted"`
}

// DeleteOne removes the first document matching filter. Matching nothing is
// a failure result.
func (c *Client) DeleteOne(ctx context.Context, collection string, filter any) DeleteResult {
	res, err := c.db.Collection(collection).DeleteOne(ctx, filter)
	if err != nil {
		return DeleteResult{Status: result.Err("delete in %s: %v", collection, err)}
	}
	if res.DeletedCount == 0 {
		return DeleteResult{Status: result.Err("no document matched in %s", collection)}
	}
	return DeleteResult{Status: result.Ok("document deleted"), Deleted: res.DeletedCount}
}

// CountResult carries a document count.
type CountResult struct {
	result.Status
	Count int64 `json:"count"`
}

// Count returns the number of documents matching filter.
func (c *Client) Count(ctx context.Context, collection string, filter any) CountResult {
	if filter == nil {
		filter = bson.M{}
	}

	n, err := c.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return CountResult{Status: result.Err("count in %s: %v", collection, err)}
	}
	return CountResult{Status: result.Ok(fmt.Sprintf("%d documents", n)), Count: n}
}

// AggregateResult carries pipeline output documents.
type AggregateResult struct {
	result.Status
	Documents []map[string]any `json:"documents,omitempty"`
}

// Aggregate runs an aggregation pipeline and collects its output.
func (c *Client) Aggregate(ctx context.Context, collection string, pipeline any) AggregateResult {
	cursor, err := c.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return AggregateResult{Status: result.Err("aggregate in %s: %v", collection, err)}
	}

	var docs []map[string]any
	if err := cursor.All(ctx, &docs); err != nil {
		return AggregateResult{Status: result.Err("read cursor for %s: %v", collection, err)}
	}
	return AggregateResult{
		Status:    result.Ok(fmt.Sprintf("aggregated %d documents", len(docs))),
		Documents: docs,
	}
}

func formatID(id any) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprintf("%v", id)
}
