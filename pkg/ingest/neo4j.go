package ingest

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// corridorCypher returns every CORRIDOR relationship with its endpoint codes.
// Relationship properties become row columns.
const corridorCypher = `MATCH (a)-[c:CORRIDOR]->(b)
RETURN a.code AS source_country, b.code AS destination_country, properties(c) AS props`

// Neo4jOptions configures a Neo4jSource.
type Neo4jOptions struct {
	URI            string
	Username       string
	Password       string
	Database       string
	MaxConnections int
}

// Neo4jSource reads corridors from a property graph over Bolt.
type Neo4jSource struct {
	driver   neo4j.DriverWithContext
	database string
	name     string
}

// NewNeo4jSource connects to the graph database and verifies connectivity.
func NewNeo4jSource(ctx context.Context, opts Neo4jOptions) (*Neo4jSource, error) {
	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(c *neo4j.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	return &Neo4jSource{driver: driver, database: opts.Database, name: opts.URI}, nil
}

// Name returns the Bolt URI without credentials.
func (s *Neo4jSource) Name() string { return s.name }

// Rows runs the corridor query in a read session.
func (s *Neo4jSource) Rows(ctx context.Context) ([]Row, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, corridorCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("query corridors: %w", err)
	}

	var rows []Row
	for res.Next(ctx) {
		rec := res.Record()
		values := make(map[string]any, len(rec.Keys))
		for _, key := range rec.Keys {
			v, _ := rec.Get(key)
			values[key] = v
		}
		rows = append(rows, rowFromRecord(values))
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("read corridors: %w", err)
	}
	return rows, nil
}

// Close releases the driver.
func (s *Neo4jSource) Close() error {
	return s.driver.Close(context.Background())
}

// rowFromRecord flattens a query record. Properties in props never override
// the endpoint columns.
func rowFromRecord(values map[string]any) Row {
	row := make(Row, len(values))
	if props, ok := values["props"].(map[string]any); ok {
		for k, v := range props {
			row[k] = formatValue(v)
		}
	}
	for k, v := range values {
		if k == "props" {
			continue
		}
		row[k] = formatValue(v)
	}
	return row
}
