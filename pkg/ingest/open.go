package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedScheme is returned by OpenSource for unknown URI schemes.
var ErrUnsupportedScheme = errors.New("unsupported corridor source scheme")

// OpenSource picks a Source implementation from the URI scheme:
//
//	/path/corridors.csv, file:///path        local CSV
//	s3://bucket/key.csv                      CSV object in S3
//	postgres://user:pw@host/db?table=name    PostgreSQL table
//	neo4j://user:pw@host:7687?db=name        CORRIDOR relationships over Bolt
func OpenSource(ctx context.Context, uri string) (Source, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("corridor source is empty")
	}
	if !strings.Contains(uri, "://") {
		return NewFileSource(uri), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse source uri: %w", err)
	}

	switch u.Scheme {
	case "file":
		return NewFileSource(u.Path), nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("s3 source needs bucket and key: %s", uri)
		}
		return NewS3Source(ctx, u.Host, key)
	case "postgres", "postgresql":
		q := u.Query()
		table := q.Get("table")
		q.Del("table")
		u.RawQuery = q.Encode()
		return NewPostgresSource(ctx, u.String(), table)
	case "neo4j", "neo4j+s", "neo4j+ssc", "bolt", "bolt+s", "bolt+ssc":
		return NewNeo4jSource(ctx, neo4jOptions(u))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func neo4jOptions(u *url.URL) Neo4jOptions {
	opts := Neo4jOptions{Database: u.Query().Get("db")}
	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}
	clean := *u
	clean.User = nil
	clean.RawQuery = ""
	opts.URI = clean.String()
	return opts
}
