package source

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"mercator-hq/dyndict/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultBusyTimeout is how long a load waits for a writer holding the
// database lock.
const DefaultBusyTimeout = 5 * time.Second

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteLoader reads a dictionary from two columns of a SQLite table. The
// database is opened read-only for each load and closed afterwards, so the
// file can be replaced between reloads.
type SQLiteLoader struct {
	path        string
	query       string
	busyTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewSQLiteLoader creates a loader reading keyColumn and valueColumn from
// table in the database at path.
func NewSQLiteLoader(path, table, keyColumn, valueColumn string, logger *slog.Logger) (*SQLiteLoader, error) {
	for _, name := range []string{table, keyColumn, valueColumn} {
		if !identifier.MatchString(name) {
			return nil, fmt.Errorf("%w: invalid SQL identifier %q", ErrUnsupported, name)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteLoader{
		path:        path,
		query:       fmt.Sprintf(`SELECT "%s", "%s" FROM "%s" ORDER BY "%s"`, keyColumn, valueColumn, table, keyColumn),
		busyTimeout: DefaultBusyTimeout,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (l *SQLiteLoader) dsn() string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", l.busyTimeout.Milliseconds()))
	return "file:" + l.path + "?" + q.Encode()
}

// Load queries the table. NULL values are stored as the empty string;
// NULL keys are an error. args is ignored.
func (l *SQLiteLoader) Load(ctx context.Context, _ any) (any, error) {
	start := l.now()

	db, err := sql.Open("sqlite", l.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx, l.query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", l.path, err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	hash := sha256.New()
	for rows.Next() {
		var key sql.NullString
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if !key.Valid {
			return nil, &ParseError{Path: l.path, Message: "NULL key"}
		}
		if _, dup := entries[key.String]; dup {
			return nil, &ParseError{Path: l.path, Message: fmt.Sprintf("duplicate key %q", key.String)}
		}
		entries[key.String] = value.String

		hash.Write([]byte(key.String))
		hash.Write([]byte{0})
		hash.Write([]byte(value.String))
		hash.Write([]byte{0})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	dict := &Dictionary{
		Entries:  entries,
		Source:   l.path,
		Checksum: hex.EncodeToString(hash.Sum(nil)),
		LoadedAt: l.now(),
	}

	tracing.SetSourceAttributes(trace.SpanFromContext(ctx), "sqlite", l.path, dict.Len(), dict.Checksum)
	l.logger.Debug("Dictionary table loaded",
		"path", l.path,
		"records", dict.Len(),
		"duration_ms", l.now().Sub(start).Milliseconds(),
	)

	return dict, nil
}
