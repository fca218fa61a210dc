package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"mercator-hq/dyndict/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// File formats understood by FileLoader.
const (
	FormatTSV  = "tsv"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// FileLoader reads a dictionary from a file. Its Load method is a
// registry.Loader.
type FileLoader struct {
	path    string
	format  string
	maxSize int64
	logger  *slog.Logger
	now     func() time.Time
}

// NewFileLoader creates a loader for path in the given format. maxSize
// bounds the file size in bytes; zero means unlimited.
func NewFileLoader(path, format string, maxSize int64, logger *slog.Logger) (*FileLoader, error) {
	switch format {
	case FormatTSV, FormatYAML, FormatJSON:
	default:
		return nil, fmt.Errorf("%w: format %q", ErrUnsupported, format)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileLoader{
		path:    path,
		format:  format,
		maxSize: maxSize,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Path returns the file the loader reads.
func (l *FileLoader) Path() string {
	return l.path
}

// Load reads and parses the file. args is ignored.
func (l *FileLoader) Load(ctx context.Context, _ any) (any, error) {
	start := l.now()

	data, err := l.read()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries map[string]string
	switch l.format {
	case FormatTSV:
		entries, err = parseTSV(l.path, data)
	case FormatYAML:
		entries, err = parseYAML(l.path, data)
	case FormatJSON:
		entries, err = parseJSON(l.path, data)
	}
	if err != nil {
		return nil, err
	}

	dict := &Dictionary{
		Entries:  entries,
		Source:   l.path,
		Checksum: checksum(data),
		LoadedAt: l.now(),
	}

	tracing.SetSourceAttributes(trace.SpanFromContext(ctx), "file", l.path, dict.Len(), dict.Checksum)
	l.logger.Debug("Dictionary file parsed",
		"path", l.path,
		"format", l.format,
		"records", dict.Len(),
		"bytes", len(data),
		"duration_ms", l.now().Sub(start).Milliseconds(),
	)

	return dict, nil
}

// read returns the file content, refusing files larger than maxSize.
func (l *FileLoader) read() ([]byte, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open resource file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if l.maxSize > 0 {
		r = io.LimitReader(f, l.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource file %s: %w", l.path, err)
	}
	if l.maxSize > 0 && int64(len(data)) > l.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, l.path, l.maxSize)
	}
	return data, nil
}

// parseTSV reads key<TAB>value lines. Blank lines and lines starting with
// '#' are skipped. A line without a tab maps the key to the empty string.
func parseTSV(path string, data []byte) (map[string]string, error) {
	entries := make(map[string]string)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		key, value, _ := strings.Cut(text, "\t")
		if key == "" {
			return nil, &ParseError{Path: path, Line: line, Message: "empty key"}
		}
		if _, dup := entries[key]; dup {
			return nil, &ParseError{Path: path, Line: line, Message: fmt.Sprintf("duplicate key %q", key)}
		}
		entries[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: path, Line: line + 1, Message: "failed to scan line", Cause: err}
	}

	return entries, nil
}

// parseYAML reads a flat mapping. Scalar values are kept as written;
// nested mappings and sequences are rejected.
func parseYAML(path string, data []byte) (map[string]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Message: "invalid YAML", Cause: err}
	}

	entries := make(map[string]string)
	if len(doc.Content) == 0 {
		return entries, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Path: path, Line: root.Line, Message: "top level must be a mapping"}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, &ParseError{Path: path, Line: v.Line, Message: fmt.Sprintf("value of %q is not a scalar", k.Value)}
		}
		if _, dup := entries[k.Value]; dup {
			return nil, &ParseError{Path: path, Line: k.Line, Message: fmt.Sprintf("duplicate key %q", k.Value)}
		}
		entries[k.Value] = v.Value
	}

	return entries, nil
}

// parseJSON reads a flat object. Non-string scalars are stored in their
// JSON text form.
func parseJSON(path string, data []byte) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Message: "invalid JSON object", Cause: err}
	}

	entries := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			entries[k] = s
			continue
		}
		text := string(bytes.TrimSpace(v))
		if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("value of %q is not a scalar", k)}
		}
		entries[k] = text
	}

	return entries, nil
}
