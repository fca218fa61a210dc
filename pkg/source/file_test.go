package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func loadFile(t *testing.T, path, format string, maxSize int64) (*Dictionary, error) {
	t.Helper()
	loader, err := NewFileLoader(path, format, maxSize, nil)
	if err != nil {
		t.Fatalf("NewFileLoader() error = %v", err)
	}
	v, err := loader.Load(context.Background(), nil)
	if err != nil {
		return nil, err
	}
	return v.(*Dictionary), nil
}

func TestFileLoader_TSV(t *testing.T) {
	content := "# stopwords\n" +
		"the\tarticle\n" +
		"\n" +
		"a\tarticle\r\n" +
		"of\n" +
		"tab\tvalue\twith\ttabs\n"
	path := writeFile(t, "stopwords.tsv", content)

	dict, err := loadFile(t, path, FormatTSV, 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]string{
		"the": "article",
		"a":   "article",
		"of":  "",
		"tab": "value\twith\ttabs",
	}
	if dict.Len() != len(want) {
		t.Errorf("Len() = %d, want %d (%v)", dict.Len(), len(want), dict.Entries)
	}
	for k, v := range want {
		if got, ok := dict.Lookup(k); !ok || got != v {
			t.Errorf("Lookup(%q) = %q, %v, want %q", k, got, ok, v)
		}
	}
	if dict.Source != path {
		t.Errorf("Source = %q", dict.Source)
	}
	if len(dict.Checksum) != 64 {
		t.Errorf("Checksum = %q", dict.Checksum)
	}
	if dict.LoadedAt.IsZero() {
		t.Error("LoadedAt is zero")
	}
}

func TestFileLoader_TSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{"duplicate key", "a\t1\nb\t2\na\t3\n", 3},
		{"empty key", "a\t1\n\tvalue\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFile(t, writeFile(t, "bad.tsv", tt.content), FormatTSV, 0)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Load() error = %v, want ParseError", err)
			}
			if perr.Line != tt.line {
				t.Errorf("Line = %d, want %d", perr.Line, tt.line)
			}
		})
	}
}

func TestFileLoader_YAML(t *testing.T) {
	content := "en: English\nde: German\ncount: 3\nempty:\n"
	dict, err := loadFile(t, writeFile(t, "labels.yaml", content), FormatYAML, 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v, _ := dict.Lookup("de"); v != "German" {
		t.Errorf("Lookup(de) = %q", v)
	}
	if v, _ := dict.Lookup("count"); v != "3" {
		t.Errorf("Lookup(count) = %q", v)
	}
	if v, ok := dict.Lookup("empty"); !ok || v != "" {
		t.Errorf("Lookup(empty) = %q, %v", v, ok)
	}

	empty, err := loadFile(t, writeFile(t, "empty.yaml", ""), FormatYAML, 0)
	if err != nil || empty.Len() != 0 {
		t.Errorf("empty yaml = %v, %v", empty, err)
	}
}

func TestFileLoader_YAMLErrors(t *testing.T) {
	tests := map[string]string{
		"not a mapping": "- a\n- b\n",
		"nested value":  "a:\n  b: c\n",
		"duplicate key": "a: 1\na: 2\n",
		"invalid":       "a: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadFile(t, writeFile(t, "bad.yaml", content), FormatYAML, 0)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("Load() error = %v, want ParseError", err)
			}
		})
	}
}

func TestFileLoader_JSON(t *testing.T) {
	content := `{"us": "United States", "code": 840, "active": true, "none": null}`
	dict, err := loadFile(t, writeFile(t, "countries.json", content), FormatJSON, 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]string{"us": "United States", "code": "840", "active": "true", "none": ""}
	for k, v := range want {
		if got, _ := dict.Lookup(k); got != v {
			t.Errorf("Lookup(%q) = %q, want %q", k, got, v)
		}
	}

	for name, bad := range map[string]string{
		"array":  `["a"]`,
		"nested": `{"a": {"b": 1}}`,
		"list":   `{"a": [1]}`,
	} {
		if _, err := loadFile(t, writeFile(t, name+".json", bad), FormatJSON, 0); err == nil {
			t.Errorf("%s: Load() error = nil", name)
		}
	}
}

func TestFileLoader_MaxSize(t *testing.T) {
	path := writeFile(t, "big.tsv", strings.Repeat("k\tv\n", 10))

	if _, err := loadFile(t, path, FormatTSV, 39); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Load() error = %v, want ErrTooLarge", err)
	}
	// 40 bytes fits, so parsing runs and trips over the repeated key.
	_, err := loadFile(t, path, FormatTSV, 40)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("Load() at exact size error = %v, want ParseError", err)
	}
}

func TestFileLoader_Errors(t *testing.T) {
	if _, err := NewFileLoader("x.csv", "csv", 0, nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("NewFileLoader(csv) error = %v, want ErrUnsupported", err)
	}

	_, err := loadFile(t, filepath.Join(t.TempDir(), "missing.tsv"), FormatTSV, 0)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() of missing file error = %v, want ErrNotExist", err)
	}

	loader, _ := NewFileLoader(writeFile(t, "a.tsv", "a\t1\n"), FormatTSV, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := loader.Load(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() with cancelled context error = %v", err)
	}
}

func TestFileLoader_ChecksumTracksContent(t *testing.T) {
	path := writeFile(t, "a.tsv", "a\t1\n")
	first, err := loadFile(t, path, FormatTSV, 0)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := loadFile(t, path, FormatTSV, 0)
	if first.Checksum != again.Checksum {
		t.Error("checksum changed for identical content")
	}

	if err := os.WriteFile(path, []byte("a\t2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	changed, _ := loadFile(t, path, FormatTSV, 0)
	if changed.Checksum == first.Checksum {
		t.Error("checksum did not change with content")
	}
}

func TestDictionary_Keys(t *testing.T) {
	d := &Dictionary{Entries: map[string]string{"b": "2", "a": "1", "c": "3"}}
	keys := d.Keys()
	if strings.Join(keys, ",") != "a,b,c" {
		t.Errorf("Keys() = %v", keys)
	}
	if _, ok := d.Lookup("z"); ok {
		t.Error("Lookup(z) ok = true")
	}
}

func TestParseError(t *testing.T) {
	withLine := &ParseError{Path: "a.tsv", Line: 3, Message: "empty key"}
	if got := withLine.Error(); got != "parse error in a.tsv at line 3: empty key" {
		t.Errorf("Error() = %q", got)
	}

	cause := errors.New("boom")
	noLine := &ParseError{Path: "a.json", Message: "invalid JSON object", Cause: cause}
	if got := noLine.Error(); got != "parse error in a.json: invalid JSON object: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(noLine, cause) {
		t.Error("ParseError does not unwrap to its cause")
	}
}
