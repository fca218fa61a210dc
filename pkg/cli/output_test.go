package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

type sampleRows []struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s sampleRows) Table() Table {
	t := Table{Headers: []string{"NAME", "VALUE"}}
	for _, r := range s {
		t.Rows = append(t.Rows, []string{r.Name, r.Value})
	}
	return t
}

var rows = sampleRows{
	{Name: "stopwords", Value: "a"},
	{Name: "geo", Value: "b,c"},
}

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}

	output, err := formatter.Format("test message")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(output) != "test message\n" {
		t.Errorf("Format() = %q", output)
	}

	buf := &bytes.Buffer{}
	if err := formatter.FormatTo(buf, rows); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	want := "NAME       VALUE\nstopwords  a\ngeo        b,c\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}
}

func TestJSONFormatter(t *testing.T) {
	for _, indent := range []bool{false, true} {
		formatter := &JSONFormatter{Indent: indent}
		output, err := formatter.Format(rows)
		if err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		var result []map[string]string
		if err := json.Unmarshal(output, &result); err != nil {
			t.Fatalf("Format() produced invalid JSON: %v", err)
		}
		if len(result) != 2 || result[1]["value"] != "b,c" {
			t.Errorf("Format() = %s", output)
		}
	}

	buf := &bytes.Buffer{}
	if err := (&JSONFormatter{Indent: true}).FormatTo(buf, map[string]string{"test": "value"}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil || result["test"] != "value" {
		t.Errorf("FormatTo() = %q, %v", buf.String(), err)
	}
}

func TestCSVFormatter(t *testing.T) {
	formatter := &CSVFormatter{}

	output, err := formatter.Format(rows)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "NAME,VALUE\nstopwords,a\ngeo,\"b,c\"\n"
	if string(output) != want {
		t.Errorf("Format() = %q, want %q", output, want)
	}

	if _, err := formatter.Format("plain"); !errors.Is(err, ErrNotTabular) {
		t.Errorf("Format(string) error = %v, want ErrNotTabular", err)
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "*cli.TextFormatter"},
		{FormatJSON, "*cli.JSONFormatter"},
		{FormatCSV, "*cli.CSVFormatter"},
		{"unknown", "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		if got := fmt.Sprintf("%T", NewFormatter(tt.format)); got != tt.want {
			t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := map[string]OutputFormat{
		"":     FormatText,
		"text": FormatText,
		"JSON": FormatJSON,
		"csv":  FormatCSV,
	}
	for in, want := range tests {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("junit"); err == nil {
		t.Error("ParseOutputFormat(junit) error = nil")
	}
}
