package output

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/s0up4200/foxcheck/bulk"
	"github.com/s0up4200/foxcheck/filter"
	"github.com/s0up4200/foxcheck/foxentry"
)

// Format names accepted by New
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options controls what a formatter prints
type Options struct {
	// ShowDetails adds rate-limit headers and the echoed request
	ShowDetails bool
	// Color enables ANSI colors in console output
	Color bool
}

// Row is one bulk line ready for display
type Row struct {
	Line  int
	Input string
	Items []filter.Item
	Err   error
}

// Formatter renders API results
type Formatter interface {
	// Response writes the items of a single response
	Response(w io.Writer, endpoint string, resp *foxentry.Response, items []filter.Item) error
	// Bulk writes the rows of a bulk run followed by its summary
	Bulk(w io.Writer, endpoint string, rows []Row, summary bulk.Summary) error
}

// New returns the formatter for format
func New(format string, opts Options) (Formatter, error) {
	switch format {
	case FormatConsole, "":
		return &ConsoleFormatter{opts: opts}, nil
	case FormatJSON:
		return &JSONFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// ConsoleFormatter prints results as a tree
type ConsoleFormatter struct {
	opts Options
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(opts Options) *ConsoleFormatter {
	return &ConsoleFormatter{opts: opts}
}

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiDim   = "\x1b[2m"
)

func (f *ConsoleFormatter) paint(color, s string) string {
	if !f.opts.Color {
		return s
	}
	return color + s + ansiReset
}

// Response implements Formatter
func (f *ConsoleFormatter) Response(w io.Writer, endpoint string, resp *foxentry.Response, items []filter.Item) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%s (status %d)\n", endpoint, resp.Status())

	if f.opts.ShowDetails {
		f.writeDetails(&sb, resp)
	}

	if len(items) == 0 {
		sb.WriteString("No results\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	sb.WriteString("\nResult")
	if len(items) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " (%d):\n\n", len(items))

	for i, item := range items {
		isLast := i == len(items)-1
		f.writeItem(&sb, i+1, item, isLast)
		if !isLast {
			sb.WriteString("│\n")
		}
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// Bulk implements Formatter
func (f *ConsoleFormatter) Bulk(w io.Writer, endpoint string, rows []Row, summary bulk.Summary) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%s: %s\n\n", endpoint, summary)

	for i, row := range rows {
		isLast := i == len(rows)-1
		prefix := "├"
		indent := "│   "
		if isLast {
			prefix = "╰"
			indent = "    "
		}

		if row.Err != nil {
			fmt.Fprintf(&sb, "%s── %s %s (line %d)\n", prefix, f.paint(ansiRed, "✗"), row.Input, row.Line)
			fmt.Fprintf(&sb, "%s%s\n", indent, f.paint(ansiRed, row.Err.Error()))
			continue
		}

		fmt.Fprintf(&sb, "%s── %s %s (line %d)\n", prefix, f.mark(row.Items), row.Input, row.Line)
		for _, item := range row.Items {
			for _, line := range summarize(item) {
				fmt.Fprintf(&sb, "%s%s\n", indent, line)
			}
		}
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *ConsoleFormatter) writeItem(sb *strings.Builder, index int, item filter.Item, isLast bool) {
	prefix := "├"
	indent := "│   "
	if isLast {
		prefix = "╰"
		indent = "    "
	}

	fmt.Fprintf(sb, "%s── #%d %s\n", prefix, index, f.mark([]filter.Item{item}))

	for _, key := range slices.Sorted(maps.Keys(item)) {
		fmt.Fprintf(sb, "%s%s: %s\n", indent, key, render(item[key]))
	}
}

func (f *ConsoleFormatter) writeDetails(sb *strings.Builder, resp *foxentry.Response) {
	var parts []string
	if remaining, err := resp.RateLimitRemaining(); err == nil {
		if limit, err := resp.RateLimit(); err == nil {
			parts = append(parts, fmt.Sprintf("Rate limit: %d/%d", remaining, limit))
		}
	}
	if left, err := resp.DailyCreditsLeft(); err == nil && left != nil {
		credits := fmt.Sprintf("Credits left: %g", *left)
		if limit, err := resp.DailyCreditsLimit(); err == nil && limit != nil {
			credits += fmt.Sprintf("/%d", *limit)
		}
		parts = append(parts, credits)
	}
	if version, err := resp.APIVersion(); err == nil {
		parts = append(parts, fmt.Sprintf("API %g", version))
	}
	if len(parts) > 0 {
		fmt.Fprintf(sb, "%s\n", f.paint(ansiDim, strings.Join(parts, " | ")))
	}
	if req := resp.Request(); req != nil {
		fmt.Fprintf(sb, "%s\n", f.paint(ansiDim, "Request: "+render(req)))
	}
}

// mark returns a check or cross when the items carry an isValid flag
func (f *ConsoleFormatter) mark(items []filter.Item) string {
	for _, item := range items {
		if valid, ok := item["isValid"].(bool); ok {
			if valid {
				return f.paint(ansiGreen, "✓")
			}
			return f.paint(ansiRed, "✗")
		}
	}
	return "•"
}

// summarize picks the fields worth a line in bulk output
func summarize(item filter.Item) []string {
	var lines []string
	for _, key := range []string{"proposal", "data"} {
		if v, ok := item[key]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", key, render(v)))
		}
	}
	return lines
}

func render(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

// JSONFormatter prints results as JSON documents
type JSONFormatter struct {
	opts Options
}

type jsonResponse struct {
	Endpoint string         `json:"endpoint"`
	Status   int            `json:"status"`
	Results  []filter.Item  `json:"results"`
	Request  map[string]any `json:"request,omitempty"`
	Limits   map[string]any `json:"limits,omitempty"`
}

type jsonRow struct {
	Line    int           `json:"line"`
	Input   string        `json:"input"`
	Results []filter.Item `json:"results,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type jsonBulk struct {
	Endpoint  string    `json:"endpoint"`
	Requested int       `json:"requested"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Rows      []jsonRow `json:"rows"`
}

// Response implements Formatter
func (f *JSONFormatter) Response(w io.Writer, endpoint string, resp *foxentry.Response, items []filter.Item) error {
	doc := jsonResponse{
		Endpoint: endpoint,
		Status:   resp.Status(),
		Results:  items,
	}
	if doc.Results == nil {
		doc.Results = []filter.Item{}
	}

	if f.opts.ShowDetails {
		doc.Request = resp.Request()
		doc.Limits = limits(resp)
	}

	return encode(w, doc)
}

// Bulk implements Formatter
func (f *JSONFormatter) Bulk(w io.Writer, endpoint string, rows []Row, summary bulk.Summary) error {
	doc := jsonBulk{
		Endpoint:  endpoint,
		Requested: summary.Requested,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Rows:      make([]jsonRow, 0, len(rows)),
	}

	for _, row := range rows {
		jr := jsonRow{Line: row.Line, Input: row.Input, Results: row.Items}
		if row.Err != nil {
			jr.Error = row.Err.Error()
		}
		doc.Rows = append(doc.Rows, jr)
	}

	return encode(w, doc)
}

func limits(resp *foxentry.Response) map[string]any {
	out := make(map[string]any)
	if v, err := resp.RateLimit(); err == nil {
		out["rateLimit"] = v
	}
	if v, err := resp.RateLimitPeriod(); err == nil {
		out["rateLimitPeriod"] = v
	}
	if v, err := resp.RateLimitRemaining(); err == nil {
		out["rateLimitRemaining"] = v
	}
	if v, err := resp.DailyCreditsLeft(); err == nil && v != nil {
		out["dailyCreditsLeft"] = *v
	}
	if v, err := resp.DailyCreditsLimit(); err == nil && v != nil {
		out["dailyCreditsLimit"] = *v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
