package bulk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/s0up4200/foxcheck/foxentry"
)

// Job is one input line turned into a query
type Job struct {
	Line  int
	Input string
	Query foxentry.Query
}

// DefaultFields maps endpoints with a single-value shorthand to the query
// field a plain line fills.
var DefaultFields = map[string]string{
	foxentry.EndpointEmailValidate: "email",
	foxentry.EndpointEmailSearch:   "value",
}

// ReadJobs reads one job per line. A line holding a JSON object is used as
// the query verbatim; any other line becomes {field: line}. Blank lines and
// lines starting with # are skipped.
func ReadJobs(r io.Reader, field string) ([]Job, error) {
	var jobs []Job

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		job := Job{Line: line, Input: text}

		if strings.HasPrefix(text, "{") {
			var query foxentry.Query
			if err := json.Unmarshal([]byte(text), &query); err != nil {
				return nil, fmt.Errorf("line %d: invalid JSON query: %w", line, err)
			}
			job.Query = query
		} else {
			if field == "" {
				return nil, fmt.Errorf("line %d: plain value needs a query field (use --field or JSON lines)", line)
			}
			job.Query = foxentry.Query{field: text}
		}

		jobs = append(jobs, job)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	return jobs, nil
}
