package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/s0up4200/foxcheck/bulk"
	"github.com/s0up4200/foxcheck/foxentry"
	"github.com/s0up4200/foxcheck/output"
)

var (
	bulkFile        string
	bulkField       string
	bulkConcurrency int
	bulkFlags       requestFlags
)

// bulkCmd represents the bulk command
var bulkCmd = &cobra.Command{
	Use:   "bulk <resource> <operation>",
	Short: "Run one operation for every line of a file",
	Long: `Read one value per line and send each to the same endpoint.

Plain lines fill the endpoint's shorthand field (email for email validate,
value for email search) or the field named by --field. Lines holding a JSON
object are sent as the query. Blank lines and # comments are skipped.

Requests run concurrently (bulk.concurrency) and a failing line does not
stop the others. Results keep the input order.`,
	Example: `  foxcheck bulk email validate --file emails.txt --where 'not isValid'
  foxcheck bulk phone validate --file phones.txt --field numberWithPrefix
  cat queries.jsonl | foxcheck bulk location validate`,
	Args: cobra.ExactArgs(2),
	RunE: runBulk,
}

func init() {
	bulkCmd.Flags().StringVarP(&bulkFile, "file", "f", "-", `input file, "-" for stdin`)
	bulkCmd.Flags().StringVar(&bulkField, "field", "", "query field for plain lines")
	bulkCmd.Flags().IntVarP(&bulkConcurrency, "concurrency", "c", 0, "concurrent requests (default from config)")
	bulkFlags.register(bulkCmd.Flags(), false)
}

func runBulk(cmd *cobra.Command, args []string) error {
	defer resetFlags(cmd.LocalFlags())

	resource, operation := args[0], args[1]
	endpoint := resource + "/" + operation

	if !knownEndpoint(resource, operation) {
		return fmt.Errorf("unknown endpoint %s", endpoint)
	}

	field := bulkField
	if field == "" {
		field = bulk.DefaultFields[endpoint]
	}

	jobs, err := readBulkInput(cmd, field)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no input lines")
	}

	opts, err := bulkFlags.requestOptions(cmd.Flags())
	if err != nil {
		return err
	}

	flt, err := filters.Resolve(bulkFlags.where, bulkFlags.preset)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	out, color := stdout(cmd)
	formatter, err := bulkFlags.formatter(color)
	if err != nil {
		return err
	}

	concurrency := cfg.Bulk.Concurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency = bulkConcurrency
	}

	logger.Info().
		Str("endpoint", endpoint).
		Int("lines", len(jobs)).
		Int("concurrency", concurrency).
		Msg("Starting bulk run")

	ctx := cmd.Context()
	processor := bulk.NewProcessor(client, logger, bulk.WithConcurrency(concurrency))
	summary := processor.Run(ctx, resource, operation, jobs, opts...)

	rows := make([]output.Row, 0, len(summary.Results))
	for _, result := range summary.Results {
		row := output.Row{Line: result.Line, Input: result.Input, Err: result.Err}
		if result.Err == nil {
			items, err := filters.Apply(ctx, flt, result.Response.Result())
			if err != nil {
				return err
			}
			// rows whose items are all filtered out are hidden
			if flt != nil && len(items) == 0 {
				continue
			}
			row.Items = items
		}
		rows = append(rows, row)
	}

	if err := formatter.Bulk(out, endpoint, rows, summary); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d requests failed", summary.Failed, summary.Requested)
	}
	return nil
}

func readBulkInput(cmd *cobra.Command, field string) ([]bulk.Job, error) {
	var r io.Reader = cmd.InOrStdin()
	if bulkFile != "-" {
		f, err := os.Open(bulkFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	return bulk.ReadJobs(r, field)
}

func knownEndpoint(resource, operation string) bool {
	return slices.Contains(foxentry.Endpoints[resource], operation)
}
