package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/s0up4200/foxcheck/bulk"
	"github.com/s0up4200/foxcheck/foxentry"
	"github.com/s0up4200/foxcheck/output"
)

// requestFlags are the per-call settings shared by endpoint and bulk commands
type requestFlags struct {
	query         []string
	queryJSON     string
	options       []string
	optionsJSON   string
	customID      string
	clientIP      string
	clientCountry string
	clientLat     float64
	clientLon     float64
	details       bool
	where         string
	preset        string
	output        string
}

func (rf *requestFlags) register(fs *pflag.FlagSet, withQuery bool) {
	if withQuery {
		fs.StringArrayVarP(&rf.query, "query", "q", nil, "query field as key=value (repeatable)")
		fs.StringVar(&rf.queryJSON, "query-json", "", "query as a JSON object")
	}
	fs.StringArrayVarP(&rf.options, "option", "o", nil, "request option as key=value (repeatable)")
	fs.StringVar(&rf.optionsJSON, "options-json", "", "request options as a JSON object")
	fs.StringVar(&rf.customID, "custom-id", "", `correlation ID echoed back by the API ("auto" generates a UUID)`)
	fs.StringVar(&rf.clientIP, "client-ip", "", "end user's IP address")
	fs.StringVar(&rf.clientCountry, "client-country", "", "end user's country (ISO-3166-1 alpha-2)")
	fs.Float64Var(&rf.clientLat, "client-lat", 0, "end user's latitude")
	fs.Float64Var(&rf.clientLon, "client-lon", 0, "end user's longitude")
	fs.BoolVar(&rf.details, "details", false, "ask the API to echo the request and show rate limits")
	fs.StringVarP(&rf.where, "where", "w", "", "filter expression applied to result items")
	fs.StringVarP(&rf.preset, "preset", "p", "", "use a preset filter from config")
	fs.StringVar(&rf.output, "output", "", "output format: console or json (default from config)")
}

// requestOptions turns the flags into per-call options. Client info flags
// are validated here so bad input fails before any request is sent.
func (rf *requestFlags) requestOptions(fs *pflag.FlagSet) ([]foxentry.RequestOption, error) {
	var opts []foxentry.RequestOption

	options, err := mergeFields(rf.optionsJSON, rf.options)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if len(options) > 0 {
		opts = append(opts, foxentry.WithOptions(foxentry.Options(options)))
	}

	switch rf.customID {
	case "":
	case "auto":
		opts = append(opts, foxentry.WithCustomID(uuid.NewString()))
	default:
		opts = append(opts, foxentry.WithCustomID(rf.customID))
	}

	if fs.Changed("client-lat") != fs.Changed("client-lon") {
		return nil, errors.New("--client-lat and --client-lon must be used together")
	}
	if fs.Changed("client-lat") {
		opts = append(opts, foxentry.WithClientLocation(rf.clientLat, rf.clientLon))
	}
	if fs.Changed("client-ip") {
		opts = append(opts, foxentry.WithClientIP(rf.clientIP))
	}
	if fs.Changed("client-country") {
		opts = append(opts, foxentry.WithClientCountry(rf.clientCountry))
	}
	if fs.Changed("details") {
		opts = append(opts, foxentry.WithRequestDetails(rf.details))
	}

	// Surface validation errors now rather than per request
	probe := client.NewRequest()
	for _, opt := range opts {
		opt(probe)
	}
	if err := probe.Err(); err != nil {
		return nil, err
	}

	return opts, nil
}

// buildQuery merges --query-json, --query pairs and an optional positional
// value. A positional value fills the endpoint's shorthand field.
func (rf *requestFlags) buildQuery(endpoint string, args []string) (foxentry.Query, error) {
	query, err := mergeFields(rf.queryJSON, rf.query)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	if len(args) > 0 {
		field, ok := bulk.DefaultFields[endpoint]
		if !ok {
			return nil, fmt.Errorf("%s takes no positional value; use --query key=value or --query-json", endpoint)
		}
		if query == nil {
			query = make(map[string]any)
		}
		query[field] = args[0]
	}

	if len(query) == 0 {
		return nil, fmt.Errorf("no query given; use --query key=value or --query-json")
	}

	return foxentry.Query(query), nil
}

func (rf *requestFlags) formatter(color bool) (output.Formatter, error) {
	format := cfg.Output.Format
	if rf.output != "" {
		format = rf.output
	}
	return output.New(format, output.Options{
		ShowDetails: cfg.Output.ShowDetails || rf.details,
		Color:       color,
	})
}

// mergeFields decodes a JSON object and overlays key=value pairs on it
func mergeFields(raw string, pairs []string) (map[string]any, error) {
	var fields map[string]any

	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("expected a JSON object: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not key=value", pair)
		}
		if fields == nil {
			fields = make(map[string]any)
		}
		setPath(fields, key, parseValue(value))
	}

	return fields, nil
}

// parseValue keeps JSON literals typed ("true", "3", "[1,2]") and treats
// anything else as a string
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		if _, isString := v.(string); !isString {
			return v
		}
	}
	return s
}

// setPath assigns value at a dotted key, creating nested objects
func setPath(fields map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	current := fields
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func resourceNames() []string {
	return slices.Sorted(maps.Keys(foxentry.Endpoints))
}

var resourceDescriptions = map[string]string{
	"company":  "Validate, search and look up companies",
	"email":    "Validate and search email addresses",
	"location": "Validate, search, look up and localize addresses",
	"name":     "Validate personal names",
	"phone":    "Validate phone numbers",
}

// newResourceCmd builds "<resource>" with one subcommand per operation
func newResourceCmd(resource string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   resource,
		Short: resourceDescriptions[resource],
	}

	for _, operation := range foxentry.Endpoints[resource] {
		endpoint := resource + "/" + operation
		use := operation
		if _, ok := bulk.DefaultFields[endpoint]; ok {
			use += " [value]"
		}

		rf := &requestFlags{}
		opCmd := &cobra.Command{
			Use:   use,
			Short: fmt.Sprintf("Call %s", endpoint),
			Args:  cobra.MaximumNArgs(1),
			RunE:  runEndpoint(resource, operation, rf),
		}
		rf.register(opCmd.Flags(), true)
		cmd.AddCommand(opCmd)
	}

	return cmd
}

func runEndpoint(resource, operation string, rf *requestFlags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer resetFlags(cmd.LocalFlags())

		endpoint := resource + "/" + operation

		query, err := rf.buildQuery(endpoint, args)
		if err != nil {
			return err
		}

		opts, err := rf.requestOptions(cmd.Flags())
		if err != nil {
			return err
		}

		flt, err := filters.Resolve(rf.where, rf.preset)
		if err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}

		out, color := stdout(cmd)
		formatter, err := rf.formatter(color)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		logger.Debug().Str("endpoint", endpoint).Interface("query", query).Msg("Sending request")

		resp, err := client.Call(ctx, resource, operation, query, opts...)
		if err != nil {
			return describeError(endpoint, err)
		}

		items, err := filters.Apply(ctx, flt, resp.Result())
		if err != nil {
			return err
		}

		return formatter.Response(out, endpoint, resp, items)
	}
}

// resetFlags restores flags to their defaults so values from one run do not
// carry over to the next run in the same process
func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

// describeError adds rate-limit hints to API errors
func describeError(endpoint string, err error) error {
	fxErr, ok := foxentry.AsError(err)
	if !ok || fxErr.Response == nil || !fxErr.IsRateLimited() {
		return fmt.Errorf("%s failed: %w", endpoint, err)
	}

	resp, decodeErr := fxErr.Response.Decode()
	if decodeErr != nil {
		return fmt.Errorf("%s failed: %w", endpoint, err)
	}

	if period, perr := resp.RateLimitPeriod(); perr == nil {
		return fmt.Errorf("%s failed: %w (limit resets within %ds)", endpoint, err, period)
	}
	return fmt.Errorf("%s failed: %w", endpoint, err)
}
