package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the connection to Foxentry",
	Long: `Validate the configured test email (test.email) to check the API key and
connectivity, then show the rate limit and daily credits of the project.`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Testing connection to Foxentry at %s...\n", client.BaseURL())

	resp, err := client.Email().ValidateAddress(cmd.Context(), cfg.Test.Email)
	if err != nil {
		return describeError("email/validate", err)
	}

	fmt.Fprintln(out, "✓ Connection successful!")

	fmt.Fprintf(out, "\nFoxentry:\n")
	if version, err := resp.APIVersion(); err == nil {
		fmt.Fprintf(out, "- API version: %g\n", version)
	} else {
		fmt.Fprintf(out, "- API version: %s (requested)\n", client.APIVersion())
	}

	if limit, err := resp.RateLimit(); err == nil {
		line := fmt.Sprintf("- Rate limit: %d", limit)
		if period, err := resp.RateLimitPeriod(); err == nil {
			line += fmt.Sprintf(" per %ds", period)
		}
		if remaining, err := resp.RateLimitRemaining(); err == nil {
			line += fmt.Sprintf(" (%d remaining)", remaining)
		}
		fmt.Fprintln(out, line)
	}

	left, err := resp.DailyCreditsLeft()
	if err != nil {
		return err
	}
	limit, err := resp.DailyCreditsLimit()
	if err != nil {
		return err
	}
	switch {
	case left != nil && limit != nil:
		fmt.Fprintf(out, "- Daily credits: %g of %d left\n", *left, *limit)
	case left != nil:
		fmt.Fprintf(out, "- Daily credits: %g left\n", *left)
	default:
		fmt.Fprintln(out, "- Daily credits: unlimited")
	}

	var result struct {
		IsValid  bool   `json:"isValid"`
		Proposal string `json:"proposal"`
	}
	if err := resp.DecodeResult(&result); err == nil {
		fmt.Fprintf(out, "\nTest email %s: %s\n", cfg.Test.Email, boolToStatus(result.IsValid, "valid", "invalid"))
	}

	return nil
}

func boolToStatus(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
