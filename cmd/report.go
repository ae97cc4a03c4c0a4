package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/campus-safety/dispatch/core/report"
)

var reportAddr string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the operations report from a running service",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportAddr, "addr", "http://localhost:8080", "service API address")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(reportAddr + "/api/reports")
	if err != nil {
		return fmt.Errorf("query report: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	var rep report.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total requests:     %d\n", rep.TotalRequests)
	fmt.Fprintf(out, "Completed requests: %d\n", rep.CompletedRequests)
	fmt.Fprintf(out, "Assigned requests:  %d\n", rep.AssignedRequests)
	fmt.Fprintf(out, "Pending requests:   %d\n", rep.PendingRequests)
	fmt.Fprintf(out, "Average duration:   %s\n", rep.AverageDuration)
	fmt.Fprintf(out, "Busiest ambulance:  %s\n", rep.BusiestAmbulance)
	return nil
}
