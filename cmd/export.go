package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/campus-safety/dispatch/core/model"
	"github.com/campus-safety/dispatch/pkg/export"
)

var (
	exportAddr   string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the request history from a running service",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportAddr, "addr", "http://localhost:8080", "service API address")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or json")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(exportAddr + "/api/requests")
	if err != nil {
		return fmt.Errorf("query requests: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	var reqs []model.EmergencyRequest
	if err := json.NewDecoder(resp.Body).Decode(&reqs); err != nil {
		return fmt.Errorf("decode requests: %w", err)
	}
	switch exportFormat {
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), reqs)
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), reqs)
	}
	return fmt.Errorf("unknown format %s", exportFormat)
}
