package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/campus-safety/dispatch/core/model"
)

var apiAddr string

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List fleet units from a running service",
	RunE:  runFleetLs,
}

func init() {
	fleetCmd.PersistentFlags().StringVar(&apiAddr, "addr", "http://localhost:8080", "service API address")
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(apiAddr + "/api/ambulances")
	if err != nil {
		return fmt.Errorf("query fleet: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	var units []model.Ambulance
	if err := json.NewDecoder(resp.Body).Decode(&units); err != nil {
		return fmt.Errorf("decode fleet: %w", err)
	}
	for _, u := range units {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", u.ID, u.VehicleNo, u.DriverName, u.Status)
	}
	return nil
}
