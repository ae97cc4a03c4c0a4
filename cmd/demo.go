package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campus-safety/dispatch/core/dispatch"
	"github.com/campus-safety/dispatch/core/fleet"
	"github.com/campus-safety/dispatch/core/identity"
	"github.com/campus-safety/dispatch/core/ledger"
	"github.com/campus-safety/dispatch/core/model"
	"github.com/campus-safety/dispatch/core/report"
	"github.com/campus-safety/dispatch/infra/logger"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a canned dispatch cycle in-process and print the report",
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// runDemo onboards a small fleet, pushes a few requests through the full
// lifecycle and prints the resulting report. Useful as a smoke check
// without a config file or broker.
func runDemo(cmd *cobra.Command, args []string) error {
	reg := fleet.NewRegistry(fleet.NewMemoryStore())
	led := ledger.NewLedger(ledger.NewMemoryStore())
	users := identity.NewMemoryDirectory()

	eng, err := dispatch.NewEngine(reg, led, users, dispatch.Config{}, logger.New("demo"))
	if err != nil {
		return err
	}

	caller := users.Add(model.User{FirstName: "Asha", Username: "asha", Role: model.RoleStudent})
	for _, plate := range []string{"KA-01", "KA-02"} {
		if _, err := reg.Onboard(model.Ambulance{VehicleNo: plate, DriverName: "driver " + plate, Status: model.StatusAvailable}); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	first, err := eng.CreateAndAssign(caller.ID, "chest pain", "City Hospital", model.PriorityHigh)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "request %d -> unit %d\n", first.ID, *first.AmbulanceID)

	second, err := eng.CreateAndAssign(caller.ID, "sprained ankle", "campus clinic", model.PriorityLow)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "request %d -> unit %d\n", second.ID, *second.AmbulanceID)

	third, err := eng.CreateAndAssign(caller.ID, "fainting", "campus clinic", model.PriorityMedium)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "request %d queued (%s)\n", third.ID, third.Status)

	if _, err := eng.CompleteRequest(first.ID); err != nil {
		return err
	}
	drained, _ := led.Get(third.ID)
	fmt.Fprintf(out, "request %d completed, request %d drained -> unit %d\n", first.ID, third.ID, *drained.AmbulanceID)

	if _, err := eng.CompleteRequest(second.ID); err != nil {
		return err
	}
	if _, err := eng.CompleteRequest(third.ID); err != nil {
		return err
	}

	rep := report.NewGenerator(led, reg).Generate()
	fmt.Fprintf(out, "completed %d of %d, average %s, busiest %s\n",
		rep.CompletedRequests, rep.TotalRequests, rep.AverageDuration, rep.BusiestAmbulance)
	return nil
}
