package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-safety/dispatch/config"
	"github.com/campus-safety/dispatch/core/activity"
	"github.com/campus-safety/dispatch/core/model"
)

func newConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Dispatch.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.API.SetDefaults()
	cfg.Logging.SetDefaults()
	return cfg
}

func TestNewServiceWiresEngine(t *testing.T) {
	svc, err := New(newConfig())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	u := svc.Users.Add(model.User{Username: "asha", Role: model.RoleStudent})
	_, err = svc.Registry.Onboard(model.Ambulance{VehicleNo: "KA-01", Status: model.StatusAvailable})
	require.NoError(t, err)

	req, err := svc.Engine.CreateAndAssign(u.ID, "fall", "clinic", model.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, model.RequestAssigned, req.Status)

	done, err := svc.Engine.CompleteRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCompleted, done.Status)

	rep := svc.Reporter.Generate()
	assert.Equal(t, 1, rep.CompletedRequests)
}

// The assembled service consumes its own bus: lifecycle events show up in
// the activity log without any extra wiring.
func TestServiceRecordsActivity(t *testing.T) {
	svc, err := New(newConfig())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	u := svc.Users.Add(model.User{Username: "asha", Role: model.RoleStudent})
	_, err = svc.Registry.Onboard(model.Ambulance{VehicleNo: "KA-01", Status: model.StatusAvailable})
	require.NoError(t, err)

	req, err := svc.Engine.CreateAndAssign(u.ID, "fall", "clinic", model.PriorityMedium)
	require.NoError(t, err)
	_, err = svc.Engine.CompleteRequest(req.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(svc.Activity.Query(activity.Query{Kind: activity.KindCompleted})) == 1
	}, time.Second, 5*time.Millisecond)
	assigned := svc.Activity.Query(activity.Query{Kind: activity.KindAssigned})
	require.Len(t, assigned, 1)
	assert.Equal(t, req.ID, assigned[0].RequestID)
}

func TestNewServiceWithPromSink(t *testing.T) {
	cfg := newConfig()
	cfg.Metrics.PrometheusEnabled = true
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	assert.NotNil(t, svc.Engine)
}
