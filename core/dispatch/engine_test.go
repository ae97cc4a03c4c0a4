package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-safety/dispatch/core/events"
	"github.com/campus-safety/dispatch/core/fleet"
	"github.com/campus-safety/dispatch/core/identity"
	"github.com/campus-safety/dispatch/core/ledger"
	"github.com/campus-safety/dispatch/core/metrics"
	"github.com/campus-safety/dispatch/core/model"
	"github.com/campus-safety/dispatch/core/notify"
	"github.com/campus-safety/dispatch/internal/eventbus"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type mockNotifier struct {
	mu     sync.Mutex
	orders []notify.Order
}

func (m *mockNotifier) SendOrder(o notify.Order) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return fmt.Sprintf("order-%d", len(m.orders)), nil
}

func (m *mockNotifier) WaitForAck(string, time.Duration) (bool, error) { return true, nil }

func (m *mockNotifier) Orders() []notify.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Order(nil), m.orders...)
}

type testEnv struct {
	engine   *Engine
	registry *fleet.Registry
	ledger   *ledger.Ledger
	users    *identity.MemoryDirectory
	clock    *fakeClock
	notifier *mockNotifier
	user     model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStores(t, fleet.NewMemoryStore(), ledger.NewMemoryStore())
}

func newTestEnvWithStores(t *testing.T, fs fleet.Store, ls ledger.Store) *testEnv {
	t.Helper()
	reg := fleet.NewRegistry(fs)
	led := ledger.NewLedger(ls)
	users := identity.NewMemoryDirectory()
	eng, err := NewEngine(reg, led, users, Config{}, nopLogger{})
	require.NoError(t, err)

	clk := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	eng.SetClock(clk.Now)
	n := &mockNotifier{}
	eng.SetNotifier(n)

	u := users.Add(model.User{FirstName: "Asha", Username: "asha", Role: model.RoleStudent})
	return &testEnv{engine: eng, registry: reg, ledger: led, users: users, clock: clk, notifier: n, user: u}
}

func (env *testEnv) addUnit(t *testing.T, vehicleNo string, status model.AmbulanceStatus) model.Ambulance {
	t.Helper()
	a, err := env.registry.Onboard(model.Ambulance{
		VehicleNo:  vehicleNo,
		DriverName: "driver " + vehicleNo,
		ContactNo:  "100",
		Status:     status,
		Latitude:   12.98,
		Longitude:  77.60,
	})
	require.NoError(t, err)
	return a
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	_, err := NewEngine(nil, nil, nil, Config{}, nopLogger{})
	assert.Error(t, err)
}

// Scenario: a single available unit answers a new request.
func TestCreateAndAssign_BindsAvailableUnit(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.addUnit(t, "KA-01", model.StatusAvailable)

	req, err := env.engine.CreateAndAssign(env.user.ID, "chest pain", "City Hospital", model.PriorityHigh)
	require.NoError(t, err)

	assert.Equal(t, model.RequestAssigned, req.Status)
	require.NotNil(t, req.AmbulanceID)
	assert.Equal(t, u1.ID, *req.AmbulanceID)
	require.NotNil(t, req.StartTime)
	assert.Equal(t, env.clock.Now(), *req.StartTime)
	assert.Nil(t, req.EndTime)

	unit, ok := env.registry.Get(u1.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusEnRoute, unit.Status)
	assert.Equal(t, u1.Latitude, unit.Latitude, "dispatch must not move the unit")
	assert.Equal(t, u1.Longitude, unit.Longitude)

	orders := env.notifier.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, u1.ID, orders[0].AmbulanceID)
	assert.Equal(t, req.ID, orders[0].RequestID)
	assert.Equal(t, "City Hospital", orders[0].Destination)
}

// Scenario: with no unit free the request is parked PENDING.
func TestCreateAndAssign_QueuesWhenFleetBusy(t *testing.T) {
	env := newTestEnv(t)

	req, err := env.engine.CreateAndAssign(env.user.ID, "sprained ankle", "Clinic", model.PriorityMedium)
	require.NoError(t, err)

	assert.Equal(t, model.RequestPending, req.Status)
	assert.Nil(t, req.AmbulanceID)
	assert.Nil(t, req.StartTime)
	assert.Empty(t, env.notifier.Orders(), "no driver to notify")
}

func TestCreateAndAssign_UnknownUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.CreateAndAssign(999, "x", "y", model.PriorityMedium)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestCreateAndAssign_SelectionIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	env.addUnit(t, "KA-01", model.StatusOutOfService)
	u2 := env.addUnit(t, "KA-02", model.StatusAvailable)
	env.addUnit(t, "KA-03", model.StatusAvailable)

	req, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.NoError(t, err)
	require.NotNil(t, req.AmbulanceID)
	assert.Equal(t, u2.ID, *req.AmbulanceID, "lowest available id wins, OUT_OF_SERVICE never selected")
}

func TestCompleteRequest_ReturnsUnitToBase(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.addUnit(t, "KA-01", model.StatusAvailable)
	req, err := env.engine.CreateAndAssign(env.user.ID, "x", "City Hospital", model.PriorityMedium)
	require.NoError(t, err)

	env.clock.Advance(10 * time.Minute)
	done, err := env.engine.CompleteRequest(req.ID)
	require.NoError(t, err)

	assert.Equal(t, model.RequestCompleted, done.Status)
	require.NotNil(t, done.EndTime)
	d, ok := done.Duration()
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, d)

	unit, ok := env.registry.Get(u1.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusAvailable, unit.Status)
	assert.Equal(t, 12.9716, unit.Latitude, "unit returns to home base")
	assert.Equal(t, 77.5946, unit.Longitude)
}

// Scenario: a completing unit immediately picks up the oldest queued request.
func TestCompleteRequest_DrainsBacklogFIFO(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.addUnit(t, "KA-01", model.StatusAvailable)

	r1, err := env.engine.CreateAndAssign(env.user.ID, "first", "A", model.PriorityMedium)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	r2, err := env.engine.CreateAndAssign(env.user.ID, "second", "B", model.PriorityHigh)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	r3, err := env.engine.CreateAndAssign(env.user.ID, "third", "C", model.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, r2.Status)
	assert.Equal(t, model.RequestPending, r3.Status)

	_, err = env.engine.CompleteRequest(r1.ID)
	require.NoError(t, err)

	// r2 was queued before r3, so it wins the freed unit even though r3
	// carries no higher priority: FIFO, not priority, orders the backlog.
	got, ok := env.ledger.Get(r2.ID)
	require.True(t, ok)
	assert.Equal(t, model.RequestAssigned, got.Status)
	require.NotNil(t, got.AmbulanceID)
	assert.Equal(t, u1.ID, *got.AmbulanceID)
	require.NotNil(t, got.StartTime)

	unit, ok := env.registry.Get(u1.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusEnRoute, unit.Status, "freed unit goes straight back out")

	still, ok := env.ledger.Get(r3.ID)
	require.True(t, ok)
	assert.Equal(t, model.RequestPending, still.Status)

	// Next completion serves r3.
	_, err = env.engine.CompleteRequest(r2.ID)
	require.NoError(t, err)
	got, ok = env.ledger.Get(r3.ID)
	require.True(t, ok)
	assert.Equal(t, model.RequestAssigned, got.Status)
}

func TestCompleteRequest_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addUnit(t, "KA-01", model.StatusAvailable)
	req, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	first, err := env.engine.CompleteRequest(req.ID)
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	second, err := env.engine.CompleteRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-completion must not move the end time")
}

func TestCompleteRequest_UnknownID(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.CompleteRequest(404)
	assert.True(t, errors.Is(err, ErrRequestNotFound))
}

func TestCompleteRequest_PendingRequestIsInvalid(t *testing.T) {
	env := newTestEnv(t)
	req, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.NoError(t, err)
	require.Equal(t, model.RequestPending, req.Status)

	_, err = env.engine.CompleteRequest(req.ID)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestUpdateStatusAndLocation_GuardsActiveUnit(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.addUnit(t, "KA-01", model.StatusAvailable)
	_, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.NoError(t, err)

	// Driver progress updates are fine.
	unit, err := env.engine.UpdateStatusAndLocation(u1.ID, model.StatusOnScene, 12.99, 77.61)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOnScene, unit.Status)

	// Forcing the unit idle while it serves a request is not.
	_, err = env.engine.UpdateStatusAndLocation(u1.ID, model.StatusAvailable, 0, 0)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	_, err = env.engine.UpdateStatusAndLocation(u1.ID, model.StatusOutOfService, 0, 0)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestUpdateStatusAndLocation_UnknownUnit(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateStatusAndLocation(7, model.StatusAvailable, 0, 0)
	assert.True(t, errors.Is(err, ErrAmbulanceNotFound))
}

func TestFindRequestsForAmbulance(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.addUnit(t, "KA-01", model.StatusAvailable)
	req, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.NoError(t, err)

	res, err := env.engine.FindRequestsForAmbulance(u1.ID)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, req.ID, res[0].ID)

	_, err = env.engine.FindRequestsForAmbulance(99)
	assert.True(t, errors.Is(err, ErrAmbulanceNotFound))
}

func TestDispatchEventsOnBus(t *testing.T) {
	env := newTestEnv(t)
	bus := eventbus.New()
	env.engine.SetEventBus(bus)
	sub := bus.Subscribe()

	env.addUnit(t, "KA-01", model.StatusAvailable)
	r1, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.NoError(t, err)
	r2, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.NoError(t, err)
	_, err = env.engine.CompleteRequest(r1.ID)
	require.NoError(t, err)

	var drained []events.RequestAssigned
	var queued []events.RequestQueued
	for {
		select {
		case ev := <-sub:
			switch e := ev.(type) {
			case events.RequestAssigned:
				if e.Drained {
					drained = append(drained, e)
				}
			case events.RequestQueued:
				queued = append(queued, e)
			}
			continue
		default:
		}
		break
	}

	require.Len(t, queued, 1)
	assert.Equal(t, r2.ID, queued[0].RequestID)
	require.Len(t, drained, 1)
	assert.Equal(t, r2.ID, drained[0].RequestID)
}

type flakyLedgerStore struct {
	*ledger.MemoryStore
	createErr  error
	saveErrOn  map[int]error
	saveCalls  int
	createOnce bool
}

func (s *flakyLedgerStore) Create(r model.EmergencyRequest) (model.EmergencyRequest, error) {
	if s.createErr != nil {
		err := s.createErr
		if s.createOnce {
			s.createErr = nil
		}
		return model.EmergencyRequest{}, err
	}
	return s.MemoryStore.Create(r)
}

func (s *flakyLedgerStore) Save(r model.EmergencyRequest) error {
	s.saveCalls++
	if err := s.saveErrOn[s.saveCalls]; err != nil {
		return err
	}
	return s.MemoryStore.Save(r)
}

type flakyFleetStore struct {
	*fleet.MemoryStore
	saveErrOn map[int]error
	saveCalls int
}

func (s *flakyFleetStore) Save(a model.Ambulance) error {
	s.saveCalls++
	if err := s.saveErrOn[s.saveCalls]; err != nil {
		return err
	}
	return s.MemoryStore.Save(a)
}

func TestCreateAndAssign_RollsBackUnitOnLedgerFailure(t *testing.T) {
	ls := &flakyLedgerStore{MemoryStore: ledger.NewMemoryStore(), createErr: errors.New("ledger down"), createOnce: true}
	env := newTestEnvWithStores(t, fleet.NewMemoryStore(), ls)
	u1 := env.addUnit(t, "KA-01", model.StatusAvailable)

	_, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStateDiverged), "clean rollback is not a divergence")

	unit, ok := env.registry.Get(u1.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusAvailable, unit.Status, "unit must be rolled back")

	// The fleet healed; the next call succeeds.
	req, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, model.RequestAssigned, req.Status)
}

func TestCreateAndAssign_SurfacesDivergenceWhenRollbackFails(t *testing.T) {
	ls := &flakyLedgerStore{MemoryStore: ledger.NewMemoryStore(), createErr: errors.New("ledger down")}
	// Save call 1 marks the unit EN_ROUTE, call 2 is the rollback.
	fs := &flakyFleetStore{MemoryStore: fleet.NewMemoryStore(), saveErrOn: map[int]error{2: errors.New("fleet down")}}
	env := newTestEnvWithStores(t, fs, ls)
	env.addUnit(t, "KA-01", model.StatusAvailable)

	_, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	assert.True(t, errors.Is(err, ErrStateDiverged))
}

func TestCompleteRequest_SurfacesDivergenceWhenFreeFails(t *testing.T) {
	// Save call 1 dispatches the unit, call 2 frees it on completion.
	fs := &flakyFleetStore{MemoryStore: fleet.NewMemoryStore(), saveErrOn: map[int]error{2: errors.New("fleet down")}}
	env := newTestEnvWithStores(t, fs, ledger.NewMemoryStore())
	env.addUnit(t, "KA-01", model.StatusAvailable)

	req, err := env.engine.CreateAndAssign(env.user.ID, "x", "y", model.PriorityMedium)
	require.NoError(t, err)

	_, err = env.engine.CompleteRequest(req.ID)
	assert.True(t, errors.Is(err, ErrStateDiverged))
}

// Property: no interleaving of intake and completion double-books a unit,
// and the PENDING invariants hold at every observation point.
func TestConcurrentDispatchInvariants(t *testing.T) {
	env := newTestEnv(t)
	env.engine.SetClock(time.Now)
	for i := 0; i < 3; i++ {
		env.addUnit(t, fmt.Sprintf("KA-%02d", i+1), model.StatusAvailable)
	}

	const callers = 8
	const perCaller = 25
	var wg sync.WaitGroup
	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perCaller; i++ {
				req, err := env.engine.CreateAndAssign(env.user.ID, "hammer", "H", model.PriorityMedium)
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				if req.Status == model.RequestAssigned {
					if _, err := env.engine.CompleteRequest(req.ID); err != nil {
						t.Errorf("complete: %v", err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	// Drain whatever backlog is left.
	for {
		pending := env.engine.FindRequestsByStatus(model.RequestPending)
		assigned := env.engine.FindRequestsByStatus(model.RequestAssigned)
		if len(pending) == 0 && len(assigned) == 0 {
			break
		}
		require.NotEmpty(t, assigned, "pending requests with an idle fleet")
		_, err := env.engine.CompleteRequest(assigned[0].ID)
		require.NoError(t, err)
	}

	active := map[int64]int64{}
	for _, r := range env.engine.FindRequestsByStatus(model.RequestAssigned) {
		require.NotNil(t, r.AmbulanceID)
		if prev, ok := active[*r.AmbulanceID]; ok {
			t.Fatalf("unit %d double-booked by requests %d and %d", *r.AmbulanceID, prev, r.ID)
		}
		active[*r.AmbulanceID] = r.ID
	}

	total := 0
	for _, st := range []model.RequestStatus{model.RequestPending, model.RequestAssigned, model.RequestCompleted} {
		for _, r := range env.engine.FindRequestsByStatus(st) {
			total++
			if r.Status == model.RequestPending {
				assert.Nil(t, r.AmbulanceID)
				assert.Nil(t, r.StartTime)
			} else {
				assert.NotNil(t, r.AmbulanceID)
				assert.NotNil(t, r.StartTime)
			}
			if r.Status == model.RequestCompleted {
				assert.NotNil(t, r.EndTime)
			}
		}
	}
	assert.Equal(t, callers*perCaller, total)
}

// Swapping collaborators while operations are in flight must stay safe: the
// commit path snapshots them under the engine lock instead of reading the
// fields bare.
func TestConcurrentCollaboratorSwap(t *testing.T) {
	env := newTestEnv(t)
	env.engine.SetClock(time.Now)
	env.addUnit(t, "KA-01", model.StatusAvailable)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			env.engine.SetMetricsSink(metrics.NopSink{})
			env.engine.SetNotifier(&mockNotifier{})
			env.engine.SetEventBus(eventbus.New())
		}
	}()

	for i := 0; i < 50; i++ {
		req, err := env.engine.CreateAndAssign(env.user.ID, "hammer", "H", model.PriorityMedium)
		require.NoError(t, err)
		if req.Status == model.RequestAssigned {
			_, err = env.engine.CompleteRequest(req.ID)
			require.NoError(t, err)
		}
	}
	close(done)
	wg.Wait()
}
