package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campus-safety/dispatch/core/events"
	"github.com/campus-safety/dispatch/core/fleet"
	"github.com/campus-safety/dispatch/core/identity"
	"github.com/campus-safety/dispatch/core/ledger"
	"github.com/campus-safety/dispatch/core/logger"
	"github.com/campus-safety/dispatch/core/metrics"
	"github.com/campus-safety/dispatch/core/model"
	"github.com/campus-safety/dispatch/core/notify"
	"github.com/campus-safety/dispatch/internal/eventbus"
)

// Engine orchestrates assignment and completion across the fleet registry
// and the request ledger.
//
// Both operations run their read-select-mutate-save sequence under one
// exclusive lock. Coarse-grained locking is deliberate: two callers each
// taking a per-ambulance lock could still select the same unit from
// independent snapshots of the available set.
type Engine struct {
	fleet      *fleet.Registry
	ledger     *ledger.Ledger
	users      identity.Directory
	cfg        Config
	logger     logger.Logger
	sink       metrics.MetricsSink
	bus        eventbus.EventBus
	notifier   notify.Notifier
	ackTimeout time.Duration
	now        func() time.Time
	mu         sync.Mutex
}

// NewEngine creates a dispatch engine. The registry, ledger and directory
// are required; observability collaborators are attached with the Set
// methods.
func NewEngine(reg *fleet.Registry, led *ledger.Ledger, users identity.Directory, cfg Config, log logger.Logger) (*Engine, error) {
	if reg == nil || led == nil || users == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	cfg.SetDefaults()
	return &Engine{
		fleet:      reg,
		ledger:     led,
		users:      users,
		cfg:        cfg,
		logger:     log,
		notifier:   notify.NopNotifier{},
		ackTimeout: time.Duration(cfg.AckTimeoutSeconds) * time.Second,
		now:        time.Now,
	}, nil
}

// SetMetricsSink configures the sink receiving dispatch events.
func (e *Engine) SetMetricsSink(sink metrics.MetricsSink) {
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()
}

// SetEventBus configures the bus lifecycle events are published on.
func (e *Engine) SetEventBus(bus eventbus.EventBus) {
	e.mu.Lock()
	e.bus = bus
	e.mu.Unlock()
}

// SetNotifier configures the driver notifier.
func (e *Engine) SetNotifier(n notify.Notifier) {
	e.mu.Lock()
	if n == nil {
		n = notify.NopNotifier{}
	}
	e.notifier = n
	e.mu.Unlock()
}

// SetClock overrides the wall clock, used by tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	e.now = now
	e.mu.Unlock()
}

// effects collects everything an operation defers until after its critical
// section: bus events, sink records and driver orders. Nothing in here can
// fail the operation, and nothing in here touches the network while the
// lock is held.
type effects struct {
	events   []eventbus.Event
	records  []metrics.DispatchEvent
	duration *time.Duration
	backlog  int
	order    *notify.Order
}

// CreateAndAssign records a new emergency request and binds an available
// unit to it. With no unit free the request is parked PENDING and served
// later by the backlog drain.
func (e *Engine) CreateAndAssign(userID int64, patientDetails, destination string, prio model.Priority) (model.EmergencyRequest, error) {
	if _, ok := e.users.FindUser(userID); !ok {
		return model.EmergencyRequest{}, fmt.Errorf("%w: id %d", ErrUserNotFound, userID)
	}

	e.mu.Lock()
	req, fx, err := e.createAndAssignLocked(userID, patientDetails, destination, prio)
	e.mu.Unlock()
	if err != nil {
		return model.EmergencyRequest{}, err
	}
	e.commit(fx)
	return req, nil
}

func (e *Engine) createAndAssignLocked(userID int64, patientDetails, destination string, prio model.Priority) (model.EmergencyRequest, effects, error) {
	var fx effects

	avail := e.fleet.ListAvailable()
	if len(avail) == 0 {
		req, err := e.ledger.Create(model.EmergencyRequest{
			UserID:         userID,
			Status:         model.RequestPending,
			Priority:       prio,
			PatientDetails: patientDetails,
			Destination:    destination,
		})
		if err != nil {
			return model.EmergencyRequest{}, fx, fmt.Errorf("dispatch: create request: %w", err)
		}
		e.logger.Infof("request %d queued, no unit available", req.ID)
		fx.events = append(fx.events, events.RequestQueued{RequestID: req.ID, UserID: userID})
		fx.records = append(fx.records, metrics.DispatchEvent{Kind: metrics.EventQueued, RequestID: req.ID, UserID: userID, Time: e.now()})
		requestsCreated.WithLabelValues(model.RequestPending.String()).Inc()
		fx.backlog = e.ledger.CountByStatus(model.RequestPending)
		return req, fx, nil
	}

	// Selection policy: first unit in the registry's order, which is
	// ascending id. Distance is not considered.
	unit := avail[0]
	updated, err := e.fleet.SetStatusAndLocation(unit.ID, model.StatusEnRoute, unit.Latitude, unit.Longitude)
	if err != nil {
		return model.EmergencyRequest{}, fx, fmt.Errorf("dispatch: mark unit %d en route: %w", unit.ID, err)
	}

	start := e.now()
	req, err := e.ledger.Create(model.EmergencyRequest{
		UserID:         userID,
		AmbulanceID:    &updated.ID,
		Status:         model.RequestAssigned,
		Priority:       prio,
		PatientDetails: patientDetails,
		Destination:    destination,
		StartTime:      &start,
	})
	if err != nil {
		// The unit is already EN_ROUTE with no request to serve. Roll it
		// back; if even that fails the state has diverged and the caller
		// must hear about it loudly.
		if _, rbErr := e.fleet.SetStatusAndLocation(unit.ID, model.StatusAvailable, unit.Latitude, unit.Longitude); rbErr != nil {
			e.logger.Errorf("rollback of unit %d failed: %v", unit.ID, rbErr)
			return model.EmergencyRequest{}, fx, fmt.Errorf("%w: create request failed (%v), rollback failed (%v)", ErrStateDiverged, err, rbErr)
		}
		return model.EmergencyRequest{}, fx, fmt.Errorf("dispatch: create request: %w", err)
	}

	e.logger.Infof("request %d assigned to unit %s", req.ID, updated.VehicleNo)
	fx.events = append(fx.events,
		events.StatusChanged{AmbulanceID: updated.ID, From: model.StatusAvailable, To: model.StatusEnRoute},
		events.RequestAssigned{RequestID: req.ID, AmbulanceID: updated.ID},
	)
	fx.records = append(fx.records, metrics.DispatchEvent{Kind: metrics.EventAssigned, RequestID: req.ID, AmbulanceID: updated.ID, UserID: userID, Time: start})
	requestsCreated.WithLabelValues(model.RequestAssigned.String()).Inc()
	assignmentsTotal.WithLabelValues("intake").Inc()
	fx.backlog = e.ledger.CountByStatus(model.RequestPending)
	fx.order = &notify.Order{
		AmbulanceID:    updated.ID,
		VehicleNo:      updated.VehicleNo,
		RequestID:      req.ID,
		PatientDetails: patientDetails,
		Destination:    destination,
	}
	return req, fx, nil
}

// CompleteRequest marks a run as finished, returns the unit to home base and
// immediately drains the oldest PENDING request onto it. Completing an
// already COMPLETED request is a no-op.
func (e *Engine) CompleteRequest(requestID int64) (model.EmergencyRequest, error) {
	e.mu.Lock()
	req, fx, err := e.completeLocked(requestID)
	e.mu.Unlock()
	if err != nil {
		return model.EmergencyRequest{}, err
	}
	e.commit(fx)
	return req, nil
}

func (e *Engine) completeLocked(requestID int64) (model.EmergencyRequest, effects, error) {
	var fx effects

	req, ok := e.ledger.Get(requestID)
	if !ok {
		return model.EmergencyRequest{}, fx, fmt.Errorf("%w: id %d", ErrRequestNotFound, requestID)
	}
	if req.Status == model.RequestCompleted {
		return req, fx, nil
	}
	if req.AmbulanceID == nil {
		// A request that never had a unit cannot complete; the state
		// machine does not skip ASSIGNED.
		return model.EmergencyRequest{}, fx, fmt.Errorf("%w: request %d is still pending", ErrInvalidTransition, requestID)
	}

	unitID := *req.AmbulanceID
	end := e.now()
	req.Status = model.RequestCompleted
	req.EndTime = &end
	if err := e.ledger.Save(req); err != nil {
		return model.EmergencyRequest{}, fx, fmt.Errorf("dispatch: complete request %d: %w", requestID, err)
	}

	// Return to base. The request is already COMPLETED, so a failure here
	// leaves the pair divergent and must surface as fatal.
	if _, err := e.fleet.SetStatusAndLocation(unitID, model.StatusAvailable, e.cfg.BaseLatitude, e.cfg.BaseLongitude); err != nil {
		return model.EmergencyRequest{}, fx, fmt.Errorf("%w: request %d completed but unit %d not freed: %v", ErrStateDiverged, requestID, unitID, err)
	}

	e.logger.Infof("request %d completed, unit %d returned to base", req.ID, unitID)
	fx.events = append(fx.events,
		events.StatusChanged{AmbulanceID: unitID, From: model.StatusEnRoute, To: model.StatusAvailable},
		events.RequestCompleted{RequestID: req.ID, AmbulanceID: unitID, Duration: durationOf(req)},
	)
	fx.records = append(fx.records, metrics.DispatchEvent{Kind: metrics.EventCompleted, RequestID: req.ID, AmbulanceID: unitID, UserID: req.UserID, Time: end})
	if d, ok := req.Duration(); ok {
		fx.duration = &d
	}

	// Backlog drain happens inside the same critical section: the freed
	// unit must never be observable as AVAILABLE while an older PENDING
	// request exists, or a concurrent intake could steal it and break FIFO
	// fairness.
	if err := e.drainLocked(unitID, &fx); err != nil {
		return model.EmergencyRequest{}, fx, err
	}
	fx.backlog = e.ledger.CountByStatus(model.RequestPending)
	return req, fx, nil
}

// drainLocked assigns the oldest PENDING request to the just-freed unit, if
// one exists. Caller holds the engine lock.
func (e *Engine) drainLocked(unitID int64, fx *effects) error {
	pending, ok := e.ledger.FindOldestByStatus(model.RequestPending)
	if !ok {
		return nil
	}

	unit, ok := e.fleet.Get(unitID)
	if !ok {
		return fmt.Errorf("%w: freed unit %d disappeared", ErrStateDiverged, unitID)
	}

	start := e.now()
	pending.AmbulanceID = &unitID
	pending.Status = model.RequestAssigned
	pending.StartTime = &start
	if err := e.ledger.Save(pending); err != nil {
		return fmt.Errorf("%w: drain of request %d onto unit %d: %v", ErrStateDiverged, pending.ID, unitID, err)
	}
	if _, err := e.fleet.SetStatusAndLocation(unitID, model.StatusEnRoute, unit.Latitude, unit.Longitude); err != nil {
		return fmt.Errorf("%w: drain of request %d onto unit %d: %v", ErrStateDiverged, pending.ID, unitID, err)
	}

	e.logger.Infof("pending request %d auto-assigned to unit %s", pending.ID, unit.VehicleNo)
	fx.events = append(fx.events,
		events.RequestAssigned{RequestID: pending.ID, AmbulanceID: unitID, Drained: true},
		events.StatusChanged{AmbulanceID: unitID, From: model.StatusAvailable, To: model.StatusEnRoute},
	)
	fx.records = append(fx.records, metrics.DispatchEvent{Kind: metrics.EventDrained, RequestID: pending.ID, AmbulanceID: unitID, UserID: pending.UserID, Time: start})
	assignmentsTotal.WithLabelValues("drain").Inc()
	fx.order = &notify.Order{
		AmbulanceID:    unitID,
		VehicleNo:      unit.VehicleNo,
		RequestID:      pending.ID,
		PatientDetails: pending.PatientDetails,
		Destination:    pending.Destination,
	}
	return nil
}

// FindRequestsByStatus returns the requests currently in the given state.
func (e *Engine) FindRequestsByStatus(status model.RequestStatus) []model.EmergencyRequest {
	return e.ledger.FindByStatus(status)
}

// FindRequestsForAmbulance returns the requests referencing the given unit.
func (e *Engine) FindRequestsForAmbulance(ambulanceID int64) ([]model.EmergencyRequest, error) {
	if _, ok := e.fleet.Get(ambulanceID); !ok {
		return nil, fmt.Errorf("%w: id %d", ErrAmbulanceNotFound, ambulanceID)
	}
	return e.ledger.FindByAmbulance(ambulanceID), nil
}

// FindAvailableAmbulances returns the units currently AVAILABLE.
func (e *Engine) FindAvailableAmbulances() []model.Ambulance {
	return e.fleet.ListAvailable()
}

// ListAllAmbulances returns every registered unit.
func (e *Engine) ListAllAmbulances() []model.Ambulance {
	return e.fleet.List()
}

// UpdateStatusAndLocation is the fleet-management path for administrative
// status changes and driver position updates. A unit bound to an active
// request cannot be forced AVAILABLE or OUT_OF_SERVICE from here; that
// transition belongs to CompleteRequest.
func (e *Engine) UpdateStatusAndLocation(ambulanceID int64, status model.AmbulanceStatus, lat, lng float64) (model.Ambulance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.fleet.Get(ambulanceID)
	if !ok {
		return model.Ambulance{}, fmt.Errorf("%w: id %d", ErrAmbulanceNotFound, ambulanceID)
	}
	if status == model.StatusAvailable || status == model.StatusOutOfService {
		for _, r := range e.ledger.FindByAmbulance(ambulanceID) {
			if r.Status == model.RequestAssigned {
				return model.Ambulance{}, fmt.Errorf("%w: unit %d is serving request %d", ErrInvalidTransition, ambulanceID, r.ID)
			}
		}
	}

	updated, err := e.fleet.SetStatusAndLocation(ambulanceID, status, lat, lng)
	if err != nil {
		if errors.Is(err, fleet.ErrNotFound) {
			return model.Ambulance{}, fmt.Errorf("%w: id %d", ErrAmbulanceNotFound, ambulanceID)
		}
		return model.Ambulance{}, fmt.Errorf("dispatch: update unit %d: %w", ambulanceID, err)
	}
	if e.bus != nil && current.Status != status {
		e.bus.Publish(events.StatusChanged{AmbulanceID: ambulanceID, From: current.Status, To: status})
	}
	return updated, nil
}

// commit delivers the deferred observability effects of a committed
// operation. Failures are logged and dropped; the dispatch decision stands.
// The collaborators are snapshotted under the lock so the Set* setters stay
// safe against in-flight commits.
func (e *Engine) commit(fx effects) {
	e.mu.Lock()
	bus, sink, notifier, ackTimeout, now := e.bus, e.sink, e.notifier, e.ackTimeout, e.now
	e.mu.Unlock()

	if bus != nil {
		for _, ev := range fx.events {
			bus.Publish(ev)
		}
	}
	backlogSize.Set(float64(fx.backlog))
	if fx.duration != nil {
		runDuration.Observe(fx.duration.Seconds())
	}
	if sink != nil {
		for _, rec := range fx.records {
			if err := sink.RecordDispatchEvent(rec); err != nil {
				e.logger.Warnf("metrics sink: %v", err)
			}
		}
		if br, ok := sink.(metrics.BacklogRecorder); ok {
			_ = br.RecordBacklogSize(fx.backlog)
		}
		if fx.duration != nil {
			if dr, ok := sink.(metrics.RunDurationRecorder); ok {
				_ = dr.RecordRunDuration(*fx.duration)
			}
		}
	}
	if fx.order != nil {
		e.notifyDriver(notifier, sink, ackTimeout, now, *fx.order)
	}
}

// notifyDriver publishes the dispatch order and waits for the driver ack in
// the background. Best-effort only.
func (e *Engine) notifyDriver(notifier notify.Notifier, sink metrics.MetricsSink, ackTimeout time.Duration, now func() time.Time, order notify.Order) {
	orderID, err := notifier.SendOrder(order)
	if err != nil {
		notifyFailure.Inc()
		e.logger.Warnf("notify unit %d: %v", order.AmbulanceID, err)
		e.recordNotification(sink, metrics.NotificationEvent{
			AmbulanceID: order.AmbulanceID,
			RequestID:   order.RequestID,
			Error:       err.Error(),
			Time:        now(),
		})
		return
	}
	notifySuccess.Inc()
	if orderID == "" {
		return
	}
	go func() {
		start := time.Now()
		ack, err := notifier.WaitForAck(orderID, ackTimeout)
		ev := metrics.NotificationEvent{
			OrderID:      orderID,
			AmbulanceID:  order.AmbulanceID,
			RequestID:    order.RequestID,
			Acknowledged: ack,
			Latency:      time.Since(start),
			Time:         time.Now(),
		}
		if err != nil {
			ev.Error = err.Error()
			e.logger.Warnf("ack for order %s: %v", orderID, err)
		}
		e.recordNotification(sink, ev)
	}()
}

func (e *Engine) recordNotification(sink metrics.MetricsSink, ev metrics.NotificationEvent) {
	if sink == nil {
		return
	}
	if nr, ok := sink.(metrics.NotificationRecorder); ok {
		if err := nr.RecordNotification(ev); err != nil {
			e.logger.Warnf("notification record: %v", err)
		}
	}
}

func durationOf(r model.EmergencyRequest) time.Duration {
	if d, ok := r.Duration(); ok {
		return d
	}
	return 0
}
