package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-safety/dispatch/core/events"
	"github.com/campus-safety/dispatch/internal/eventbus"
)

// StartRecorder subscribes to the event bus and appends an entry for each
// dispatch lifecycle event. It stops when the context is canceled.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, log *Log) {
	if bus == nil || log == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := toEntry(ev); ok {
					log.Append(e)
				}
			}
		}
	}()
}

func toEntry(ev eventbus.Event) (Entry, bool) {
	now := time.Now()
	switch e := ev.(type) {
	case events.RequestQueued:
		return Entry{Time: now, Kind: KindQueued, RequestID: e.RequestID, Detail: fmt.Sprintf("user %d, no unit available", e.UserID)}, true
	case events.RequestAssigned:
		kind := KindAssigned
		if e.Drained {
			kind = KindDrained
		}
		return Entry{Time: now, Kind: kind, RequestID: e.RequestID, AmbulanceID: e.AmbulanceID}, true
	case events.RequestCompleted:
		return Entry{Time: now, Kind: KindCompleted, RequestID: e.RequestID, AmbulanceID: e.AmbulanceID, Detail: fmt.Sprintf("duration %s", e.Duration)}, true
	case events.StatusChanged:
		return Entry{Time: now, Kind: KindStatusChanged, AmbulanceID: e.AmbulanceID, Detail: fmt.Sprintf("%s -> %s", e.From, e.To)}, true
	}
	return Entry{}, false
}
