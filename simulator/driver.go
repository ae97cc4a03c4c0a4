package main

import (
	"context"
	"encoding/json"
	"log"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type order struct {
	OrderID        string `json:"order_id"`
	AmbulanceID    int64  `json:"ambulance_id"`
	RequestID      int64  `json:"request_id"`
	PatientDetails string `json:"patient_details"`
	Destination    string `json:"destination"`
}

// runDriver subscribes to the dispatch order topic and acknowledges
// incoming orders using the given strategy until the context is cancelled.
func runDriver(ctx context.Context, cli paho.Client, cfg Config, strat AckStrategy) error {
	handler := func(_ paho.Client, msg paho.Message) {
		var o order
		if err := json.Unmarshal(msg.Payload(), &o); err != nil {
			log.Printf("decode order: %v", err)
			return
		}
		if cfg.Verbose {
			log.Printf("order %s for unit %d: %s to %s", o.OrderID, o.AmbulanceID, o.PatientDetails, o.Destination)
		}
		go strat.Ack(ctx, cli, cfg.AckTopic, o.OrderID)
	}
	if token := cli.Subscribe(cfg.OrderTopic, 1, handler); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	<-ctx.Done()
	return nil
}
