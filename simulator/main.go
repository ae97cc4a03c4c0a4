// Command simulator emulates ambulance drivers on the MQTT side of the
// dispatch service. It listens for dispatch orders and acknowledges them
// with a configurable latency and drop rate, which makes it handy for
// exercising the ack timeout path without real hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

func main() {
	cfg := parseFlags()
	if err := (&cfg).Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := connectDriverClient(cfg.Broker)
	if err != nil {
		log.Fatalf("mqtt connect: %v", err)
	}
	defer cli.Disconnect(250)

	strat := RandomAck{Delay: cfg.AckLatency, DropRate: cfg.DropRate}
	if err := runDriver(ctx, cli, cfg, strat); err != nil {
		log.Fatalf("driver: %v", err)
	}
}

// connectDriverClient connects with a unique driver-sim client id so
// several simulators can share a broker without kicking each other off.
func connectDriverClient(broker string) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("driver-sim-%d", time.Now().UnixNano()))
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.AckTopic, "ack-topic", "dispatch/ack", "topic acknowledgments are published on")
	flag.StringVar(&cfg.OrderTopic, "order-topic", "dispatch/ambulance/+/order", "topic dispatch orders arrive on")
	flag.DurationVar(&cfg.AckLatency, "ack-latency", 0, "delay before acknowledging an order")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "probability an order goes unacknowledged")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "log received orders")
	flag.Parse()
	return cfg
}
