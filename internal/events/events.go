// Package events publishes visit events to Kafka for downstream
// consumers. Publishing is best-effort and never blocks a request.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	h3 "github.com/uber/h3-go/v4"

	"github.com/visitmap/visitmap/internal/model"
)

type Event struct {
	Airport string    `json:"airport"`
	Country string    `json:"country"`
	City    string    `json:"city"`
	Lat     float64   `json:"lat"`
	Lon     float64   `json:"lon"`
	Cell    string    `json:"cell,omitempty"`
	TS      time.Time `json:"ts"`
}

// FromLocation builds the event for one recorded visit, tagging it with
// the H3 cell of the coordinate at the given resolution.
func FromLocation(loc model.Location, res int) Event {
	ev := Event{
		Airport: loc.Airport,
		Country: loc.Country,
		City:    loc.City,
		Lat:     loc.Lat,
		Lon:     loc.Lon,
		TS:      time.Now().UTC(),
	}
	if cell, err := h3.LatLngToCell(h3.LatLng{Lat: loc.Lat, Lng: loc.Lon}, res); err == nil {
		ev.Cell = cell.String()
	}
	return ev
}

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	logger  *slog.Logger
	stopped chan struct{}
}

func NewPublisher(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Publisher, error) {
	if queueSize <= 0 {
		queueSize = 1024
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}

	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		logger:  logger,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.logger.Error("events: marshal failed", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.logger.Warn("events: producer error", "err", err)
			}
		}
	}()

	return p, nil
}

// Publish enqueues an event. A full queue drops the event rather than
// blocking the request path.
func (p *Publisher) Publish(ev Event) {
	select {
	case p.events <- ev:
	default:
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	return nil
}
