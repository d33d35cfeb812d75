package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "breakneck-server"

// Metrics holds the simulation counters. A nil *Metrics records nothing.
type Metrics struct {
	crashes  metric.Int64Counter
	rows     metric.Int64Counter
	attacks  metric.Int64Counter
	sessions metric.Int64UpDownCounter
}

// NewMetrics registers counters on the global meter provider (no-op unless one is installed)
func NewMetrics() (*Metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		mt  Metrics
		err error
	)

	mt.crashes, err = m.Int64Counter(
		"breakneck.crashes",
		metric.WithDescription("Vehicle crashes by source"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating crash counter: %w", err)
	}

	mt.rows, err = m.Int64Counter(
		"breakneck.rows_recycled",
		metric.WithDescription("Track rows recycled to the back of the grid"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rows counter: %w", err)
	}

	mt.attacks, err = m.Int64Counter(
		"breakneck.attacks_fired",
		metric.WithDescription("Attack batches fired by type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attacks counter: %w", err)
	}

	mt.sessions, err = m.Int64UpDownCounter(
		"breakneck.sessions_active",
		metric.WithDescription("Running simulation sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}
	return &mt, nil
}

// Crash counts one crash
func (m *Metrics) Crash(source string) {
	if m == nil {
		return
	}
	m.crashes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("source", source)))
}

// RowRecycled counts one recycled row
func (m *Metrics) RowRecycled(difficulty int) {
	if m == nil {
		return
	}
	m.rows.Add(context.Background(), 1, metric.WithAttributes(attribute.Int("difficulty", difficulty)))
}

// AttackFired counts one attack batch
func (m *Metrics) AttackFired(t AttackType) {
	if m == nil {
		return
	}
	m.attacks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("attack", string(t))))
}

// SessionDelta adjusts the running session count
func (m *Metrics) SessionDelta(n int64) {
	if m == nil {
		return
	}
	m.sessions.Add(context.Background(), n)
}
