// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"time"

	"github.com/google/uuid"
)

// Service wires the four components over one Store.
type Service struct {
	Resolver  *Resolver
	Ledger    *Ledger
	Lifecycle *Lifecycle
	Counter   *Counter
}

func NewService(store Store, opts ...Option) *Service {
	var source TallySource
	if ts, ok := store.(TallySource); ok {
		source = ts
	}

	counter := NewCounter(source, store, store)
	resolver := NewResolver(store, store)
	return &Service{
		Resolver:  resolver,
		Ledger:    NewLedger(store, store, resolver, opts...),
		Lifecycle: NewLifecycle(store, store, counter, opts...),
		Counter:   counter,
	}
}

type Option func(*options)

type options struct {
	newID func() string
	now   func() time.Time
}

// WithClock overrides the time source used for cast and decision times and
// for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides how proposal and ballot IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
