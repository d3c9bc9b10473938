package model

import (
	"github.com/iotaledger/hive.go/runtime/options"
)

// Default parameter values, matching the reference deployment of the
// currency.
const (
	DefaultDemurrageWindow  int64 = 24
	DefaultEpochOffset      int64 = 0
	DefaultMaxClaimDuration int64 = 336 // 14 demurrage days
	DefaultInitialBalance   int64 = 50  // coins
	DefaultInvitationCost   int64 = 10  // coins
	DefaultTrustCapacity    int64 = 100 // coins
	DefaultTrustDuration    Tick  = 1_000_000_000
	DefaultMaxRouteHops     int   = 5
)

// Parameters bundles the tunables of the currency engine.
type Parameters struct {
	// DemurrageWindow is the number of ticks in one demurrage day.
	DemurrageWindow int64
	// EpochOffset is the tick at which day zero starts.
	EpochOffset int64
	// MaxClaimDuration caps how far back a single mint can reach, in ticks.
	MaxClaimDuration int64
	// InitialBalance seeds every new account, in whole coins.
	InitialBalance int64
	// InvitationCost is deducted from the inviter's balance, in whole coins.
	InvitationCost int64
	// TrustCapacity is the trust limit created by an invitation, in whole coins.
	TrustCapacity int64
	// TrustDuration is the lifetime of the trust edge created by an invitation.
	TrustDuration Tick
	// MaxRouteHops bounds the length of multi hop transfer routes.
	MaxRouteHops int
}

// NewParameters creates Parameters with the default values, modified by the
// given options.
func NewParameters(opts ...options.Option[Parameters]) *Parameters {
	return options.Apply(&Parameters{
		DemurrageWindow:  DefaultDemurrageWindow,
		EpochOffset:      DefaultEpochOffset,
		MaxClaimDuration: DefaultMaxClaimDuration,
		InitialBalance:   DefaultInitialBalance,
		InvitationCost:   DefaultInvitationCost,
		TrustCapacity:    DefaultTrustCapacity,
		TrustDuration:    DefaultTrustDuration,
		MaxRouteHops:     DefaultMaxRouteHops,
	}, opts)
}

// WithDemurrageWindow overrides the number of ticks per demurrage day.
func WithDemurrageWindow(window int64) options.Option[Parameters] {
	return func(p *Parameters) {
		p.DemurrageWindow = window
	}
}

// WithEpochOffset moves the start of day zero to the given tick.
func WithEpochOffset(offset int64) options.Option[Parameters] {
	return func(p *Parameters) {
		p.EpochOffset = offset
	}
}

// WithMaxClaimDuration overrides the claim window of a mint, in ticks.
func WithMaxClaimDuration(duration int64) options.Option[Parameters] {
	return func(p *Parameters) {
		p.MaxClaimDuration = duration
	}
}

// WithInitialBalance overrides the balance seeded at registration, in whole
// coins.
func WithInitialBalance(balance int64) options.Option[Parameters] {
	return func(p *Parameters) {
		p.InitialBalance = balance
	}
}

// WithInvitationCost overrides the price of an invitation, in whole coins.
func WithInvitationCost(cost int64) options.Option[Parameters] {
	return func(p *Parameters) {
		p.InvitationCost = cost
	}
}

// WithTrustCapacity overrides the trust limit created by an invitation, in
// whole coins.
func WithTrustCapacity(capacity int64) options.Option[Parameters] {
	return func(p *Parameters) {
		p.TrustCapacity = capacity
	}
}

// WithTrustDuration overrides the lifetime of invitation trust edges.
func WithTrustDuration(duration Tick) options.Option[Parameters] {
	return func(p *Parameters) {
		p.TrustDuration = duration
	}
}

// WithMaxRouteHops overrides the route length bound of the path finder.
func WithMaxRouteHops(hops int) options.Option[Parameters] {
	return func(p *Parameters) {
		p.MaxRouteHops = hops
	}
}
