package model

import (
	"strconv"

	"github.com/iotaledger/hive.go/stringify"
)

// AccountID identifies a currency account and doubles as the id of the token
// the account issues.
type AccountID int64

func (a AccountID) String() string {
	return strconv.FormatInt(int64(a), 10)
}

// Tick is a point on the engine clock. A demurrage day spans a fixed number
// of ticks (the demurrage window).
type Tick int64

// Traits is the behavioral profile attached to an account when it is
// registered.
type Traits struct {
	Sociability float64
	Influence   float64
	Evilness    float64
}

// TraitSource produces the traits for a newly registered account. The engine
// never draws randomness itself, generators live outside and are injected.
type TraitSource func(id AccountID) Traits

// ZeroTraits is the default TraitSource.
func ZeroTraits(AccountID) Traits {
	return Traits{}
}

// Account is a registered participant of the trust network.
type Account struct {
	ID        AccountID
	CreatedAt Tick
	Inviter   *AccountID // nil for root registrations
	Traits    Traits
}

func (a *Account) String() string {
	inviter := "none"
	if a.Inviter != nil {
		inviter = a.Inviter.String()
	}

	return stringify.Struct("Account",
		stringify.NewStructField("ID", a.ID),
		stringify.NewStructField("CreatedAt", int64(a.CreatedAt)),
		stringify.NewStructField("Inviter", inviter),
	)
}
