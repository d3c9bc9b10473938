package hub

import (
	"math/big"

	"github.com/iotaledger/hive.go/runtime/event"

	"github.com/aboutcircles/circles-engine/pkg/model"
	"github.com/aboutcircles/circles-engine/pkg/trust"
)

// Events exposes the state changes of a Hub to telemetry consumers.
type Events struct {
	AccountRegistered *event.Event1[*model.Account]
	TrustEstablished  *event.Event1[*trust.Edge]
	IssuanceClaimed   *event.Event1[*MintReceipt]
	TokensTransferred *event.Event1[*TransferEvent]
	TokensBurned      *event.Event1[*BurnEvent]

	event.Group[Events, *Events]
}

// NewEvents creates a new Events instance.
var NewEvents = event.CreateGroupConstructor(func() *Events {
	return &Events{
		AccountRegistered: event.New1[*model.Account](),
		TrustEstablished:  event.New1[*trust.Edge](),
		IssuanceClaimed:   event.New1[*MintReceipt](),
		TokensTransferred: event.New1[*TransferEvent](),
		TokensBurned:      event.New1[*BurnEvent](),
	}
})

// TransferEvent is the payload of TokensTransferred.
type TransferEvent struct {
	Time            model.Tick
	Sender          model.AccountID
	Receiver        model.AccountID
	Amount          *big.Int
	SenderBalance   *big.Int
	ReceiverBalance *big.Int
}

// BurnEvent is the payload of TokensBurned.
type BurnEvent struct {
	Time    model.Tick
	Account model.AccountID
	Amount  *big.Int
	Balance *big.Int
	Supply  *big.Int
}
