package broker

import (
	"github.com/fiberline/ispbill/spec"
)

// Producer defines a producer sending billing events via message broker
type Producer interface {
	Close()
	PublishSubscriptionEvent(e *spec.SubscriptionEvent) error
}
