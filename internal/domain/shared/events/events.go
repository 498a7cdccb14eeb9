package events

import "time"

// DomainEvent is a fact recorded by the domain and relayed through the outbox.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}
