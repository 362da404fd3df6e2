// Package workflow enforces the legal state transitions of quotes and
// invoices. Every accepted transition yields an immutable audit record.
package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntityType names a governed entity.
type EntityType string

const (
	EntityQuote   EntityType = "quote"
	EntityInvoice EntityType = "invoice"
)

// State is a lifecycle state of a quote or invoice.
type State string

// Quote lifecycle.
const (
	QuoteDraft    State = "DRAFT"
	QuoteSent     State = "SENT"
	QuoteApproved State = "APPROVED"
	QuoteRejected State = "REJECTED"
	QuoteInvoiced State = "INVOICED"
)

// Invoice payment lifecycle.
const (
	InvoicePending State = "PENDING"
	InvoicePartial State = "PARTIAL"
	InvoicePaid    State = "PAID"
	InvoiceOverdue State = "OVERDUE"
)

// AuditRecord captures who moved which entity between which states.
// Records are append-only; nothing ever mutates or deletes one.
type AuditRecord struct {
	ID       uuid.UUID
	Entity   EntityType
	EntityID int64
	ActorID  int64
	From     State
	To       State
	At       time.Time
}

// InvalidTransitionError names an illegal edge.
type InvalidTransitionError struct {
	Entity EntityType
	From   State
	To     State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("workflow: illegal %s transition %s -> %s", e.Entity, e.From, e.To)
}

// Machine is a fixed transition graph.
type Machine struct {
	entity EntityType
	edges  map[State][]State
}

var quoteMachine = Machine{
	entity: EntityQuote,
	edges: map[State][]State{
		QuoteDraft:    {QuoteSent},
		QuoteSent:     {QuoteApproved, QuoteRejected},
		QuoteApproved: {QuoteInvoiced},
		QuoteRejected: {},
		QuoteInvoiced: {},
	},
}

var invoiceMachine = Machine{
	entity: EntityInvoice,
	edges: map[State][]State{
		InvoicePending: {InvoicePartial, InvoiceOverdue},
		InvoicePartial: {InvoicePaid, InvoiceOverdue},
		InvoiceOverdue: {InvoicePartial, InvoicePaid},
		InvoicePaid:    {},
	},
}

// For returns the machine governing the given entity type.
func For(entity EntityType) (Machine, error) {
	switch entity {
	case EntityQuote:
		return quoteMachine, nil
	case EntityInvoice:
		return invoiceMachine, nil
	default:
		return Machine{}, fmt.Errorf("workflow: unknown entity type %q", entity)
	}
}

// Can reports whether a single edge from -> to exists in the graph.
func (m Machine) Can(from, to State) bool {
	for _, next := range m.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no edge leaves the given state.
func (m Machine) Terminal(state State) bool {
	next, ok := m.edges[state]
	return ok && len(next) == 0
}

// Known reports whether the state belongs to this machine.
func (m Machine) Known(state State) bool {
	_, ok := m.edges[state]
	return ok
}

// Transition validates a single-edge move and returns the audit record to
// append. It performs no I/O; persisting the record and the state change
// atomically is the caller's job.
func Transition(entity EntityType, entityID int64, from, to State, actorID int64) (AuditRecord, error) {
	m, err := For(entity)
	if err != nil {
		return AuditRecord{}, err
	}
	if !m.Known(from) {
		return AuditRecord{}, fmt.Errorf("workflow: unknown %s state %q", entity, from)
	}
	if !m.Can(from, to) {
		return AuditRecord{}, &InvalidTransitionError{Entity: entity, From: from, To: to}
	}
	return AuditRecord{
		ID:       uuid.New(),
		Entity:   entity,
		EntityID: entityID,
		ActorID:  actorID,
		From:     from,
		To:       to,
		At:       time.Now().UTC(),
	}, nil
}
