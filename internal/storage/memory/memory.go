// Package memory is the in-process storage backend. Unique constraints are
// enforced under each store's mutex and the unit of work serialises writers
// per event, which holds for a single instance and for tests.
package memory

import "festreg/internal/storage"

// New builds a complete in-memory backend.
func New(opts ...TxOption) *storage.Backend {
	teams := NewTeamStore()
	stores := storage.Stores{
		Events:        NewEventStore(),
		Teams:         teams,
		Registrations: NewRegistrationStore(teams),
		Participants:  NewParticipantStore(),
	}
	return &storage.Backend{
		Stores:   stores,
		Counters: NewCounterStore(),
		UoW:      NewUnitOfWork(stores, opts...),
	}
}
