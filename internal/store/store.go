// Package store implements the local-first domain store.
//
// The Store owns every entity collection and the budget settings. Each
// mutation updates memory first and then rewrites the one storage key of
// the collection it touched. Storage failures never reach callers: they are
// logged, counted and handed to Options.OnWriteError while the in-memory
// state stays correct.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mmynk/planner/internal/models"
	"github.com/mmynk/planner/internal/storage"
)

// ErrUnknownCollection is returned by Collection for an unknown name.
var ErrUnknownCollection = errors.New("unknown collection")

// Entities is the type-erased view of a Collection used by transports.
type Entities interface {
	Key() string
	Len() int
	ListJSON() ([]byte, error)
	GetJSON(id string) ([]byte, bool, error)
	AddJSON(ctx context.Context, data []byte) ([]byte, error)
	Patch(ctx context.Context, id string, patch []byte) (bool, error)
	Delete(ctx context.Context, id string) bool
}

// Store holds all planner collections.
type Store struct {
	p *Persister

	notes           *Collection[models.Note]
	goals           *Collection[models.Goal]
	plans           *Collection[models.PlanItem]
	drawings        *Collection[models.Drawing]
	subscriptions   *Collection[models.Subscription]
	transactions    *Collection[models.Transaction]
	invoices        *Collection[models.Invoice]
	clients         *Collection[models.Client]
	companyProfiles *Collection[models.CompanyProfile]

	budget models.BudgetSettings
	named  map[string]Entities
}

// New creates an empty Store on top of kv. Nothing is read and nothing is
// written until Load has run.
func New(kv storage.KV, opts Options) *Store {
	p := NewPersister(kv, opts)
	s := &Store{
		p:               p,
		notes:           NewCollection(p, KeyNotes, noteIdentity),
		goals:           NewCollection(p, KeyGoals, goalIdentity),
		plans:           NewCollection(p, KeyPlans, planIdentity),
		drawings:        NewCollection(p, KeyDrawings, drawingIdentity),
		subscriptions:   NewCollection(p, KeySubscriptions, subscriptionIdentity),
		transactions:    NewCollection(p, KeyTransactions, transactionIdentity),
		invoices:        NewCollection(p, KeyInvoices, invoiceIdentity),
		clients:         NewCollection(p, KeyClients, clientIdentity),
		companyProfiles: NewCollection(p, KeyCompanyProfiles, companyProfileIdentity),
		budget:          models.DefaultBudgetSettings(),
	}
	s.named = map[string]Entities{
		"notes":           s.notes,
		"goals":           s.goals,
		"plans":           s.plans,
		"drawings":        s.drawings,
		"subscriptions":   s.subscriptions,
		"transactions":    s.transactions,
		"invoices":        s.invoices,
		"clients":         s.clients,
		"companyProfiles": s.companyProfiles,
	}
	return s
}

// Open creates a Store and loads it.
func Open(ctx context.Context, kv storage.KV, opts Options) *Store {
	s := New(kv, opts)
	s.Load(ctx)
	return s
}

// Load reads every owned key. A missing key yields an empty collection; an
// unreadable or malformed one is logged and treated as missing. Writes are
// enabled once every key has been read.
func (s *Store) Load(ctx context.Context) {
	s.load(ctx)
	s.p.flushLoadFailures()
}

func (s *Store) load(ctx context.Context) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()

	s.notes.load(ctx)
	s.goals.load(ctx)
	s.plans.load(ctx)
	s.drawings.load(ctx)
	s.subscriptions.load(ctx)
	s.transactions.load(ctx)
	s.invoices.load(ctx)
	s.clients.load(ctx)
	s.companyProfiles.load(ctx)

	budget := models.DefaultBudgetSettings()
	if _, err := s.p.read(ctx, KeyBudgetSettings, &budget); err != nil {
		s.p.loadFailed(KeyBudgetSettings, err)
		budget = models.DefaultBudgetSettings()
	}
	s.budget = budget

	s.p.hydrated = true
	s.p.opts.Logger.Info("Store loaded",
		"notes", len(s.notes.items),
		"goals", len(s.goals.items),
		"plans", len(s.plans.items),
		"invoices", len(s.invoices.items),
		"transactions", len(s.transactions.items),
	)
}

// Loaded reports whether Load has completed.
func (s *Store) Loaded() bool { return s.p.Hydrated() }

func (s *Store) Notes() *Collection[models.Note]                     { return s.notes }
func (s *Store) Goals() *Collection[models.Goal]                     { return s.goals }
func (s *Store) Plans() *Collection[models.PlanItem]                 { return s.plans }
func (s *Store) Drawings() *Collection[models.Drawing]               { return s.drawings }
func (s *Store) Subscriptions() *Collection[models.Subscription]     { return s.subscriptions }
func (s *Store) Transactions() *Collection[models.Transaction]       { return s.transactions }
func (s *Store) Invoices() *Collection[models.Invoice]               { return s.invoices }
func (s *Store) Clients() *Collection[models.Client]                 { return s.clients }
func (s *Store) CompanyProfiles() *Collection[models.CompanyProfile] { return s.companyProfiles }

// Collection looks up a collection by its transport name (e.g. "notes").
func (s *Store) Collection(name string) (Entities, error) {
	c, ok := s.named[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// CollectionNames returns the transport names in sorted order.
func (s *Store) CollectionNames() []string {
	names := make([]string, 0, len(s.named))
	for name := range s.named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Budget returns the current budget settings.
func (s *Store) Budget() models.BudgetSettings {
	s.p.mu.RLock()
	defer s.p.mu.RUnlock()
	return s.budget
}

// UpdateBudget applies fn to the budget settings and persists them.
func (s *Store) UpdateBudget(ctx context.Context, fn func(*models.BudgetSettings)) models.BudgetSettings {
	s.p.mu.Lock()
	fn(&s.budget)
	updated := s.budget
	failure := s.p.write(ctx, KeyBudgetSettings, updated)
	s.p.mu.Unlock()

	s.p.report(failure)
	return updated
}

// Clear empties every collection, resets the budget settings and removes
// every owned key from storage.
func (s *Store) Clear(ctx context.Context) {
	s.p.mu.Lock()
	var failures []*WriteFailure
	for _, c := range []interface {
		reset()
		Key() string
	}{
		s.notes, s.goals, s.plans, s.drawings, s.subscriptions,
		s.transactions, s.invoices, s.clients, s.companyProfiles,
	} {
		c.reset()
		failures = append(failures, s.p.remove(ctx, c.Key()))
	}
	s.budget = models.DefaultBudgetSettings()
	failures = append(failures, s.p.remove(ctx, KeyBudgetSettings))
	s.p.mu.Unlock()

	s.p.report(failures...)
	s.p.opts.Logger.Info("All data cleared")
}

// Keys returns every storage key the Store owns.
func Keys() []string {
	return []string{
		KeyNotes, KeyGoals, KeyPlans, KeyDrawings, KeySubscriptions,
		KeyTransactions, KeyInvoices, KeyClients, KeyCompanyProfiles,
		KeyBudgetSettings,
	}
}
