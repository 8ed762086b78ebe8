package store

import (
	"time"

	"github.com/mmynk/planner/internal/models"
)

// Durable-storage keys owned by the Store.
const (
	KeyNotes           = "planner-notes"
	KeyGoals           = "planner-goals"
	KeyPlans           = "planner-plans"
	KeyDrawings        = "planner-drawings"
	KeySubscriptions   = "planner-subscriptions"
	KeyTransactions    = "planner-transactions"
	KeyInvoices        = "planner-invoices"
	KeyClients         = "planner-clients"
	KeyCompanyProfiles = "planner-company-profiles"
	KeyBudgetSettings  = "planner-budget-settings"
)

var noteIdentity = Identity[models.Note]{
	ID:        func(n *models.Note) *string { return &n.ID },
	Created:   func(n *models.Note, now time.Time) { n.CreatedAt = now; n.UpdatedAt = nil },
	Immutable: func(dst, src *models.Note) { dst.CreatedAt = src.CreatedAt },
	Touched:   func(n *models.Note, now time.Time) { n.UpdatedAt = &now },
}

var goalIdentity = Identity[models.Goal]{
	ID:        func(g *models.Goal) *string { return &g.ID },
	Created:   func(g *models.Goal, now time.Time) { g.CreatedAt = now },
	Immutable: func(dst, src *models.Goal) { dst.CreatedAt = src.CreatedAt },
}

// Plan items have no creation stamp.
var planIdentity = Identity[models.PlanItem]{
	ID: func(p *models.PlanItem) *string { return &p.ID },
	Created: func(p *models.PlanItem, _ time.Time) {
		if p.LinkedNotes == nil {
			p.LinkedNotes = []string{}
		}
	},
}

var drawingIdentity = Identity[models.Drawing]{
	ID:        func(d *models.Drawing) *string { return &d.ID },
	Created:   func(d *models.Drawing, now time.Time) { d.CreatedAt = now },
	Immutable: func(dst, src *models.Drawing) { dst.CreatedAt = src.CreatedAt },
}

var subscriptionIdentity = Identity[models.Subscription]{
	ID:        func(s *models.Subscription) *string { return &s.ID },
	Created:   func(s *models.Subscription, now time.Time) { s.CreatedAt = now },
	Immutable: func(dst, src *models.Subscription) { dst.CreatedAt = src.CreatedAt },
}

var transactionIdentity = Identity[models.Transaction]{
	ID: func(t *models.Transaction) *string { return &t.ID },
}

var invoiceIdentity = Identity[models.Invoice]{
	ID:        func(i *models.Invoice) *string { return &i.ID },
	Created:   func(i *models.Invoice, now time.Time) { i.CreatedAt = now },
	Immutable: func(dst, src *models.Invoice) { dst.CreatedAt = src.CreatedAt },
}

var clientIdentity = Identity[models.Client]{
	ID:        func(c *models.Client) *string { return &c.ID },
	Created:   func(c *models.Client, now time.Time) { c.CreatedAt = now },
	Immutable: func(dst, src *models.Client) { dst.CreatedAt = src.CreatedAt },
}

var companyProfileIdentity = Identity[models.CompanyProfile]{
	ID:        func(c *models.CompanyProfile) *string { return &c.ID },
	Created:   func(c *models.CompanyProfile, now time.Time) { c.CreatedAt = now },
	Immutable: func(dst, src *models.CompanyProfile) { dst.CreatedAt = src.CreatedAt },
}
