package store

import "github.com/mmynk/planner/internal/models"

// ClientOf resolves the client an invoice points at.
// A deleted client is reported as not found.
func (s *Store) ClientOf(inv models.Invoice) (models.Client, bool) {
	return s.clients.Get(inv.ClientID)
}

// CompanyProfileOf resolves the issuer of an invoice. When the invoice does
// not name one, the default profile is used.
func (s *Store) CompanyProfileOf(inv models.Invoice) (models.CompanyProfile, bool) {
	if inv.CompanyProfileID != "" {
		return s.companyProfiles.Get(inv.CompanyProfileID)
	}
	for _, p := range s.companyProfiles.List() {
		if p.IsDefault {
			return p, true
		}
	}
	return models.CompanyProfile{}, false
}

// LinkedNotes returns the notes a plan item links to, in link order.
// Dangling ids are skipped.
func (s *Store) LinkedNotes(item models.PlanItem) []models.Note {
	notes := make([]models.Note, 0, len(item.LinkedNotes))
	for _, id := range item.LinkedNotes {
		if n, ok := s.notes.Get(id); ok {
			notes = append(notes, n)
		}
	}
	return notes
}

// InvoicesFor lists the invoices that reference clientID.
func (s *Store) InvoicesFor(clientID string) []models.Invoice {
	var out []models.Invoice
	for _, inv := range s.invoices.List() {
		if inv.ClientID == clientID {
			out = append(out, inv)
		}
	}
	return out
}

// ClientName returns the client's name, or fallback when the reference
// is dangling.
func (s *Store) ClientName(inv models.Invoice, fallback string) string {
	if c, ok := s.ClientOf(inv); ok {
		return c.Name
	}
	return fallback
}
