package models

import "time"

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Invoice is a bill issued to a client.
type Invoice struct {
	// ID is the unique identifier for the invoice (UUID format).
	ID string `json:"id"`

	// InvoiceNumber is the human-facing number (e.g., "2026-0042").
	InvoiceNumber string `json:"invoiceNumber"`

	IssueDate time.Time `json:"issueDate"`
	DueDate   time.Time `json:"dueDate"`
	CreatedAt time.Time `json:"createdAt"`

	// PaidAt is set when the invoice is marked paid.
	PaidAt *time.Time `json:"paidAt,omitempty"`

	// ClientID is a weak reference to Client.ID. Deleting the client
	// does not delete its invoices.
	ClientID string `json:"clientId"`

	// CompanyProfileID is a weak reference to the issuing CompanyProfile.
	CompanyProfileID string `json:"companyProfileId,omitempty"`

	Status   InvoiceStatus `json:"status"`
	Items    []InvoiceItem `json:"items,omitempty"`
	Total    float64       `json:"total"`
	Currency string        `json:"currency"`
	Notes    string        `json:"notes,omitempty"`
}

// InvoiceItem is a single line on an invoice.
type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Client is a customer that invoices are issued to.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	TaxNumber string    `json:"taxNumber,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CompanyProfile holds the issuer details printed on invoices.
type CompanyProfile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	TaxNumber   string    `json:"taxNumber,omitempty"`
	BankAccount string    `json:"bankAccount,omitempty"`
	Email       string    `json:"email,omitempty"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
}
