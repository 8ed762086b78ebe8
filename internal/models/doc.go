// Package models defines the domain entities of the planner.
//
// # Entities
//
// The Domain Store owns these collections:
//   - Note, Goal, PlanItem, Drawing: personal planning
//   - Subscription, Transaction, BudgetSettings: budgeting
//   - Invoice, Client, CompanyProfile: invoicing
//
// Habit entities persist under their own key and are owned by the habit
// tracker, but follow the same create/update/delete discipline.
//
// # Design Principles
//
// 1. **Identity is assigned once**: ID and CreatedAt are set by the store on
// creation and never rewritten by updates.
// 2. **Weak references**: relationships (Invoice.ClientID, PlanItem.LinkedNotes)
// are identifier strings resolved at read time. A missing target is a normal
// state, not an error.
// 3. **Storage shape**: JSON tags match the persisted camelCase shape. Time
// values are written as ISO-8601 strings and parsed back into time.Time.
package models
