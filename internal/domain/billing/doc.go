// Package billing holds the sales register domain: documents imported from
// the SII registro de ventas, the payments and allocations recorded against
// them, and the balance rules that keep every invoice's outstanding amount
// consistent with its credit notes and payments.
//
// Key aggregates:
//   - Document: one register row (invoice or credit note), keyed by (doc
//     type, folio)
//   - Payment: a received transfer plus its allocations across documents
//
// Balances are derived, never stored as the source of truth. Recalculator
// re-derives a document's outstanding amount from its allocations and the
// credit notes that reference it.
package billing
