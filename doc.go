// Package orderledger turns retail order-confirmation emails into priced,
// tax-allocated records ready to be posted to a ledger.
//
// The pipeline is:
//   - Parsing: an order confirmation (HTML with a plain-text fallback) is parsed
//     into an Order: id, grand total and line items (see package email).
//   - Pricing: for multi-item orders, the unit price of every item is looked up
//     on its product page (see package pricing).
//   - Allocation: the difference between the grand total and the priced
//     subtotal is the tax, allocated to items proportionally to their subtotal.
//   - Reconciliation: the Processor sequences the steps and degrades to a single
//     consolidated record whenever itemization is not possible.
//
// The resulting Records are posted by package ledger. Nothing here persists
// state: every document is processed on its own.
package orderledger
