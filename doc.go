// Package ledger implements a plain-text double-entry accounting engine. It
// is designed to be local-first and auditable: a ledger is an ordinary text
// file of dated directives, and every result the package produces can be
// traced back to a line of that file.
//
// The core functionalities include:
//   - Parsing: Reading the directive format (transactions, balance
//     assertions, account lifecycles, prices, pads, options and includes)
//     into a typed directive stream with precise source locations.
//   - Booking: Completing partial transactions by matching reductions
//     against the lots an account holds, binding cost specifications to
//     concrete costs, and solving the one number a transaction may omit.
//   - Verification: Checking balance assertions, inserting pad transactions,
//     and running a validation suite so that as many problems as possible
//     surface in a single load.
//   - Prices: Building a read-only price database from price directives,
//     with reconciled forward and inverse pairs.
//   - Persistence: Printing the loaded entries back in canonical text form
//     and exporting them as JSON.
//
// This package serves as the foundational logic for the `bean` command-line
// tool, ensuring that all operations are consistent and based on a single
// source of truth.
package ledger
