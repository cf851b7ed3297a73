// Package leadsync keeps the leads spreadsheet and the leads table consistent.
//
// Layering:
// - domain: records, snapshots, reconciliation plans and the diff that produces them
// - application: sync commands in both directions, the leads query, and the change listener
// - ports: sheet, lead repository, and change notification boundaries
// - adapters: Google Sheets, Postgres (gorm + LISTEN/NOTIFY), memory, and HTTP implementations
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - domain and application never import adapters or runtime infrastructure.
// - Listener-triggered runs are serialized; HTTP-triggered runs are not.
package leadsync
