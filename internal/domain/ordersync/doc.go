// Package ordersync contains the Order Synchronization bounded context.
// It models storefront (cart) orders, accounting-system customers and
// sales orders, and the observable outcome of syncing one into the other.
//
// Key concepts:
//   - Order: Immutable storefront order, re-fetched on every sync attempt
//   - Customer: Accounting-system entity, either a person or a company
//   - SalesOrderPayload: The create request sent to the accounting system
//   - SyncResult / SyncStatus: Outcome of one attempt and the derived sync state
//   - ExternalReferenceKey: Deterministic key stored on the sales order to detect prior syncs
//
// Design Pattern: Ports & Adapters
//   - Ports (CartGateway, AccountingGateway, SyncRecordRepository, PayloadArchive) are defined here
//   - Adapters live in the infrastructure layer
package ordersync
