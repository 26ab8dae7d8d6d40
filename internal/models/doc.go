// Package models defines the core domain models for the bill splitter.
//
// # Current Models
//
//   - Bill: a bill split among participants, with optional itemization,
//     receipt image, and share state
//   - Participant: one person's line in a bill (name, owed amount, paid flag)
//   - ReceiptItem: an itemized line on a bill, assigned to one or more participants
//   - ShareInfo / SharedBillPayload: the share session and the signed, encrypted
//     snapshot published to the relay
//   - ImportedBill: a read-only copy of someone else's shared bill
//   - Group, RecurringBill, Settings: supporting entities persisted locally
//
// Participants are identified by locally generated UUIDs; there are no user
// accounts. The local user appears in their own bills under the MyselfName
// placeholder and is substituted with their display name at share time.
//
// # Ownership
//
// A Bill is exclusively owned by the local installation. Sharing never creates
// a shared mutable object: the owner publishes encrypted snapshots, and other
// installations hold independently stored ImportedBill copies linked only by
// the share id. Reconciliation happens through the relay, one direction at a
// time.
//
// # Design Principles
//
//  1. Models are plain JSON-serializable structs; the same shape is persisted
//     locally and (stripped of share state) signed and encrypted for the relay.
//  2. Currency amounts are float64 with two-decimal display precision and a
//     0.01 reconciliation epsilon; the itemized price distribution is the only
//     path that works in exact integer cents.
//  3. Relationships use ID strings, never pointers, to keep snapshots cheap to
//     deep-copy and safe to serialize.
package models
