// Package packages implements subscription package change requests and
// their synchronization with the external customer portal.
//
// The local database is the system of record: an immediate change commits
// locally first, then pushes to the portal. A failed push never rolls the
// local change back; it surfaces as sync_failed in the response and is
// queued on the outbox for the delivery worker.
package packages
