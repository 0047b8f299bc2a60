// Package cases implements the support case aggregate: creation from
// portal webhooks, customer message appends, admin assignment with an
// audit trail, internal notes, and closing.
//
// Two asymmetric failure rules apply on the ingestion path. Structural
// problems (missing required fields, unknown case id, blank message) fail
// the whole request. Content problems inside a message batch degrade
// gracefully: a message that is empty after trimming, or whose sender does
// not normalize to admin/customer/system, is silently dropped while the
// rest of the batch persists.
package cases
