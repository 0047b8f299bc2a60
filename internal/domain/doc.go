// Package domain holds the core entity types shared across services and
// repositories: ingested submissions, support cases, customers, and the
// outbound delivery queue. Types here carry no behavior beyond small
// normalization helpers and never import net/http or database/sql directly.
package domain
