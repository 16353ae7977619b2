// Package storage persists the card activity journal.
//
// The engine itself never persists state; this store only records the
// shown/dismissed/action stream so the assistant can review what it
// surfaced and what the user did with it.
package storage
