package domain

// SyncState is the outbox drain state.
type SyncState string

const (
	SyncStateIdle     SyncState = "idle"
	SyncStateDraining SyncState = "draining"
)

// DefaultSyncTag is raised by the connectivity monitor when the origin comes back.
const DefaultSyncTag = "sync-entries"
