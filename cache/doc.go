// Package cache provides an in-process key-value cache with per-entry TTL
// expiration.
//
// Entries expire passively when read after their deadline and actively
// through a background reaper that scans point-in-time snapshots of the
// store. The reaper never writes the store: it reports expired keys to an
// eviction applier owned by the cache, which re-checks each key against the
// live entry before deleting it, so a key re-set after a snapshot is never
// lost.
//
// Keys are strings or numbers. Numeric keys are canonicalized to their
// decimal text, so 1 and "1" address the same entry. Values are stored as
// text or as structured data depending on Config.ForceString.
//
// A Cache is safe for concurrent use. Call Close to stop the reaper.
package cache
