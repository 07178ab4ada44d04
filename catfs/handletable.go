package catfs

import "sync"

// HandleID is the opaque 64-bit identifier exchanged with the kernel
// protocol (spec.md section 3, "FileHandle identifiers", and section
// 9 "use a dense vector with a free list rather than a hash table").
type HandleID uint64

// HandleTable is the process-wide mapping from HandleID to *FileHandle.
// Guarded by a short-critical-section mutex (spec.md section 5).
// It also tracks a path-indexed reference count so the governor can
// tell whether a cache file is currently open without scanning every
// live handle (spec.md section 4.4/5).
type HandleTable struct {
	mu      sync.Mutex
	slots   []*FileHandle // dense vector; nil entries are free
	freeIDs []HandleID

	// enumMu is held for writing briefly by registerPath/unregisterPath
	// and for reading by the governor while it enumerates candidates,
	// so eviction never races with a handle being registered for the
	// same path (spec.md section 4.4).
	enumMu sync.RWMutex
	refs   map[string]int
}

func newHandleTable() *HandleTable {
	return &HandleTable{refs: make(map[string]int)}
}

// alloc inserts fh and returns its new id.
func (t *HandleTable) alloc(fh *FileHandle) HandleID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.freeIDs); n > 0 {
		id := t.freeIDs[n-1]
		t.freeIDs = t.freeIDs[:n-1]
		t.slots[id] = fh
		return id
	}
	id := HandleID(len(t.slots))
	t.slots = append(t.slots, fh)
	return id
}

// get looks up a handle id, returning KindBadHandle if it is unknown
// or has already been released.
func (t *HandleTable) get(id HandleID) (*FileHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.slots) || t.slots[id] == nil {
		return nil, newErr(KindBadHandle, "lookup", "", nil)
	}
	return t.slots[id], nil
}

// free removes id from the table and returns it to the free list.
func (t *HandleTable) free(id HandleID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.slots) || t.slots[id] == nil {
		return
	}
	t.slots[id] = nil
	t.freeIDs = append(t.freeIDs, id)
}

// registerPath bumps the open-handle refcount for rel, preventing the
// governor from evicting it.
func (t *HandleTable) registerPath(rel string) {
	t.enumMu.Lock()
	defer t.enumMu.Unlock()
	t.refs[rel]++
}

// unregisterPath drops the refcount for rel.
func (t *HandleTable) unregisterPath(rel string) {
	t.enumMu.Lock()
	defer t.enumMu.Unlock()
	if t.refs[rel] <= 1 {
		delete(t.refs, rel)
		return
	}
	t.refs[rel]--
}

// pathInUseLocked reports whether rel currently has at least one live
// handle. Caller must already hold enumMu (for reading or writing).
func (t *HandleTable) pathInUseLocked(rel string) bool {
	return t.refs[rel] > 0
}

// pathInUse reports whether rel currently has at least one live handle.
func (t *HandleTable) pathInUse(rel string) bool {
	t.enumMu.RLock()
	defer t.enumMu.RUnlock()
	return t.pathInUseLocked(rel)
}
