package store

// checkpoint is a deep copy of the Fork's pending write buffer, pushed by
// Checkpoint and restored by RollbackTo. Mirrors the teacher's stateSnapshot
// stack, generalized from a single flat keyspace to per-bucket maps.
type checkpoint struct {
	dirty   map[string]map[string][]byte
	deleted map[string]map[string]bool
}

// Fork is a writable layer over a base Reader (normally a Store's Snapshot).
// Writes accumulate in memory until the Store commits them; Checkpoint and
// RollbackTo give the executor nested savepoints, so a failing transaction
// kind can discard its own writes while keeping side effects — a sticky
// service fee, say — applied before the checkpoint was taken.
type Fork struct {
	base        Reader
	dirty       map[string]map[string][]byte
	deleted     map[string]map[string]bool
	checkpoints []checkpoint
}

// NewFork wraps base in a fresh Fork with an empty write buffer.
func NewFork(base Reader) *Fork {
	return &Fork{
		base:    base,
		dirty:   make(map[string]map[string][]byte),
		deleted: make(map[string]map[string]bool),
	}
}

// Get implements Reader: pending writes shadow the base snapshot, and a
// pending delete shadows a value still present in the base snapshot.
func (f *Fork) Get(bucket string, key []byte) ([]byte, error) {
	k := string(key)
	if rows, ok := f.deleted[bucket]; ok && rows[k] {
		return nil, ErrNotFound
	}
	if rows, ok := f.dirty[bucket]; ok {
		if v, ok := rows[k]; ok {
			return v, nil
		}
	}
	return f.base.Get(bucket, key)
}

// Iterate merges the pending write buffer over the base snapshot's contents,
// in ascending key order, skipping pending deletes.
func (f *Fork) Iterate(bucket string, fn func(key, value []byte) error) error {
	merged := make(map[string][]byte)
	if err := f.base.Iterate(bucket, func(k, v []byte) error {
		cp := make([]byte, len(v))
		copy(cp, v)
		merged[string(k)] = cp
		return nil
	}); err != nil {
		return err
	}
	for k, v := range f.dirty[bucket] {
		merged[k] = v
	}
	for k := range f.deleted[bucket] {
		delete(merged, k)
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sortStrings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}

// Set stages a write, visible to subsequent Get/Iterate calls on this Fork
// but not committed to the Store until Apply is called.
func (f *Fork) Set(bucket string, key, value []byte) {
	k := string(key)
	if rows, ok := f.deleted[bucket]; ok {
		delete(rows, k)
	}
	rows, ok := f.dirty[bucket]
	if !ok {
		rows = make(map[string][]byte)
		f.dirty[bucket] = rows
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	rows[k] = cp
}

// Delete stages a deletion.
func (f *Fork) Delete(bucket string, key []byte) {
	k := string(key)
	if rows, ok := f.dirty[bucket]; ok {
		delete(rows, k)
	}
	rows, ok := f.deleted[bucket]
	if !ok {
		rows = make(map[string]bool)
		f.deleted[bucket] = rows
	}
	rows[k] = true
}

// Checkpoint saves the current write buffer and returns a checkpoint id to
// pass to RollbackTo.
func (f *Fork) Checkpoint() int {
	cp := checkpoint{
		dirty:   deepCopyRows(f.dirty),
		deleted: deepCopyFlags(f.deleted),
	}
	f.checkpoints = append(f.checkpoints, cp)
	return len(f.checkpoints) - 1
}

// RollbackTo restores the write buffer to the state it had when Checkpoint
// returned id, discarding every write staged since.
func (f *Fork) RollbackTo(id int) error {
	if id < 0 || id >= len(f.checkpoints) {
		return errInvalidCheckpoint(id)
	}
	cp := f.checkpoints[id]
	f.dirty = deepCopyRows(cp.dirty)
	f.deleted = deepCopyFlags(cp.deleted)
	f.checkpoints = f.checkpoints[:id]
	return nil
}

func deepCopyRows(in map[string]map[string][]byte) map[string]map[string][]byte {
	out := make(map[string]map[string][]byte, len(in))
	for bucket, rows := range in {
		cp := make(map[string][]byte, len(rows))
		for k, v := range rows {
			vv := make([]byte, len(v))
			copy(vv, v)
			cp[k] = vv
		}
		out[bucket] = cp
	}
	return out
}

func deepCopyFlags(in map[string]map[string]bool) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(in))
	for bucket, rows := range in {
		cp := make(map[string]bool, len(rows))
		for k, v := range rows {
			cp[k] = v
		}
		out[bucket] = cp
	}
	return out
}
