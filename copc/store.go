package copc

import (
	"io"

	"github.com/pkg/errors"

	"github.com/geolidar/gocopc/source"
)

// pageRef addresses one hierarchy page by its byte range.
type pageRef struct {
	offset uint64
	size   uint64
}

// hierarchyStore lazily loads hierarchy pages and caches their entries for
// the lifetime of one reader. Pages are cached by byte range, so a given
// range is fetched from the source at most once. The store is not safe for
// concurrent use; each reader owns its own.
type hierarchyStore struct {
	src     io.ReaderAt
	entries map[VoxelKey]Entry
	loaded  map[pageRef]struct{}
}

func newHierarchyStore(src io.ReaderAt) *hierarchyStore {
	return &hierarchyStore{
		src:     src,
		entries: map[VoxelKey]Entry{},
		loaded:  map[pageRef]struct{}{},
	}
}

// load fetches and caches the page at ref. Loading an already cached ref is
// a no-op.
func (s *hierarchyStore) load(ref pageRef) error {
	if _, ok := s.loaded[ref]; ok {
		return nil
	}
	data, err := source.ReadRange(s.src, int64(ref.offset), int(ref.size))
	if err != nil {
		return &IoError{Offset: ref.offset, Length: ref.size, Err: err}
	}
	entries, err := parsePage(data)
	if err != nil {
		return &FormatError{Err: err}
	}
	s.loaded[ref] = struct{}{}
	for _, e := range entries {
		s.entries[e.Key] = e
	}
	return nil
}

// entry returns the resolved entry for key, following at most one page
// forward pointer. The bool reports whether the key exists in the hierarchy
// at all. A failed page resolve aborts only this branch; the error carries
// the IoError or FormatError cause.
func (s *hierarchyStore) entry(key VoxelKey) (Entry, bool, error) {
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if !e.IsPageRef() {
		return e, true, nil
	}
	ref := pageRef{offset: e.Offset, size: uint64(e.ByteSize)}
	if err := s.load(ref); err != nil {
		return e, true, err
	}
	e, ok = s.entries[key]
	if !ok || e.IsPageRef() {
		return e, true, &FormatError{Err: errors.Errorf("hierarchy page at %d does not resolve node %s", ref.offset, key)}
	}
	return e, true, nil
}
