package domain

import "sort"

// FeedValue is a feed as retained in a snapshot. A feed whose value could not
// be converted is kept with every field nil.
type FeedValue struct {
	Value *float64 `json:"value"`
	Time  *int64   `json:"time"`
	Name  *string  `json:"name"`
}

func (v FeedValue) HasValue() bool {
	return v.Value != nil
}

// Snapshot maps the schema feeds reported by one poll to their values. A
// snapshot is never modified once published; readers get copies.
type Snapshot map[FeedID]FeedValue

func (s Snapshot) Has(id FeedID) bool {
	_, ok := s[id]
	return ok
}

func (s Snapshot) Get(id FeedID) (FeedValue, bool) {
	v, ok := s[id]
	return v, ok
}

// FeedIDs returns the snapshot keys sorted.
func (s Snapshot) FeedIDs() []FeedID {
	ids := make([]FeedID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Missing returns the ids in want that the snapshot does not contain.
func (s Snapshot) Missing(want ...FeedID) []FeedID {
	var missing []FeedID
	for _, id := range want {
		if !s.Has(id) {
			missing = append(missing, id)
		}
	}
	return missing
}
