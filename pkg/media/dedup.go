package media

import "sort"

// Dedup collapses entries sharing a QualityKey. An mp4 entry replaces a
// non-mp4 one; an entry with the same container as the kept one replaces it.
// Keys keep the order in which they were first seen. Dedup is idempotent.
func Dedup(formats []FormatEntry) []FormatEntry {
	index := make(map[string]int, len(formats))
	out := make([]FormatEntry, 0, len(formats))

	for _, f := range formats {
		key := f.QualityKey()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, f)
			continue
		}

		existing := out[i]
		switch {
		case f.Container == "mp4" && existing.Container != "mp4":
			out[i] = f
		case f.Container == existing.Container:
			out[i] = f
		}
	}
	return out
}

// VideoListing returns the deduplicated video entries, highest first.
// Audio-only entries are left out; entries without a height sort last.
func VideoListing(formats []FormatEntry) []FormatEntry {
	videos := make([]FormatEntry, 0, len(formats))
	for _, f := range formats {
		if f.HasVideo {
			videos = append(videos, f)
		}
	}

	unique := Dedup(videos)
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Height > unique[j].Height
	})
	return unique
}
