// Package snapshot persists harvested posts as JSON files and merges them.
//
// The snapshot package handles:
//   - Writing one immutable file per crawl run or segment
//   - Reading snapshot files back into posts
//   - Merging many snapshots with deduplication and date ordering
//
// Files are written to a temporary path, synced, and then hard-linked into
// place, so an existing snapshot is never overwritten and a reader never
// sees a partial file. Corrupt files are skipped during merge.
//
// Usage:
//
//	store, err := snapshot.NewStore("output", normalizer, normalizer.Location(), log)
//	if err != nil {
//	    return err
//	}
//	path, err := store.Save(author, posts, since, until)
//	merged, files, err := store.Merge("output/weibo_1669879400_*.json")
package snapshot
