// Package checkpoint records the progress of a segmented sweep so that a
// rerun can resume it.
//
// A checkpoint lists the segments that have already been harvested along
// with the snapshot file each one was written to. A resumed sweep reloads
// those snapshots instead of fetching the segment again. The checkpoint is
// deleted once every segment of the sweep is complete.
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/weibocrawl/checkpoints/
//   - macOS: ~/Library/Application Support/weibocrawl/checkpoints/
//   - Windows: %APPDATA%/weibocrawl/checkpoints/
//
// The checkpoint files are saved atomically to prevent corruption and include
// versioning for future compatibility.
package checkpoint
