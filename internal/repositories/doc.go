// Package repositories implements SQLite persistence for download history.
//
// [DownloadRepository] stores one row per completed download. History is
// append-only apart from explicit deletes. [HistoryRecorder] adapts the repository to the
// recorder the download engine calls after each file is tagged.
//
// Sequence numbers give rows a stable, human-readable order independent of UUIDs and
// timestamps. [NextSequence] increments the per-table counter kept in a dedicated
// <table>_sequence table.
package repositories
