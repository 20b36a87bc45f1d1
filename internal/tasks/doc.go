// Package tasks runs the per-invocation download pipeline with progress reporting.
//
// # Core Operations
//
// [Engine] exposes three operations:
//
//  1. [Engine.Download] : fetch, tag and record each argument, then import once
//     - Arguments are URLs or search strings handed to yt-dlp
//     - Tags come from structured metadata, the title or the description, in that order
//     - A single beets import runs at the end of the batch
//
//  2. [Engine.SearchURLs] : turn each argument into YouTube Music search URLs
//     - Playlists expand to one URL per entry
//
//  3. [Engine.YouTubeMusic] : [Engine.SearchURLs] followed by [Engine.Download]
//
// # Failure Policy
//
// Arguments are processed sequentially and the first failure aborts the batch. Nothing is
// imported after a failure, so the library never receives a partial run. History writes are the
// exception: a failed write is logged and the run continues.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends never block; updates are
// dropped when the channel is full.
package tasks
