// Package models defines the domain entities shared by the download pipeline and its history store.
//
// The package contains two categories of types:
//
// 1. Value types produced while processing a download
//   - [Track] : artist, song and album chosen for a downloaded file, with the [Source] they came from
//
// 2. Persistent entities
//   - [Download] : one completed download as recorded in the history database
//
// Persistent entities implement [Model]; [Repository] describes their storage.
package models
