// Package models defines the domain entities of the cadenza music catalog.
//
// The package contains three persistent entity families:
//
//  1. [Collection] : A named library root. Every tracking, media, and track
//     row belongs to exactly one collection.
//  2. [MediaSource] : The content-addressed identity of one physical file
//     (collection + content path + digest) with its extracted audio
//     properties and artwork reference.
//  3. [Track] : Music metadata merged from imports, referencing its
//     [MediaSource]. Identity is a stable UID plus a monotonically
//     increasing revision; the revision bumps on every persisted mutation.
//
// Directory tracking state ([DirTracking]) is the persisted half of the
// change-detection engine: the last-known listing digest and status per
// (collection, directory path). Absence of a row means the directory was
// never scanned or has been untracked.
package models
