// Package srt captures a live transport stream from a remote SRT listener
// in caller mode, for a bounded duration, and hands it to the extractor as
// an ingest.Stream.
package srt
