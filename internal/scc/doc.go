// Package scc sequences caption byte pairs into presentation order and
// converts between the in-memory pair stream and the Scenarist SCC text
// format.
//
// A [Writer] absorbs B-frame reordering with a small timestamp-bucket
// buffer ([Sorter]), re-times pairs relative to the first drained PTS and
// forwards them, in order, to an optional [Sink] such as a CEA-608 field
// decoder. The SCC text it builds is an interchange encoding. [Parse] reads
// the same text back, and [Decode] replays a parsed document into a Sink.
package scc
