// Package demux locates CEA-608 caption byte pairs inside the video
// elementary stream of an MPEG transport stream.
//
// The central type is [Extractor], which drives an [mpegts.Demuxer], picks
// the first video PID announced by a PMT and scans each video PES for
// caption carriage: A/53 GA94 and SCTE-20 picture user data in MPEG-2
// video, DVD-style "CC" user data, and registered user data SEI messages
// in H.264 and H.265. Every pair is tagged with the PTS of its PES, a
// [media.Source] and the line-21 field it belongs to.
//
// CEA-708 (DTVCC) bytes found alongside the 608 pairs are not decoded; their
// service numbers are collected for reporting.
package demux
