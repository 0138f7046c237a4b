// Package cea608 decodes one field of line-21 caption byte pairs into
// timed caption events.
//
// A Field tracks the two data channels carried on its field (CC1/CC2 on
// field 1, CC3/CC4 on field 2). Each channel owns its displayed and
// non-displayed memories, cursor, style and display mode. Pairs are fed in
// presentation order with their 90 kHz timestamps; every span of time
// during which a channel showed unchanged text becomes one Event.
package cea608
