// Package model defines the dashboard configuration records exchanged with
// the homelab backend and held in the editor buffer.
//
// Configuration, Group and Server are explicit typed records. Optional fields
// are defaulted at the decoding boundary by [Decode] so that rendering never
// has to deal with nil slices or free-form maps:
//
//   - [Configuration]: root document, replaced as a whole
//   - [Group]: ordered list of servers, display order = array order
//   - [Server]: one device with tags, links and health checks
//   - [DiscoveredHost]: scan result, converted into a Server before it can
//     enter a Configuration
//
// [Encode] produces the canonical two-space indented text used by the editor
// buffer, exports and saves.
package model
