// Package store holds the live badge state of the rendered dashboard and
// fans changes out to connected clients.
//
// The main components are:
//
//   - [Store]: Interface defining badge storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Handle]: The identity a health probe uses to update one badge
//   - [Event]: A change notification (render, badge, validation, discoveries)
//
// Every render installs a new generation with [Store.Reset]. Handles carry
// the generation they were issued under, so a probe that completes after a
// re-render is a no-op rather than relying on a missing element.
//
// Subscribers receive events via channels with non-blocking sends (slow
// subscribers miss events rather than block the engine).
package store
