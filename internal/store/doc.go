// Package store holds the latest status of every station and fans updates
// out to subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [StationStatus]: Read model of one station
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers miss updates rather than block polling). Nothing is persisted.
package store
