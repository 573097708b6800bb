// Package hiveq implements a hybrid shared queue for a multi-process
// worker pool: a normal lane plus any number of priority lanes, dequeued
// in FIFO or LIFO order, with priority lanes always drained ahead of the
// normal lane in a configurable highest-first or lowest-first order.
//
// A queue runs in one of two modes, chosen once at construction and
// never rebound at runtime: standalone, where a single process owns all
// state and calls hit an in-memory core directly, or manager-hosted,
// where any number of worker processes drive the queue over a
// length-prefixed framed protocol against one authoritative manager
// process. Both modes satisfy the same Queue interface.
package hiveq
