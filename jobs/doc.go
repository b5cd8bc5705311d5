// Package jobs runs ingestion work in the background.
//
// Jobs submitted for one space run one at a time in submission order, so a
// removal queued behind an upload always sees the upload's result. Jobs for
// different spaces run in parallel on a bounded worker pool. Every job gets a
// UUID that can be polled for its state and ingestion result.
package jobs
