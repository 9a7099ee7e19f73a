// Package reconcile brings the local post store in line with what the server
// reports about scheduled and published posts.
//
// A pass reads every local post once, asks the StatusSource about the
// Scheduled and Published ones in batches, and decides one Outcome per post:
//
//   - Unchanged: nothing to do, including repeated passes over published posts;
//   - ConfirmedPublished: the server published a scheduled post, the local
//     record now carries its remote id and cloud image URLs;
//   - Failed: the server rejected the post, its status could not be fetched,
//     or the write-back failed. Result.Err says which;
//   - StaleUnconfirmed: the server has no record of a post whose scheduled
//     time passed more than the grace period ago.
//
// Each decision is written back as a single whole-record Upsert, so a failure
// later in the pass never undoes earlier merges. Nothing is retried inside a
// pass and nothing is ever deleted.
//
// Only one pass runs at a time per Reconciler; concurrent callers share the
// result of the pass already in flight.
package reconcile
