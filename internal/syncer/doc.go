// Package syncer turns a computed diff into cluster writes.
//
// Plan orders the operations into waves: annotated wave numbers first, then
// kind priorities within each wave, with prunes trailing in reverse order.
// Executor walks the waves sequentially, runs each wave's operations in
// parallel, and retries conflicts and transient API failures with bounded
// exponential backoff. Failures are isolated per resource and reported in
// the pass result rather than aborting the pass.
package syncer
