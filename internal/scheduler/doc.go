// Package scheduler dispatches groups of operator nodes to an asynchronous
// native compiler and reconciles the results of a whole batch of in-flight
// compile requests.
//
// # Why Scheduler Exists
//
// The native compiler accepts compile requests one at a time and reports
// finished work per calling thread, in no particular order. Hundreds of
// requests may be in flight for a single batch, some of them fused groups of
// several nodes and some of them thread-sliced ops that expand into more than
// one request. The scheduler is the only place that knows which request
// belongs to which nodes, so it owns:
//   - **Submission:** allocating task ids and expanding sliced scopes
//   - **Completion tracking:** polling until every submitted task is accounted for
//   - **Result application:** writing compiled-artifact metadata onto nodes
//   - **Failure recovery:** fusion rollback, then a single singleton-retry round
//
// # How It Works
//
// A call to Scheduler.Compile runs at most two rounds:
//  1. Submit every scope of the round (one task per representative slice)
//  2. Poll Backend.WaitAllFinished until finished == submitted
//  3. Reconcile each scope from its slice tasks and apply successful results
//  4. Classify failed scopes: roll back, retry as singletons, or fail terminally
//  5. If any singletons were produced, run them as round two; their failures are terminal
//
// # Concurrency
//
// A Context is shared by every calling goroutine for the process lifetime and
// only hands out task and scope ids. Each Compile call owns its batch state
// exclusively; all cross-thread coordination happens inside the Backend.
package scheduler
