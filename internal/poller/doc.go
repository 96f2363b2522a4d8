// Package poller runs the dashboard's periodic background work.
//
// A [Scheduler] owns a set of [Task] values, each with its own interval.
// It ticks at the greatest common divisor of those intervals and runs the
// tasks that are due, so a 30s health refresh and a 5m discovery refresh
// share one ticker.
//
// Users of the labboard library should not need to interact with this
// package directly. Intervals are configured through the main labboard
// package.
package poller
