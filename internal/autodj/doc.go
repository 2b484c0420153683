// Package autodj is the decision core of the system. It watches the
// skip/listen tracker, and when the listener rejects the current direction
// (a run of skips) or settles into it (sustained listens, or the queue
// running dry), it consults the recommendation oracle and mutates the play
// queue through the reconciliation layer.
//
// Two trigger paths share one operation lock. The rescue path is eager: it
// resets its trigger condition before the network fetch so it can never
// double-fire. The expansion path is cooperative: when an operation is
// already in flight it waits for the holder and re-evaluates instead of
// queuing its own action.
package autodj
