// Package deduction holds the candidate domains for the three case categories
// and narrows them as constraints arrive. It depends on nothing else in the
// module: callers hand in a Store plus the full constraint log and receive a
// new Store, a consistency verdict and a trace of what changed.
package deduction
