// Package batch runs many independent tasks, typically graph runs, on a
// bounded worker pool and reports results in input order.
package batch
