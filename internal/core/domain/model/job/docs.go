// Package job provides the Job aggregate: one scheduled invoice emission with a
// persisted status.
//
// The package includes:
//   - Job: amount, schedule and emitter context of a single invoice, plus the
//     outcome of its execution attempt
//   - Status: the state machine every job follows
//
// Key business rules:
//   - valueToBill is strictly positive; amount and schedule never change
//   - an execution attempt claims the job (Pending -> InProgress) before calling
//     the invoicing service, so a second attempt on the same job is rejected
//   - every attempt ends in Completed or Failed; nothing returns to Pending
//   - Completed is absolute; Failed may be claimed again by a manual retry
package job
