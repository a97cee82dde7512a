// Package services provides the domain services that turn a billing request
// into a plan of invoices.
//
// The package includes:
//   - Partitioner: splits a target total into bounded random amounts that add up
//     to the total exactly
//   - TimeSampler: draws random schedule specs inside hour and day windows
//   - Planner: pairs amounts and schedules into a Plan
//
// Randomness is injected through RandomSource so tests can use a seeded source.
package services
