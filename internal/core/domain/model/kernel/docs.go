// Package kernel provides the shared value objects of the billing domain.
//
// The package includes:
//   - Money: a two-decimal monetary amount backed by shopspring/decimal and
//     convertible to integer cents for exact arithmetic
//   - UUID: an identifier value object used for execution claim tokens
//
// Both types are immutable and safe for concurrent use.
package kernel
