// Package errors provides the structured error type used across parallelio.
//
// Every failure that leaves a package boundary is an *AppError carrying a
// machine-readable code, a message, optional details and the underlying
// cause. Callers classify errors with the Is* helpers, which see through
// wrapping.
package errors
