// Package ir provides the runtime value representation for qmodel.
//
// Every value that flows through an in-memory execution (source rows,
// lambda results, aggregates, groupings) is an IRValue. ir imports nothing
// internal, so every other package can depend on it.
//
// Key design constraints:
//   - NO binary floats anywhere - fractional numbers are IRDecimal
//   - Equal, Compare and Hash agree: values that are Equal hash alike
//   - Canonical JSON (RFC 8785) is the only serialization used for
//     fingerprints and golden files
package ir
