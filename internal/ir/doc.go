// Package ir provides the canonical data model shared by every stage of the
// schedule-to-behavior-tree pipeline.
//
// This package contains type definitions, the error taxonomy and canonical
// encoding only. All other internal packages import ir; ir imports nothing
// internal.
//
// Key design constraints:
//   - Schedule times are int64 ticks; only plan timestamps are float64
//   - Facts are tagged variants with a fixed, ordered parameter list
//   - Canonical JSON never carries floats; numeric leaf parameters are strings
//   - All JSON tags use snake_case
package ir
