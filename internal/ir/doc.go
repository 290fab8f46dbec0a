// Package ir provides the intermediate representation produced by the
// squint parser and consumed by every downstream stage (overlay validator,
// Floquet expander, emitter, simulator).
//
// This package contains the IR type definitions plus the canonical-JSON
// encoder and session content hash built on them. All other internal packages
// import ir; ir imports nothing internal, so it stays the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Workspace and Kernel are immutable after Parse returns.
//   - Operation.Overlay holds normalized-but-unvalidated string values;
//     validation lives in internal/overlay, not here.
//   - Declaration order is preserved everywhere (semantic fields, defect
//     fields, operations) so downstream stages never depend on map
//     iteration order for anything observable.
package ir
