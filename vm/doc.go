// Package vm implements the xrt object runtime.
//
// This package contains:
//   - Tagged value representation
//   - Class hierarchy, object layout and static storage
//   - VTable-based method dispatch
//   - Multi-dimensional arrays
//   - Method threads with join semantics
//   - The builtin bridge (io, array and types namespaces)
//   - A tree-walking interpreter over pkg/ast programs
package vm
