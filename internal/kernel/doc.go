// Package kernel drives the external geometry/meshing kernel.
//
// The kernel (Coreform Cubit) is proprietary and only reachable through its
// Python binding, so every operation is a text command plus a handful of
// query primitives. Session is the explicit handle that the conversion
// pipeline passes to every step; nothing here keeps global state.
//
// # Sessions
//
// BridgeSession speaks a newline-delimited JSON protocol with a small Python
// bridge (bridge.py, embedded) that imports cubit from the configured
// installation. The bridge runs under a Transport:
//
//   - LocalTransport starts the bridge as a subprocess
//   - SSHTransport starts it on a remote workstation that holds the license
//
// The sim subpackage provides an in-memory Session for tests and dry runs.
//
// # Commands
//
// command.go builds every command string the pipeline issues, so the exact
// kernel syntax lives in one file.
package kernel
