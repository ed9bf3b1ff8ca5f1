// Package service implements the conversion pipeline of cadtoh5m.
//
// Each stage of a conversion is a small component that drives a
// kernel.Session it is handed explicitly:
//
// Loader imports CAD files and records which volumes each file produced,
// uniting them when the file carries a single material tag.
//
// Transformer applies move, scale and rotate transforms in that order.
//
// Tagger groups volumes under their material tag and synthesizes the
// graveyard shell.
//
// Cleaner imprints and merges shared topology.
//
// ReflectorDetector finds the reflecting surfaces of a wedge model and
// reconciles them with the record of a previous run.
//
// Exporter writes the DAGMC file and the optional mesh, session and
// geometry-details outputs.
//
// # Converter
//
// Converter runs the stages in order on one session, publishes progress on
// an EventBus and records each run in a History store when one is
// configured. The first kernel error aborts the run and the workspace is
// left as is; only a successful run resets the kernel.
package service
