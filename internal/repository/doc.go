// Package repository defines the data access interfaces for cadtoh5m.
//
// This package provides the repository abstraction layer for persisting
// and retrieving conversion runs. The actual implementation is in the
// sqlite subpackage.
//
// # Repository Interface
//
// RunRepository stores every conversion run with its options, the entries
// it converted and the material provenance it produced. Surface
// reflectivity records are also kept per CAD file so a later run of the
// same wedge model starts from the previous classification.
//
// # SQLite Implementation
//
// The sqlite implementation uses the pure-Go modernc.org/sqlite driver with
// WAL mode. It handles:
//
// - JSON serialization of options, entries and provenance
// - Foreign key constraints and cascade deletes
// - Transactional writes of a run and its reflectivity rows
//
// # Testing
//
// The sqlite repository is tested with in-memory databases.
package repository
