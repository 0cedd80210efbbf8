// Package stage models the build pipeline's stages.
//
// A Stage is a record with identity, description, status and timing. Its status follows the
// machine PENDING → RUNNING → {SUCCESS, FAILED}; SUCCESS and FAILED are terminal. SKIPPED is a
// valid Status value but no stage transitions into it: conditional stages are filtered out when
// the Pipeline is assembled and only their names are kept (see Pipeline.Skipped). Pausing is a
// run-level condition and is never stored on a stage.
//
// Stage values are not safe for concurrent use; the orchestrator serialises all mutation and
// hands readers Snapshots.
package stage
