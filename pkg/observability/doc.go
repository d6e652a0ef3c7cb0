/*
Package observability exposes the pipeline's Prometheus instrumentation.

The dual-write between the execution ledger and the storage collaborator is
deliberately non-transactional; the divergence counter here is how that
inconsistency window is made visible instead of being corrected.
*/
package observability
