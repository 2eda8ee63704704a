// Package metrics records run metrics with Prometheus collectors.
//
// A Recorder registers its collectors on a caller-supplied registry so a
// process can keep several independent runs apart. The CLI writes the
// registry in the node_exporter textfile format at the end of a run.
package metrics
