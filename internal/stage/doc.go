// Package stage defines the contract between the pipeline and the units of
// document processing it runs.
//
// A [Stage] declares its identity and the span types it reads and writes
// through [Info], and does its work in Process against a [Context] holding
// the document text and the run's annotation store. Built-in stages register
// a [Factory] in a [Registry] so pipelines can be assembled from
// (stage id, options) pairs; external components are wrapped with [Func].
package stage
