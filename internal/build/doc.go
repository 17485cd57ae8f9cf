// Package build runs a complete docschema build.
//
// A build discovers the input files, loads them into documents, places
// markdown fragments, interprets every document against its schema in
// parallel, reconciles overwrite documents into the documents sharing their
// uids, renders deferred markdown and finally persists cross-reference
// records and writes the output models. All execution paths (the build and
// watch commands, tests) route through BuildService.
package build
