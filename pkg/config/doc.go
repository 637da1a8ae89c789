// Package config loads stack documents: the files that declare which
// resources a stack contains. Documents are written in CUE, in YAML, or in
// a mix of both; YAML sources are encoded into CUE and every source is
// unified into one value, so a stack can be split across files however the
// author likes.
//
// A document has a stack block, optional variables, an optional compute
// script, and a resources struct keyed by logical ID:
//
//	stack: {
//		name: "orders-prod"
//	}
//
//	resources: ordersKey: {
//		family:       "key"
//		capabilities: ["queue-service"]
//	}
//
//	resources: ordersQueue: {
//		family:                   "queue"
//		encryption_key_ref:       "ordersKey"
//		fifo:                     true
//		enable_dead_letter_queue: true
//	}
//
// Each declaration is checked against its family's CUE schema (shape only;
// the spec validator owns cross-field rules), duration strings such as
// "15m" are normalized, and the body is decoded into the family's spec
// type. The optional compute script runs under Starlark with the document
// variables predeclared; its exported globals become variables.
package config
