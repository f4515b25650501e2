// Package walkthrough loads walkthrough definitions and turns them into
// engine steps.
//
// # File Formats
//
// YAML (.yaml, .yml), decoded strictly so typos in field names fail:
//
//	name: rag-basics
//	description: "Retrieval augmented generation in five steps"
//	speed: 1
//	steps:
//	  - id: question
//	    delay_ms: 800
//	    payload: { text: "User asks a question" }
//	  - delay_ms: 1200
//	    payload: { text: "Retriever searches the index" }
//
// CUE (.cue) with the same fields. CUE files are unified with the closed
// #Walkthrough schema in schema.go before decoding, so constraint violations
// are reported with file positions.
//
// # Identity
//
// Names and step IDs are trimmed and NFC-normalized, so visually identical
// IDs typed with different Unicode compositions collide as duplicates. Steps
// without an id receive one from an IDGenerator when converted with Steps.
package walkthrough
