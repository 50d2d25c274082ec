// Package llm sends a conversation to one of several hosted chat APIs and
// returns the full answer text.
//
// Every provider is described by a Profile row (endpoint, auth header,
// body builder, response extractor). Adapter performs exactly one POST per
// call and classifies failures into an ErrorKind.
package llm
