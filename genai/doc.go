// Package genai defines the opaque boundary to the external generation
// collaborator and the prompt builders that feed it.
//
// The engine never talks to an AI provider directly: it calls a single
// Generator with persona instructions and a serialized grounding block, and
// receives raw content back. All content crossing this boundary is
// untrusted input for the verify package. The grounding labels written by
// GroundingBlock ([F1], [F2], ...) are exactly the labels the verifier
// resolves citations against.
package genai
