// Package verify validates generated narrative content against the exact
// finding set that grounded it, and sanitizes it for safe display.
//
// Generated artifacts cite their evidence with inline markers such as [F1]
// that point back into the grounding block the generator was shown. The
// Verifier enforces that every marker resolves to a supplied finding, that
// quiz answer indices are valid and zero-based, that no code block is left
// empty, and that model-injected inline styling is removed. Content that
// cannot be grounded is Rejected and never released:
//
//	v := verify.New(verify.Policy{})
//	out := v.Verify(content, grounding)
//	if out.Status == verify.StatusRejected {
//	    // handle ungrounded content
//	}
//
// Verifying already-clean content returns it byte for byte unchanged, so a
// pass over previously verified content is a no-op.
package verify
