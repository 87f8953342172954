// Package pipeline executes linear chains of typed stages and supports
// pausing a run mid-pipeline pending external approval.
//
// A Pipeline is an ordered list of stage calls (name + args) resolved
// against a Registry at run time. Each Stage consumes a lazy Stream of
// items and produces a new Stream; the Engine feeds stage i's output to
// stage i+1 without materializing between stages unless a stage itself
// buffers (aggregations and gates do, item-by-item transforms don't).
//
// Halting is an expected outcome, not an error. A gate stage returns a
// non-nil Halt in its StageResult; the Engine short-circuits (later
// stages never run), builds a HaltDescriptor, and encodes it together
// with the remaining stage calls into a continuation token. The caller
// ships the token wherever the approval decision is made and later calls
// Resume with it:
//
//	res, err := eng.Run(ctx, pl, items, ec, nil)
//	if res.Halted {
//	    // persist or transmit res.Token; later:
//	    res, err = eng.Resume(ctx, res.Token, true, ec, nil)
//	}
//
// Resume with approved=false returns an immediate cancelled result and
// executes nothing. Tokens always carry absolute stage indices, so a
// caller holding only the latest token of a chain of halts can still tell
// which original stage execution resumes at.
//
// Optional pre/post hooks (Observer) surround the pipeline and each stage
// for logging and run tracking; LogObserver emits them through log/slog.
// Pass RunOptions{Observer: obs} to Run or Resume. Run IDs are generated
// when not supplied.
package pipeline
