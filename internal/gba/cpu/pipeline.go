package cpu

// pipeline models the externally observable effect of the ARM7TDMI's
// 3-stage fetch/decode/execute overlap (spec.md §3): while an
// instruction executes, the next one is already decoded and the one
// after that is being fetched, so R15 always reads as the address of
// the executing instruction plus two instruction widths (+8 in ARM
// state, +4 in THUMB state). A taken branch discards both in-flight
// slots: the next two fetch slots must be refilled before execution
// resumes, which costs an extra 2S+1N bus cycles (charged explicitly
// at the branch site rather than modeled as literal queued fetches).
type pipeline struct {
	flushed bool
}

func (p *pipeline) flush() { p.flushed = true }
