package stream

// Flush is an accumulated message ready to persist.
type Flush struct {
	Role    string
	Content string
}

// Accumulator merges streamed message fragments into whole messages. It is
// not safe for concurrent use; each stream owns one.
type Accumulator struct {
	role    string
	content string
	active  bool
}

// Observe folds in one message_chunk fragment and returns any messages that
// became complete. A role change flushes the previous buffer, if it holds any
// content, before the new fragment goes in; a fragment carrying a finish
// reason completes the buffer
// and flushes it too, so a single fragment can yield two flushes.
func (a *Accumulator) Observe(role, content string, complete bool) []Flush {
	var out []Flush
	if a.active && a.role != role {
		if a.content != "" {
			out = append(out, Flush{Role: a.role, Content: a.content})
		}
		a.reset()
	}
	if !a.active {
		a.role = role
		a.active = true
	}
	a.content += content
	if complete {
		if a.content != "" {
			out = append(out, Flush{Role: a.role, Content: a.content})
		}
		a.reset()
	}
	return out
}

func (a *Accumulator) reset() {
	a.role = ""
	a.content = ""
	a.active = false
}
