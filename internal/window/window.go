package window

import "fmt"

// Window is an inclusive block range [From, To].
type Window struct {
	From uint64
	To   uint64
}

// Size returns the number of blocks in the window.
func (w Window) Size() uint64 {
	return w.To - w.From + 1
}

func (w Window) String() string {
	return fmt.Sprintf("[%d, %d]", w.From, w.To)
}

// Plan returns the next window to scan after lastScanned, bounded by maxWindow
// blocks and by latestOnChain. ok is false when the cursor has caught up.
func Plan(lastScanned, latestOnChain, maxWindow uint64) (Window, bool) {
	if maxWindow == 0 || lastScanned >= latestOnChain {
		return Window{}, false
	}

	to := latestOnChain
	if maxWindow <= latestOnChain-lastScanned {
		to = lastScanned + maxWindow
	}

	return Window{From: lastScanned + 1, To: to}, true
}
