package tetra

// Counter ranges of the TDMA hierarchy.
const (
	TimeslotMax   = 4
	FrameMax      = 18
	MultiframeMax = 60

	// Frame 18 carries control signaling only, never traffic.
	ControlFrame = 18
)

// NetworkTime tracks the running timeslot/frame/multiframe counters of one
// channel. It only moves through Advance (one timeslot per burst) or an
// explicit synchronize; it never runs backward otherwise.
type NetworkTime struct {
	Timeslot   int // 1..4
	Frame      int // 1..18
	Multiframe int // 1..60

	// Direct mode: whether this channel follows a timing master or is one.
	Master bool

	synced bool
}

// NewNetworkTime returns counters at the start of the hyperframe.
func NewNetworkTime() NetworkTime {
	return NetworkTime{Timeslot: 1, Frame: 1, Multiframe: 1}
}

// Synced reports whether an explicit synchronize has happened.
func (t NetworkTime) Synced() bool {
	return t.synced
}

// Advance moves time forward by one timeslot, carrying into frame and
// multiframe counters.
func (t *NetworkTime) Advance() {
	t.Timeslot++
	if t.Timeslot <= TimeslotMax {
		return
	}
	t.Timeslot = 1

	t.Frame++
	if t.Frame <= FrameMax {
		return
	}
	t.Frame = 1

	t.Multiframe++
	if t.Multiframe > MultiframeMax {
		t.Multiframe = 1
	}
}

// Sync re-synchronizes all counters from broadcast fields, clamping each
// into its valid range.
func (t *NetworkTime) Sync(timeslot, frame, multiframe int) {
	t.Timeslot = clamp(timeslot, 1, TimeslotMax)
	t.Frame = clamp(frame, 1, FrameMax)
	t.Multiframe = clamp(multiframe, 1, MultiframeMax)
	t.synced = true
}

// SyncDirect synchronizes frame counters for direct mode and records
// whether this end is the timing master.
func (t *NetworkTime) SyncDirect(frame, multiframe int, master bool) {
	t.Frame = clamp(frame, 1, FrameMax)
	t.Multiframe = clamp(multiframe, 1, MultiframeMax)
	t.Master = master
	t.synced = true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
