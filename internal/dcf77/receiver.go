package dcf77

import "time"

// Receiver runs classification, accumulation and decoding on a stream of cycles.
type Receiver struct {
	acc           *Accumulator
	synced        bool
	startTime     time.Time
	counts        Counts
	lastHeartbeat time.Time
	lastValid     *Minute
}

// NewReceiver creates a receiver. The startTime is used for uptime in heartbeats.
func NewReceiver(startTime time.Time) *Receiver {
	return &Receiver{
		acc:           NewAccumulator(),
		startTime:     startTime,
		lastHeartbeat: startTime,
		counts:        Counts{Faults: make(map[Fault]int)},
	}
}

// Process takes one measured second and returns a decoded minute when the
// cycle closed a frame. The frame closed by the first minute mark after
// startup is not aligned to the minute and is dropped.
func (r *Receiver) Process(c Cycle, now time.Time) (*Minute, BitEvent) {
	r.counts.Cycles++
	ev := Classify(c)

	var out *Minute
	if ev == EventMinuteMark {
		frame, _ := r.acc.Push(EventMinuteMark)
		if !frame.Aligned {
			r.counts.Dropped++
		} else {
			fields := Decode(frame)
			r.record(fields)
			out = &Minute{Received: now, Fields: fields}
			if fields.Valid() {
				m := *out
				r.lastValid = &m
			}
		}
		r.synced = true
		// The pulse after the gap is second 0 of the new frame.
		r.acc.Push(ClassifyPulse(c.Pulse))
		return out, ev
	}

	r.acc.Push(ev)
	return nil, ev
}

func (r *Receiver) record(fields TimeFields) {
	r.counts.Frames++
	if fields.Valid() {
		r.counts.ValidFrames++
	}
	for _, nf := range fields.Fields() {
		if nf.Fault != FaultNone {
			r.counts.Faults[nf.Fault]++
		}
	}
}

// IsSynced returns whether a minute mark has been seen.
func (r *Receiver) IsSynced() bool {
	return r.synced
}

// Second returns the second of minute the next pulse belongs to.
func (r *Receiver) Second() int {
	return r.acc.Index()
}

// LastValid returns the most recent minute whose fields were all valid, or nil.
func (r *Receiver) LastValid() *Minute {
	return r.lastValid
}

// CountsSnapshot returns a copy of the counters.
func (r *Receiver) CountsSnapshot() Counts {
	c := r.counts
	c.Faults = make(map[Fault]int, len(r.counts.Faults))
	for k, v := range r.counts.Faults {
		c.Faults[k] = v
	}
	return c
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval is <= 0 (disabled)
// or has not yet elapsed.
func (r *Receiver) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(r.lastHeartbeat) < interval {
		return nil
	}
	r.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(r.startTime),
		Counts:    r.CountsSnapshot(),
	}
}
