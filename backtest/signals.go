package backtest

import "time"

// Signal marks a position transition: a buy when the position flips 0→1
// versus the prior day, a sell on 1→0.
type Signal struct {
	Date time.Time `json:"date"`
	// Asset is the strategy curve value on the signal day, for chart
	// marker placement.
	Asset float64 `json:"asset"`
	Buy   bool    `json:"buy"`
}

// Signals extracts buy/sell events from a record sequence. The first day
// has no prior position and is never a signal.
func Signals(records []Record) []Signal {
	var out []Signal
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1].Position, records[i].Position
		if prev == cur {
			continue
		}
		out = append(out, Signal{
			Date:  records[i].Date,
			Asset: records[i].Strategy,
			Buy:   cur == 1,
		})
	}
	return out
}
