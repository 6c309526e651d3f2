package scheduler

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"time"
)

const (
	// Publishing window: slots are spread across [08:00, 22:00).
	windowStartHour = 8
	windowEndHour   = 22

	// Slots never start later than 21:54 so the post lands inside the window.
	maxSlotHour = 21.9

	// Jitter added on top of the slot's nominal hour, in hours (0..30min).
	jitterHours = 0.5
)

// slotMinutes assigns each slot index a fixed minute mark.
// None of them is :00 or :30, so posts never land on a round minute.
var slotMinutes = [...]int{17, 42, 13, 51, 24, 38, 56}

// slotTime maps (day, slot index) to the wall-clock instant for that slot.
//
// The mapping is a pure function: the same (day, slot, limit) triple always
// yields the same instant. day must be a local midnight.
func slotTime(day time.Time, slot, limit int) time.Time {
	interval := float64(windowEndHour-windowStartHour) / float64(limit)
	h := float64(windowStartHour) + float64(slot)*interval + slotJitter(day, slot)
	h = math.Min(math.Max(h, float64(windowStartHour)), maxSlotHour)

	hour := int(h)
	minute := slotMinutes[slot%len(slotMinutes)]
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

// slotJitter derives a deterministic offset in [0, jitterHours) from
// (year, month, day, slot). A stable hash keyed on the calendar date keeps
// the schedule reproducible without depending on any PRNG's seeding behavior.
func slotJitter(day time.Time, slot int) float64 {
	h := fnv.New64a()
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(day.Year()))
	binary.LittleEndian.PutUint32(buf[4:], uint32(day.Month()))
	binary.LittleEndian.PutUint32(buf[8:], uint32(day.Day()))
	binary.LittleEndian.PutUint32(buf[12:], uint32(slot))
	_, _ = h.Write(buf[:])

	frac := float64(h.Sum64()%1000) / 1000.0
	return frac * jitterHours
}

// midnight truncates t to 00:00 of the same calendar day, keeping the location.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
