// Package scheduler allocates collision-free publish slots for posts.
//
// Each day holds a bounded number of slots spread across the 08:00-22:00
// publishing window. Slot times are deterministic per (day, slot index) so
// repeated computation never double-books, yet jittered so the posting
// cadence does not look mechanical.
package scheduler
