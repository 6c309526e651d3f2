package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	logx "clipbot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "clipbot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestInsertAndGetPost(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	now := time.Now().Unix()
	id, err := st.InsertPost(ctx, ScheduledPost{
		VideoURL:    "https://youtube.com/shorts/abc",
		VideoTitle:  "title",
		Platform:    "YouTube",
		ScheduledAt: now + 3600,
		CreatedAt:   now,
		Status:      StatusPending,
	})
	if err != nil {
		t.Fatalf("InsertPost: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	p, err := st.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if p.Status != StatusPending {
		t.Fatalf("Status = %q, want pending", p.Status)
	}
	if p.ScheduledAt != now+3600 {
		t.Fatalf("ScheduledAt = %d, want %d", p.ScheduledAt, now+3600)
	}

	if _, err := st.GetPost(ctx, id+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPost unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 3; i++ {
		id, err := st.InsertPost(ctx, ScheduledPost{VideoURL: "u", VideoTitle: "t", Platform: "p", ScheduledAt: int64(i), CreatedAt: 0})
		if err != nil {
			t.Fatalf("InsertPost #%d: %v", i, err)
		}
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		last = id
	}
}

func TestCountPendingInRange(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	insert := func(at int64, status Status) int64 {
		t.Helper()
		id, err := st.InsertPost(ctx, ScheduledPost{VideoURL: "u", VideoTitle: "t", Platform: "p", ScheduledAt: at, CreatedAt: 0, Status: status})
		if err != nil {
			t.Fatalf("InsertPost: %v", err)
		}
		return id
	}

	insert(100, StatusPending)
	insert(150, StatusPending)
	insert(150, StatusFailed) // excluded: not pending
	insert(200, StatusPending) // excluded: end is exclusive

	n, err := st.CountPendingInRange(ctx, 100, 200)
	if err != nil {
		t.Fatalf("CountPendingInRange: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	total, err := st.CountPending(ctx)
	if err != nil {
		t.Fatalf("CountPending: %v", err)
	}
	if total != 3 {
		t.Fatalf("total pending = %d, want 3", total)
	}
}

func TestListPendingInRangeOrdered(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	for _, at := range []int64{300, 100, 200} {
		if _, err := st.InsertPost(ctx, ScheduledPost{VideoURL: "u", VideoTitle: "t", Platform: "p", ScheduledAt: at, CreatedAt: 0}); err != nil {
			t.Fatalf("InsertPost: %v", err)
		}
	}

	got, err := st.ListPendingInRange(ctx, 0, 1000)
	if err != nil {
		t.Fatalf("ListPendingInRange: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].ScheduledAt > got[i].ScheduledAt {
			t.Fatalf("rows not ordered by scheduled_at: %d before %d", got[i-1].ScheduledAt, got[i].ScheduledAt)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.InsertPost(ctx, ScheduledPost{VideoURL: "u", VideoTitle: "t", Platform: "p", ScheduledAt: 100, CreatedAt: 0})
	if err != nil {
		t.Fatalf("InsertPost: %v", err)
	}

	if err := st.UpdateStatus(ctx, id, StatusPosted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	// Second call is a harmless overwrite.
	if err := st.UpdateStatus(ctx, id, StatusPosted); err != nil {
		t.Fatalf("UpdateStatus (repeat): %v", err)
	}

	p, err := st.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if p.Status != StatusPosted {
		t.Fatalf("Status = %q, want posted", p.Status)
	}

	if err := st.UpdateStatus(ctx, id+999, StatusFailed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateStatus unknown id: err = %v, want ErrNotFound", err)
	}
}
