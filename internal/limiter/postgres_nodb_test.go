package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/************ fake pgx ************/
type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakePool struct {
	qrErr         error
	qrHits        int
	qrWindowStart time.Time

	lastSQL string
}

func (f *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL = sql
	return pgconn.CommandTag{}, nil
}

func (f *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	return fakeRow{scan: func(dest ...any) error {
		if f.qrErr != nil {
			return f.qrErr
		}
		*(dest[0].(*int)) = f.qrHits
		*(dest[1].(*time.Time)) = f.qrWindowStart
		return nil
	}}
}

func TestTake_UnderCap_Allows(t *testing.T) {
	fp := &fakePool{qrHits: 3, qrWindowStart: time.Now()}
	l := NewPGWithQuerier(fp, time.Minute, 5)

	ok, retry, err := l.Take(context.Background(), "alice", "import")
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if !ok || retry != 0 {
		t.Fatalf("ok=%v retry=%v, want allowed", ok, retry)
	}
}

func TestTake_AtCap_StillAllows(t *testing.T) {
	fp := &fakePool{qrHits: 5, qrWindowStart: time.Now()}
	l := NewPGWithQuerier(fp, time.Minute, 5)

	ok, _, err := l.Take(context.Background(), "alice", "import")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v, want allowed at cap", ok, err)
	}
}

func TestTake_OverCap_Blocks(t *testing.T) {
	start := time.Now().Add(-10 * time.Second)
	fp := &fakePool{qrHits: 6, qrWindowStart: start}
	l := NewPGWithQuerier(fp, time.Minute, 5)

	ok, retry, err := l.Take(context.Background(), "alice", "restore")
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if ok {
		t.Fatalf("want blocked over cap")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("retry=%v, want within the remaining window", retry)
	}
}

func TestTake_StaleWindow_RetryClampedToZero(t *testing.T) {
	start := time.Now().Add(-2 * time.Minute)
	fp := &fakePool{qrHits: 6, qrWindowStart: start}
	l := NewPGWithQuerier(fp, time.Minute, 5)

	ok, retry, err := l.Take(context.Background(), "alice", "restore")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want blocked", ok, err)
	}
	if retry != 0 {
		t.Fatalf("retry=%v, want 0 for an elapsed window", retry)
	}
}

func TestTake_QueryError(t *testing.T) {
	fp := &fakePool{qrErr: errors.New("boom")}
	l := NewPGWithQuerier(fp, time.Minute, 5)

	if _, _, err := l.Take(context.Background(), "alice", "import"); err == nil {
		t.Fatalf("want error from querier")
	}
}
