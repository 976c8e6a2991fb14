package limiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubRow struct{ scan func(dest ...any) error }

func (r stubRow) Scan(dest ...any) error { return r.scan(dest...) }

type stubPool struct {
	rowErr       error
	blockedUntil *time.Time
	updatedAt    time.Time
	failCount    int

	lastExecSQL string
	execErr     error
}

func (p *stubPool) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	p.lastExecSQL = sql
	return pgconn.CommandTag{}, p.execErr
}

func (p *stubPool) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "SELECT blocked_until"):
		return stubRow{scan: func(dest ...any) error {
			if p.rowErr != nil {
				return p.rowErr
			}
			if p.blockedUntil != nil {
				*(dest[0].(*time.Time)) = *p.blockedUntil
			} else {
				*(dest[0].(*time.Time)) = time.Time{}
			}
			*(dest[1].(*time.Time)) = p.updatedAt
			return nil
		}}
	case strings.Contains(sql, "RETURNING fail_count"):
		return stubRow{scan: func(dest ...any) error {
			if p.rowErr != nil {
				return p.rowErr
			}
			*(dest[0].(*int)) = p.failCount
			return nil
		}}
	default:
		return stubRow{scan: func(...any) error { return errors.New("unexpected query") }}
	}
}

func TestPGAllow_NoRowAllows(t *testing.T) {
	sp := &stubPool{rowErr: pgx.ErrNoRows}
	l := NewPGWithQuerier(sp, 15*time.Minute, 5, 15*time.Minute)

	ok, retry, err := l.Allow(context.Background(), "alice", []byte("h"))
	if err != nil || !ok || retry != 0 {
		t.Fatalf("Allow: ok=%v retry=%v err=%v", ok, retry, err)
	}
}

func TestPGAllow_ActiveBlockDenies(t *testing.T) {
	until := time.Now().Add(10 * time.Minute)
	sp := &stubPool{blockedUntil: &until, updatedAt: time.Now()}
	l := NewPGWithQuerier(sp, 15*time.Minute, 5, 15*time.Minute)

	ok, retry, err := l.Allow(context.Background(), "alice", []byte("h"))
	if err != nil || ok || retry <= 0 {
		t.Fatalf("Allow while blocked: ok=%v retry=%v err=%v", ok, retry, err)
	}
}

func TestPGAllow_ExpiredBlockAllows(t *testing.T) {
	until := time.Now().Add(-time.Minute)
	sp := &stubPool{blockedUntil: &until, updatedAt: time.Now()}
	l := NewPGWithQuerier(sp, 15*time.Minute, 5, 15*time.Minute)

	ok, retry, err := l.Allow(context.Background(), "alice", []byte("h"))
	if err != nil || !ok || retry != 0 {
		t.Fatalf("Allow after expiry: ok=%v retry=%v err=%v", ok, retry, err)
	}
}

func TestPGAllow_QueryErrorPropagates(t *testing.T) {
	sp := &stubPool{rowErr: errors.New("db down")}
	l := NewPGWithQuerier(sp, 15*time.Minute, 5, 15*time.Minute)

	if ok, _, err := l.Allow(context.Background(), "alice", []byte("h")); err == nil || ok {
		t.Fatalf("want error, got ok=%v err=%v", ok, err)
	}
}

func TestPGSuccess_ResetsRow(t *testing.T) {
	sp := &stubPool{}
	l := NewPGWithQuerier(sp, 15*time.Minute, 5, 15*time.Minute)

	if err := l.Success(context.Background(), "alice", []byte("h")); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if !strings.Contains(sp.lastExecSQL, "INSERT INTO login_attempts") {
		t.Fatalf("unexpected exec: %s", sp.lastExecSQL)
	}
}

func TestPGFailure_BelowThresholdNoBlock(t *testing.T) {
	sp := &stubPool{failCount: 2}
	l := NewPGWithQuerier(sp, 5*time.Minute, 5, 15*time.Minute)

	blocked, retry, err := l.Failure(context.Background(), "alice", []byte("h"))
	if err != nil || blocked || retry != 0 {
		t.Fatalf("Failure: blocked=%v retry=%v err=%v", blocked, retry, err)
	}
	if sp.lastExecSQL != "" {
		t.Fatalf("no block update expected, exec=%s", sp.lastExecSQL)
	}
}

func TestPGFailure_ThresholdSetsBlock(t *testing.T) {
	sp := &stubPool{failCount: 5}
	l := NewPGWithQuerier(sp, 5*time.Minute, 5, 10*time.Minute)

	blocked, retry, err := l.Failure(context.Background(), "alice", []byte("h"))
	if err != nil || !blocked || retry != 10*time.Minute {
		t.Fatalf("Failure at threshold: blocked=%v retry=%v err=%v", blocked, retry, err)
	}
	if !strings.Contains(sp.lastExecSQL, "UPDATE login_attempts SET blocked_until") {
		t.Fatalf("must set blocked_until, exec=%s", sp.lastExecSQL)
	}
}

func TestPGFailure_QueryErrorPropagates(t *testing.T) {
	sp := &stubPool{rowErr: errors.New("db down")}
	l := NewPGWithQuerier(sp, 5*time.Minute, 5, 10*time.Minute)

	if _, _, err := l.Failure(context.Background(), "alice", []byte("h")); err == nil {
		t.Fatalf("want error from fail_count query")
	}
}

func TestHashIP_StablePerAddress(t *testing.T) {
	a := HashIP("192.0.2.1:4711")
	b := HashIP("192.0.2.1:4711")
	c := HashIP("198.51.100.9:80")
	if string(a) != string(b) || string(a) == string(c) || len(a) != 32 {
		t.Fatalf("hash mismatch, len=%d", len(a))
	}
}
