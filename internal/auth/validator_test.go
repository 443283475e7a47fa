package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ekinsu/auth-service/internal/model"
)

// countingLedger records how often the revocation state is read.
type countingLedger struct {
	Ledger
	reads int
}

func (l *countingLedger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	l.reads++
	return l.Ledger.IsRevoked(ctx, tokenID)
}

func TestValidateSkipsLedgerForBadTokens(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)
	ledger := &countingLedger{Ledger: newFakeLedger(clock.Now)}
	v := NewValidator(codec, ledger)
	ctx := context.Background()

	raw, tok, err := codec.Issue("a@b.com", model.KindAccess)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := ledger.Register(ctx, tok); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	other, err := NewCodec("different-secret", 15*time.Minute, 24*time.Hour, clock.Now)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	forged, _, err := other.Issue("a@b.com", model.KindAccess)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := v.Validate(ctx, "garbage", model.KindAccess); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("malformed err = %v", err)
	}
	if _, err := v.Validate(ctx, forged, model.KindAccess); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("forged err = %v", err)
	}
	clock.Advance(16 * time.Minute)
	if _, err := v.Validate(ctx, raw, model.KindAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired err = %v", err)
	}
	if ledger.reads != 0 {
		t.Fatalf("ledger consulted %d times for unusable tokens, want 0", ledger.reads)
	}
}

func TestValidateChecksKindBeforeLedger(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)
	ledger := &countingLedger{Ledger: newFakeLedger(clock.Now)}
	v := NewValidator(codec, ledger)
	ctx := context.Background()

	raw, tok, err := codec.Issue("a@b.com", model.KindAccess)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := ledger.Register(ctx, tok); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := v.Validate(ctx, raw, model.KindRefresh); !errors.Is(err, ErrWrongTokenKind) {
		t.Fatalf("err = %v, want ErrWrongTokenKind", err)
	}
	if ledger.reads != 0 {
		t.Fatalf("ledger consulted for wrong-kind token")
	}
}

func TestValidateUnknownTokenIsRevoked(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)
	v := NewValidator(codec, newFakeLedger(clock.Now))
	ctx := context.Background()

	// Authentic token that was never registered: fails closed.
	raw, _, err := codec.Issue("a@b.com", model.KindAccess)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := v.Validate(ctx, raw, model.KindAccess); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
}

func TestExtractBearer(t *testing.T) {
	if raw, err := ExtractBearer("Bearer abc.def.ghi"); err != nil || raw != "abc.def.ghi" {
		t.Fatalf("ExtractBearer = (%q, %v)", raw, err)
	}
	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", "bearer abc"} {
		if _, err := ExtractBearer(header); !errors.Is(err, ErrMissingToken) {
			t.Errorf("ExtractBearer(%q) err = %v, want ErrMissingToken", header, err)
		}
	}
}
