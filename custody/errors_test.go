package custody

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ErrUserCancelled, KindUserCancelled},
		{fmt.Errorf("%w: wrapped", ErrNotFound), KindNotFound},
		{fmt.Errorf("%w: %v", ErrAuthenticationMismatch, ErrDecryptionFailed), KindAuthenticationMismatch},
		{errors.New("something else"), KindInternal},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestCustodyErrorUnwrap(t *testing.T) {
	e := &CustodyError{Op: "load", Kind: KindNotFound, Err: ErrNotFound}
	if !errors.Is(e, ErrNotFound) {
		t.Fatal("CustodyError does not unwrap to its sentinel")
	}
}

func TestFailureResult(t *testing.T) {
	res := failure("setup", fmt.Errorf("%w: boom", ErrStorageUnavailable))
	if res.Success {
		t.Fatal("failure result marked success")
	}
	if res.Kind != KindStorageUnavailable {
		t.Fatalf("kind = %s", res.Kind)
	}
	if res.Message == "" {
		t.Fatal("failure result missing message")
	}
}
