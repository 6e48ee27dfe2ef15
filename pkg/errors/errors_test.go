package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesChain(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := Wrap(CodeUnavailable, cause, "fetch products")

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive errors.Is")
	}
	if err.Code() != CodeUnavailable {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if err.Error() != "REMOTE_UNAVAILABLE: fetch products" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := New(CodeNotFound, "missing row")
	outer := fmt.Errorf("loading cart: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through fmt wrapping")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if !HasCode(outer, CodeNotFound) {
		t.Fatal("HasCode should match through the chain")
	}
	if HasCode(outer, CodeConflict) {
		t.Fatal("HasCode matched the wrong code")
	}
}

func TestStoreErrorCarriesCollectionAndOp(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: timeout")
	err := Store("user_carts", "upsert", cause)

	wrapped := Wrap(CodeUnavailable, err, "save cart")
	se := AsStore(wrapped)
	if se == nil {
		t.Fatal("expected StoreError in chain")
	}
	if se.Collection != "user_carts" || se.Op != "upsert" {
		t.Fatalf("unexpected store error %+v", se)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("cause should unwrap through StoreError")
	}
}

func TestDumpIncludesStoreContext(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeDependency, Store("orders", "insert", errors.New("boom")), "create order")
	dump := Dump(err)

	if dump.Code != CodeDependency {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if dump.Collection != "orders" || dump.Op != "insert" {
		t.Fatalf("unexpected collection/op %s/%s", dump.Collection, dump.Op)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected chain entries, got %v", dump.Chain)
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("BOGUS"))
	if !meta.Retryable {
		t.Fatal("unknown codes should fall back to internal metadata")
	}
}
