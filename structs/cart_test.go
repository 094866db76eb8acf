package structs

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func item(stock int, price int64) CartItem {
	return CartItem{ProductID: uuid.New(), Name: "Bleu Nuit", Price: price, Stock: stock}
}

func TestCartAdd(t *testing.T) {
	tests := []struct {
		name    string
		stock   int
		adds    []int
		want    int
		wantErr error
	}{
		{name: "single add", stock: 10, adds: []int{2}, want: 2},
		{name: "merges lines", stock: 10, adds: []int{2, 3}, want: 5},
		{name: "capped at stock", stock: 4, adds: []int{3, 3}, want: 4},
		{name: "first add capped", stock: 2, adds: []int{9}, want: 2},
		{name: "zero quantity", stock: 5, adds: []int{0}, wantErr: ErrInvalidQuantity},
		{name: "out of stock", stock: 0, adds: []int{1}, wantErr: ErrOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := NewCart(uuid.New())
			p := item(tt.stock, 1250)

			var err error
			for _, qty := range tt.adds {
				if err = cart.Add(p, qty); err != nil {
					break
				}
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Add() error = %v, want %v", err, tt.wantErr)
				}
				if !cart.IsEmpty() {
					t.Fatalf("cart should stay empty after a failed add, got %d lines", len(cart.Items))
				}
				return
			}
			if err != nil {
				t.Fatalf("Add() unexpected error: %v", err)
			}
			if len(cart.Items) != 1 {
				t.Fatalf("expected a single line, got %d", len(cart.Items))
			}
			if got := cart.Items[0].Quantity; got != tt.want {
				t.Fatalf("quantity = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCartIncrementCapsAtStock(t *testing.T) {
	cart := NewCart(uuid.New())
	p := item(2, 500)
	if err := cart.Add(p, 1); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		if err := cart.Increment(p.ProductID); err != nil {
			t.Fatalf("Increment() error: %v", err)
		}
	}

	if got := cart.Items[0].Quantity; got != 2 {
		t.Fatalf("quantity = %d, want 2 (stock)", got)
	}
}

func TestCartDecrementStopsAtOne(t *testing.T) {
	cart := NewCart(uuid.New())
	p := item(10, 500)
	if err := cart.Add(p, 3); err != nil {
		t.Fatal(err)
	}

	for range 5 {
		if err := cart.Decrement(p.ProductID); err != nil {
			t.Fatalf("Decrement() error: %v", err)
		}
	}

	if len(cart.Items) != 1 {
		t.Fatalf("decrement must never remove the line, got %d lines", len(cart.Items))
	}
	if got := cart.Items[0].Quantity; got != 1 {
		t.Fatalf("quantity = %d, want 1", got)
	}
}

func TestCartUnknownProduct(t *testing.T) {
	cart := NewCart(uuid.New())
	missing := uuid.New()

	for name, op := range map[string]func(uuid.UUID) error{
		"increment": cart.Increment,
		"decrement": cart.Decrement,
		"remove":    cart.Remove,
	} {
		if err := op(missing); !errors.Is(err, ErrItemNotInCart) {
			t.Errorf("%s: error = %v, want ErrItemNotInCart", name, err)
		}
	}
}

func TestCartRemoveAndClear(t *testing.T) {
	cart := NewCart(uuid.New())
	a, b := item(5, 100), item(5, 200)
	_ = cart.Add(a, 1)
	_ = cart.Add(b, 2)

	if err := cart.Remove(a.ProductID); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != b.ProductID {
		t.Fatalf("unexpected items after remove: %+v", cart.Items)
	}

	cart.Clear()
	if !cart.IsEmpty() || cart.Subtotal() != 0 {
		t.Fatalf("cart not empty after Clear: %+v", cart.Items)
	}
}

func TestCartSubtotalAndCount(t *testing.T) {
	cart := NewCart(uuid.New())
	_ = cart.Add(item(10, 4999), 2)
	_ = cart.Add(item(10, 1500), 3)

	if got := cart.Subtotal(); got != 2*4999+3*1500 {
		t.Fatalf("Subtotal() = %d, want %d", got, 2*4999+3*1500)
	}
	if got := cart.ItemCount(); got != 5 {
		t.Fatalf("ItemCount() = %d, want 5", got)
	}
}

func TestCartReconcile(t *testing.T) {
	cart := NewCart(uuid.New())
	kept, shrunk, gone, soldOut := item(10, 100), item(10, 100), item(10, 100), item(10, 100)
	_ = cart.Add(kept, 2)
	_ = cart.Add(shrunk, 8)
	_ = cart.Add(gone, 1)
	_ = cart.Add(soldOut, 1)

	catalog := map[uuid.UUID]CartItem{
		kept.ProductID:    {ProductID: kept.ProductID, Name: kept.Name, Price: 120, Stock: 10},
		shrunk.ProductID:  {ProductID: shrunk.ProductID, Name: shrunk.Name, Price: 100, Stock: 3},
		soldOut.ProductID: {ProductID: soldOut.ProductID, Name: soldOut.Name, Price: 100, Stock: 0},
	}

	changed := cart.Reconcile(func(id uuid.UUID) (CartItem, bool) {
		p, ok := catalog[id]
		return p, ok
	})
	if !changed {
		t.Fatal("Reconcile() reported no change")
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 lines after reconcile, got %d", len(cart.Items))
	}
	if cart.Items[0].Price != 120 || cart.Items[0].Quantity != 2 {
		t.Errorf("price not refreshed: %+v", cart.Items[0])
	}
	if cart.Items[1].Quantity != 3 {
		t.Errorf("quantity not clamped to stock: %+v", cart.Items[1])
	}

	if cart.Reconcile(func(id uuid.UUID) (CartItem, bool) {
		p, ok := catalog[id]
		return p, ok
	}) {
		t.Error("second Reconcile() should be a no-op")
	}
}
