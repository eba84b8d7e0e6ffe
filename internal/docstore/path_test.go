package docstore

import (
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "users/u1", want: "users/u1"},
		{in: "/users/u1/cart/", want: "users/u1/cart"},
		{in: "users/_admin/orders", want: "users/_admin/orders"},
		{in: "", wantErr: true},
		{in: "users//cart", wantErr: true},
		{in: "users/a#b", wantErr: true},
		{in: "users/[0]", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Clean(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Clean(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAncestors(t *testing.T) {
	got := ancestors("users/u1/orders/k1")
	want := []string{"users", "users/u1", "users/u1/orders"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
	if len(ancestors("users")) != 0 {
		t.Error("top-level path has ancestors")
	}
}

func TestRelated(t *testing.T) {
	tests := []struct {
		watched, changed string
		want             bool
	}{
		{"users/u1/cart", "users/u1/cart", true},
		{"users/u1/cart", "users/u1", true},
		{"users/u1/cart", "users/u1/cart/0", true},
		{"users/u1/cart", "users/u1/orders", false},
		{"users/u1", "users/u10", false},
	}
	for _, tt := range tests {
		if got := related(tt.watched, tt.changed); got != tt.want {
			t.Errorf("related(%q, %q) = %v, want %v", tt.watched, tt.changed, got, tt.want)
		}
	}
}

func TestLikePrefixEscapes(t *testing.T) {
	if got := likePrefix("users/_admin"); got != "users/!_admin/%" {
		t.Errorf("likePrefix = %q", got)
	}
}
