package catalog

import (
	"errors"
	"testing"
)

func TestEmbeddedCatalog(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.All()) != 3 {
		t.Fatalf("products = %d, want 3", len(c.All()))
	}

	p, err := c.Get("1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name != "OVERSIZED DAMN TEE" || p.Price != 749 {
		t.Errorf("product 1 = %+v", p)
	}
	if !p.HasSize("M") || p.HasSize("XXL") {
		t.Errorf("sizes = %v", p.Sizes)
	}

	if _, err := c.Get("404"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Get(404) err = %v", err)
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`[{"id":"1","name":"a"},{"id":"1","name":"b"}]`))
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}
