package kv

import "testing"

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	if _, ok, err := s.Get("missing"); ok || err != nil {
		t.Fatalf("Get(missing) = ok %v, err %v, want false, nil", ok, err)
	}

	if err := s.Set("demoMode", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := s.Get("demoMode")
	if err != nil || !ok || v != "true" {
		t.Errorf("Get() = %q, %v, %v, want true, true, nil", v, ok, err)
	}

	if err := s.Delete("demoMode"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := s.Get("demoMode"); ok {
		t.Error("Get() after Delete() still present")
	}
	if err := s.Delete("demoMode"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}
