package regstore

import "testing"

type fakeFunc struct {
	Name string `json:"name"`
}

func TestPutGetDeleteFunction(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	key := "projects/p/locations/us-central1/functions/hello"
	if err := s.PutFunction(key, fakeFunc{Name: key}); err != nil {
		t.Fatalf("PutFunction: %v", err)
	}

	var got fakeFunc
	if err := s.GetFunction(key, &got); err != nil {
		t.Fatalf("GetFunction: %v", err)
	}
	if got.Name != key {
		t.Fatalf("got.Name = %q, want %q", got.Name, key)
	}

	if err := s.DeleteFunction(key); err != nil {
		t.Fatalf("DeleteFunction: %v", err)
	}
	if err := s.GetFunction(key, &got); err != ErrNotFound {
		t.Fatalf("GetFunction after delete = %v, want ErrNotFound", err)
	}
}

func TestListFunctions(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		if err := s.PutFunction(k, fakeFunc{Name: k}); err != nil {
			t.Fatalf("PutFunction(%s): %v", k, err)
		}
	}

	seen := map[string]bool{}
	err = s.ListFunctions(func(key string, raw []byte) error {
		seen[key] = true
		return nil
	})
	if err != nil {
		t.Fatalf("ListFunctions: %v", err)
	}
	for _, k := range keys {
		if !seen[k] {
			t.Errorf("ListFunctions did not visit key %q", k)
		}
	}
}

func TestOperationRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	type op struct {
		Done bool `json:"done"`
	}
	if err := s.PutOperation("operations/abc", op{Done: true}); err != nil {
		t.Fatalf("PutOperation: %v", err)
	}
	var got op
	if err := s.GetOperation("operations/abc", &got); err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if !got.Done {
		t.Fatalf("got.Done = false, want true")
	}
}
