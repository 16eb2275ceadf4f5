package coordinate

import (
	"errors"
	"testing"

	"parley/internal/domain"
)

func TestRegistryRegisterAndNames(t *testing.T) {
	r := NewRegistry()
	specs := []string{"travel", "research", "finance"}
	for _, n := range specs {
		if err := r.Register(&fakeSpecialist{name: n, keyword: n}); err != nil {
			t.Fatalf("Register(%s): %v", n, err)
		}
	}

	names := r.Names()
	if len(names) != 3 {
		t.Fatalf("len(Names) = %d", len(names))
	}
	for i, want := range specs {
		if names[i] != want {
			t.Errorf("Names[%d] = %q, want %q", i, names[i], want)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeSpecialist{name: "travel"}); err != nil {
		t.Fatal(err)
	}
	err := r.Register(&fakeSpecialist{name: "travel"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("duplicate register err = %v, want ErrInvalidInput", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistrySelectForFirstMatch(t *testing.T) {
	r := NewRegistry()
	a := &fakeSpecialist{name: "a", keyword: "旅行"}
	b := &fakeSpecialist{name: "b", keyword: "旅行"}
	if err := r.Register(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(b); err != nil {
		t.Fatal(err)
	}

	task := domain.NewTask("安排旅行", "", domain.ComplexitySimple)
	got, ok := r.SelectFor(task)
	if !ok || got.Name() != "a" {
		t.Errorf("SelectFor = %v/%v, want first registered", got, ok)
	}
}

func TestRegistrySelectForNoVolunteer(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeSpecialist{name: "travel", keyword: "旅行"}); err != nil {
		t.Fatal(err)
	}

	task := domain.NewTask("写一首诗", "", domain.ComplexitySimple)
	if _, ok := r.SelectFor(task); ok {
		t.Error("expected no specialist to volunteer")
	}
}
