package defaults

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"storefront/backend/internal/platform/errs"
)

// rec is a minimal record: owner + scope partition, "both" conflicts with any scope of the same owner.
type rec struct {
	id, owner, scope string
	def              bool
}

var recPolicy = Policy[rec]{
	ID:         func(r rec) string { return r.id },
	IsDefault:  func(r rec) bool { return r.def },
	SetDefault: func(r rec, v bool) rec { r.def = v; return r },
	Conflicts: func(a, b rec) bool {
		return a.owner == b.owner && (a.scope == b.scope || a.scope == "both" || b.scope == "both")
	},
}

func defaultsOf(s *MemoryStore[rec]) []string {
	var out []string
	for _, r := range s.List(func(r rec) bool { return r.def }) {
		out = append(out, r.id)
	}
	return out
}

func setDefault(r rec) (rec, error) { r.def = true; return r, nil }

func TestInsert_SecondDefaultClearsFirst(t *testing.T) {
	s := NewMemoryStore(recPolicy)
	s.Insert(rec{id: "a", owner: "u1", scope: "shipping", def: true})
	cleared := s.Insert(rec{id: "b", owner: "u1", scope: "shipping", def: true})

	if len(cleared) != 1 || cleared[0] != "a" {
		t.Errorf("cleared = %v, want [a]", cleared)
	}
	if got := defaultsOf(s); len(got) != 1 || got[0] != "b" {
		t.Errorf("defaults = %v, want [b]", got)
	}
	if a, _ := s.Get("a"); a.def {
		t.Error("a should no longer be default")
	}
}

func TestInsert_NewestFirst(t *testing.T) {
	s := NewMemoryStore(recPolicy)
	for _, id := range []string{"a", "b", "c"} {
		s.Insert(rec{id: id, owner: "u1", scope: "billing"})
	}
	list := s.List(nil)
	if len(list) != 3 || list[0].id != "c" || list[2].id != "a" {
		t.Errorf("order = %v, want c,b,a", list)
	}
}

func TestInsert_OtherPartitionsUntouched(t *testing.T) {
	s := NewMemoryStore(recPolicy)
	s.Insert(rec{id: "a", owner: "u1", scope: "shipping", def: true})
	s.Insert(rec{id: "b", owner: "u2", scope: "shipping", def: true})
	s.Insert(rec{id: "c", owner: "u1", scope: "billing", def: true})

	if got := defaultsOf(s); len(got) != 3 {
		t.Errorf("defaults = %v, want all three", got)
	}
}

func TestWildcardScope(t *testing.T) {
	t.Run("both clears shipping", func(t *testing.T) {
		s := NewMemoryStore(recPolicy)
		s.Insert(rec{id: "a", owner: "u1", scope: "shipping", def: true})
		s.Insert(rec{id: "b", owner: "u1", scope: "both"})
		if _, _, err := s.Update("b", setDefault); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got := defaultsOf(s); len(got) != 1 || got[0] != "b" {
			t.Errorf("defaults = %v, want [b]", got)
		}
	})
	t.Run("billing clears both", func(t *testing.T) {
		s := NewMemoryStore(recPolicy)
		s.Insert(rec{id: "a", owner: "u1", scope: "both", def: true})
		s.Insert(rec{id: "b", owner: "u1", scope: "billing", def: true})
		if got := defaultsOf(s); len(got) != 1 || got[0] != "b" {
			t.Errorf("defaults = %v, want [b]", got)
		}
	})
}

func TestUpdate_PartitionFromPatchedRecord(t *testing.T) {
	s := NewMemoryStore(recPolicy)
	s.Insert(rec{id: "a", owner: "u1", scope: "billing", def: true})
	s.Insert(rec{id: "b", owner: "u1", scope: "shipping", def: true})

	// b moves into a's partition while staying default.
	_, cleared, err := s.Update("b", func(r rec) (rec, error) { r.scope = "billing"; return r, nil })
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(cleared) != 1 || cleared[0] != "a" {
		t.Errorf("cleared = %v, want [a]", cleared)
	}
	if v := recPolicy.Violations(s.List(nil)); len(v) != 0 {
		t.Errorf("violations = %v", v)
	}
}

func TestUpdate_TargetNotCleared(t *testing.T) {
	s := NewMemoryStore(recPolicy)
	s.Insert(rec{id: "a", owner: "u1", scope: "shipping", def: true})
	got, cleared, err := s.Update("a", setDefault)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.def || len(cleared) != 0 {
		t.Errorf("got %+v cleared %v, want a still default and nothing cleared", got, cleared)
	}
}

func TestUpdate_ApplyErrorAborts(t *testing.T) {
	s := NewMemoryStore(recPolicy)
	s.Insert(rec{id: "a", owner: "u1", scope: "shipping", def: true})
	s.Insert(rec{id: "b", owner: "u1", scope: "shipping"})
	boom := errors.New("invalid")

	_, _, err := s.Update("b", func(r rec) (rec, error) { r.def = true; return r, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if got := defaultsOf(s); len(got) != 1 || got[0] != "a" {
		t.Errorf("defaults = %v, want [a] unchanged", got)
	}
}

func TestUpdateDelete_NotFound(t *testing.T) {
	s := NewMemoryStore(recPolicy)
	if _, _, err := s.Update("missing", setDefault); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestDelete_DefaultLeavesNone(t *testing.T) {
	s := NewMemoryStore(recPolicy)
	s.Insert(rec{id: "a", owner: "u1", scope: "shipping"})
	s.Insert(rec{id: "b", owner: "u1", scope: "shipping", def: true})

	if err := s.Delete("b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := defaultsOf(s); len(got) != 0 {
		t.Errorf("defaults = %v, want none", got)
	}
	if _, ok := s.Find(func(r rec) bool { return r.owner == "u1" && r.def }); ok {
		t.Error("Find should report no default")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestInvariant_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	owners := []string{"u1", "u2"}
	scopes := []string{"shipping", "billing", "both"}
	s := NewMemoryStore(recPolicy)
	var ids []string

	for step := 0; step < 500; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(ids) == 0:
			id := fmt.Sprintf("r%d", step)
			s.Insert(rec{id: id, owner: owners[rng.Intn(2)], scope: scopes[rng.Intn(3)], def: rng.Intn(2) == 0})
			ids = append(ids, id)
		case op == 1:
			id := ids[rng.Intn(len(ids))]
			scope := scopes[rng.Intn(3)]
			def := rng.Intn(2) == 0
			_, _, _ = s.Update(id, func(r rec) (rec, error) { r.scope = scope; r.def = def; return r, nil })
		default:
			i := rng.Intn(len(ids))
			_ = s.Delete(ids[i])
			ids = append(ids[:i], ids[i+1:]...)
		}
		if v := recPolicy.Violations(s.List(nil)); len(v) != 0 {
			t.Fatalf("step %d: violations %v", step, v)
		}
	}
}

func TestInvariant_ConcurrentSetDefault(t *testing.T) {
	s := NewMemoryStore(recPolicy)
	for i := 0; i < 20; i++ {
		s.Insert(rec{id: fmt.Sprintf("r%d", i), owner: "u1", scope: "shipping"})
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _, _ = s.Update(id, setDefault)
		}(fmt.Sprintf("r%d", i))
	}
	wg.Wait()
	if got := defaultsOf(s); len(got) != 1 {
		t.Errorf("defaults = %v, want exactly one", got)
	}
}
