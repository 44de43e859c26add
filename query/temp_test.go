package query

import (
	"reflect"
	"testing"

	"github.com/vegasq/sheetql/table"
)

func TestTempStorePutGet(t *testing.T) {
	store := NewTempStore()
	rel := table.New("a")
	store.Put("t1", rel)
	got, ok := store.Get("t1")
	if !ok || got != rel {
		t.Fatalf("Get returned %v, %v", got, ok)
	}
	if _, ok := store.Get("missing"); ok {
		t.Error("Get(missing) reported present")
	}
}

func TestTempStoreOverwrite(t *testing.T) {
	store := NewTempStore()
	first := table.New("a")
	second := table.New("b")
	store.Put("t", first)
	store.Put("t", second)
	got, _ := store.Get("t")
	if got != second {
		t.Error("Put did not overwrite")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestTempStoreListSorted(t *testing.T) {
	store := NewTempStore()
	store.Put("zeta", table.New())
	store.Put("alpha", table.New())
	if got := store.List(); !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Errorf("List = %v", got)
	}
}

func TestTempStoreDropClear(t *testing.T) {
	store := NewTempStore()
	store.Put("t", table.New())
	if !store.Drop("t") {
		t.Error("Drop(t) = false, want true")
	}
	if store.Drop("t") {
		t.Error("second Drop(t) = true, want false")
	}
	store.Put("a", table.New())
	store.Put("b", table.New())
	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Len after Clear = %d", store.Len())
	}
}
