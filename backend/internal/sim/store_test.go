package sim

import (
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestStoreAddAndOrder(t *testing.T) {
	store := NewStore(nil, discardLogger())

	store.Add(&Entity{ID: "b", Kind: KindVehicle})
	store.Add(&Entity{ID: "a", Kind: KindVehicle})
	store.Add(&Entity{ID: "c", Kind: KindPedestrian})

	all := store.All()
	if len(all) != 3 {
		t.Fatalf("Ожидалось 3 сущности, получили %d", len(all))
	}

	// Порядок вставки, не лексикографический
	want := []string{"b", "a", "c"}
	for i, e := range all {
		if e.ID != want[i] {
			t.Errorf("Позиция %d: ожидался %s, получили %s", i, want[i], e.ID)
		}
	}
}

func TestStoreDuplicateIDReplaces(t *testing.T) {
	store := NewStore(nil, discardLogger())

	store.Add(&Entity{ID: "x", Speed: 1})
	store.Add(&Entity{ID: "x", Speed: 2})

	all := store.All()
	if len(all) != 1 {
		t.Fatalf("Дубликат ID не должен создавать вторую запись, получили %d", len(all))
	}
	if all[0].Speed != 2 {
		t.Errorf("Дубликат должен заменить запись: скорость %v, ожидалось 2", all[0].Speed)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore(nil, discardLogger())
	store.Add(&Entity{ID: "v", Pos: mgl64.Vec2{10, 10}})

	got, ok := store.Get("v")
	if !ok {
		t.Fatal("Сущность не найдена")
	}

	// Мутация копии не должна влиять на хранилище
	got.Pos = mgl64.Vec2{99, 99}

	again, _ := store.Get("v")
	if again.Pos.X() != 10 {
		t.Error("Get должен возвращать копию, а не ссылку на запись")
	}

	all := store.All()
	all[0].Pos = mgl64.Vec2{55, 55}
	again, _ = store.Get("v")
	if again.Pos.X() != 10 {
		t.Error("All должен возвращать копии записей")
	}
}

func TestStoreUpdate(t *testing.T) {
	store := NewStore(nil, discardLogger())
	store.Add(&Entity{ID: "v", Speed: 1})

	if !store.Update("v", func(e *Entity) { e.Speed = 3 }) {
		t.Fatal("Update существующей сущности должен вернуть true")
	}
	if got, _ := store.Get("v"); got.Speed != 3 {
		t.Errorf("Мутация не применилась: скорость %v", got.Speed)
	}

	if store.Update("нет-такой", func(e *Entity) {}) {
		t.Error("Update несуществующей сущности должен вернуть false")
	}
}

func TestStoreRemove(t *testing.T) {
	store := NewStore(nil, discardLogger())
	store.Add(&Entity{ID: "a"})
	store.Add(&Entity{ID: "b"})

	store.Remove("a")
	store.Remove("a") // Повторное удаление - no-op

	if _, ok := store.Get("a"); ok {
		t.Error("Сущность a должна быть удалена")
	}
	if all := store.All(); len(all) != 1 || all[0].ID != "b" {
		t.Errorf("После удаления должна остаться только b: %+v", all)
	}
}

func TestStoreAllFiltersByKind(t *testing.T) {
	store := NewStore(nil, discardLogger())
	store.Add(&Entity{ID: "v1", Kind: KindVehicle})
	store.Add(&Entity{ID: "p1", Kind: KindPedestrian})
	store.Add(&Entity{ID: "v2", Kind: KindVehicle})
	store.Add(&Entity{ID: "z1", Kind: KindZone})

	vehicles := store.All(KindVehicle)
	if len(vehicles) != 2 {
		t.Errorf("Ожидалось 2 машины, получили %d", len(vehicles))
	}

	mixed := store.All(KindVehicle, KindPedestrian)
	if len(mixed) != 3 {
		t.Errorf("Ожидалось 3 сущности двух типов, получили %d", len(mixed))
	}
}

func TestStoreCaps(t *testing.T) {
	store := NewStore(map[Kind]int{KindVehicle: 2}, discardLogger())

	if !store.CanSpawn(KindVehicle) {
		t.Error("Пустое хранилище должно разрешать спавн")
	}

	store.Add(&Entity{ID: "v1", Kind: KindVehicle})
	store.Add(&Entity{ID: "v2", Kind: KindVehicle})

	if store.CanSpawn(KindVehicle) {
		t.Error("Лимит достигнут, спавн должен быть запрещен")
	}

	// Тип без лимита спавнится всегда
	if !store.CanSpawn(KindPedestrian) {
		t.Error("Тип без лимита должен спавниться без ограничений")
	}

	store.Remove("v1")
	if !store.CanSpawn(KindVehicle) {
		t.Error("После удаления лимит должен освободиться")
	}
}

func TestStoreClear(t *testing.T) {
	store := NewStore(nil, discardLogger())
	store.Add(&Entity{ID: "a"})
	store.Add(&Entity{ID: "b"})

	store.Clear()

	if len(store.All()) != 0 {
		t.Error("После Clear хранилище должно быть пустым")
	}

	// Счетчик ID не сбрасывается: новые сущности не переиспользуют ID
	first := store.NextSeq()
	second := store.NextSeq()
	if second <= first {
		t.Error("NextSeq должен быть монотонным")
	}
}

func BenchmarkStoreAll(b *testing.B) {
	store := NewStore(nil, discardLogger())
	for i := 0; i < 50; i++ {
		store.Add(&Entity{ID: fmt.Sprintf("e%d", i), Kind: KindVehicle})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.All()
	}
}
