package sim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// контактные тесты гоняют детектор напрямую, без движения:
// раскладка задается руками, результат снимается через takeContacts

func kinds(contacts []contact) map[contactKind]int {
	m := make(map[contactKind]int)
	for _, c := range contacts {
		m[c.kind]++
	}
	return m
}

func TestCollisionEdgeLatched(t *testing.T) {
	e := newTestEngine(walkerDef())
	e.prepareRound()

	e.store.Add(&Entity{
		ID:        "rock",
		Kind:      KindObstacle,
		Pos:       mgl64.Vec2{50, 50},
		Size:      mgl64.Vec2{6, 6},
		Dangerous: true,
	})

	// Первый тик наложения - столкновение
	e.collisionSys.Update(testTick)
	got := kinds(e.takeContacts())
	if got[contactCollision] != 1 {
		t.Fatalf("Ожидалось 1 столкновение, получили %d", got[contactCollision])
	}

	// Пока наложение длится, новых столкновений нет
	e.collisionSys.Update(testTick)
	got = kinds(e.takeContacts())
	if got[contactCollision] != 0 {
		t.Errorf("Продолжающееся наложение не должно давать новых столкновений: %d", got[contactCollision])
	}

	// Разошлись и сошлись снова - новое событие
	e.store.Update("rock", func(o *Entity) { o.Pos = mgl64.Vec2{80, 80} })
	e.collisionSys.Update(testTick)
	e.takeContacts()

	e.store.Update("rock", func(o *Entity) { o.Pos = mgl64.Vec2{50, 50} })
	e.collisionSys.Update(testTick)
	got = kinds(e.takeContacts())
	if got[contactCollision] != 1 {
		t.Errorf("Повторное схождение - новое столкновение, получили %d", got[contactCollision])
	}
}

func TestCollisionIgnoresHarmless(t *testing.T) {
	e := newTestEngine(walkerDef())
	e.prepareRound()

	e.store.Add(&Entity{
		ID:   "cone",
		Kind: KindObstacle,
		Pos:  mgl64.Vec2{50, 50},
		Size: mgl64.Vec2{6, 6},
		// Dangerous не установлен
	})

	e.collisionSys.Update(testTick)
	if got := kinds(e.takeContacts()); got[contactCollision] != 0 {
		t.Error("Неопасное препятствие не дает столкновений")
	}
}

func TestNearMissClassification(t *testing.T) {
	def := walkerDef()
	def.NearMissRadius = 7.5
	e := newTestEngine(def)
	e.prepareRound()

	// Машина рядом с игроком, но без наложения: игрок 50..54, машина 58..67
	e.store.Add(&Entity{
		ID:        "car",
		Kind:      KindVehicle,
		Pos:       mgl64.Vec2{58, 50},
		Size:      mgl64.Vec2{9, 5},
		Dangerous: true,
	})

	e.collisionSys.Update(testTick)
	got := kinds(e.takeContacts())
	if got[contactNearMiss] != 1 {
		t.Fatalf("Ожидалось 1 почти-столкновение, получили %d", got[contactNearMiss])
	}
	if got[contactCollision] != 0 {
		t.Error("Без наложения боксов столкновения нет")
	}

	// Почти-столкновение тоже защелкивается по фронту
	e.collisionSys.Update(testTick)
	if got := kinds(e.takeContacts()); got[contactNearMiss] != 0 {
		t.Error("Длящееся сближение не дает повторных событий")
	}
}

func TestCollisionTakesPrecedenceOverNearMiss(t *testing.T) {
	def := walkerDef()
	def.NearMissRadius = 7.5
	e := newTestEngine(def)
	e.prepareRound()

	// Наложение боксов: классифицируется только столкновение
	e.store.Add(&Entity{
		ID:        "car",
		Kind:      KindVehicle,
		Pos:       mgl64.Vec2{52, 50},
		Size:      mgl64.Vec2{9, 5},
		Dangerous: true,
	})

	e.collisionSys.Update(testTick)
	got := kinds(e.takeContacts())
	if got[contactCollision] != 1 || got[contactNearMiss] != 0 {
		t.Errorf("При наложении только столкновение: %v", got)
	}
}

func TestZoneEnterInsideLeave(t *testing.T) {
	def := walkerDef()
	def.Levels[0].Zones = []ZoneSpec{
		{ID: "cw", Type: ZoneCrosswalk, Rect: Rect{X: 48, Y: 48, W: 10, H: 10}},
	}
	e := newTestEngine(def)
	e.prepareRound()

	// Игрок стартует в зоне: вход + нахождение
	e.collisionSys.Update(testTick)
	got := kinds(e.takeContacts())
	if got[contactZoneEnter] != 1 {
		t.Errorf("Ожидался 1 вход в зону, получили %d", got[contactZoneEnter])
	}
	if got[contactZoneInside] != 1 {
		t.Errorf("Ожидалось 1 нахождение в зоне, получили %d", got[contactZoneInside])
	}

	// Следующий тик: только нахождение
	e.collisionSys.Update(testTick)
	got = kinds(e.takeContacts())
	if got[contactZoneEnter] != 0 || got[contactZoneInside] != 1 {
		t.Errorf("Длящееся нахождение без повторного входа: %v", got)
	}

	// Вышли из зоны: фронт выхода
	e.store.Update("player", func(p *Entity) { p.Pos = mgl64.Vec2{10, 10} })
	e.collisionSys.Update(testTick)
	got = kinds(e.takeContacts())
	if got[contactZoneLeave] != 1 {
		t.Errorf("Ожидался 1 выход из зоны, получили %d", got[contactZoneLeave])
	}
	if got[contactZoneInside] != 0 {
		t.Error("Вне зоны нахождение не классифицируется")
	}
}

func TestStopLineZoneExpandedForStoppedVehicle(t *testing.T) {
	def := walkerDef()
	def.Player = nil
	def.SignalControl = true
	def.Levels[0].Zones = []ZoneSpec{
		{ID: "line", Type: ZoneStopLine, Rect: Rect{X: 40, Y: 30, W: 6, H: 20}},
	}
	e := newTestEngine(def)
	e.prepareRound()

	// Машина стоит перед линией, боксы не пересекаются,
	// но зона подъезда расширена и контакт есть
	e.store.Add(&Entity{
		ID:        "car",
		Kind:      KindVehicle,
		Pos:       mgl64.Vec2{30, 35},
		Size:      mgl64.Vec2{8, 5},
		Direction: DirRight,
		IsStopped: true,
	})

	e.collisionSys.Update(testTick)
	got := kinds(e.takeContacts())
	if got[contactZoneInside] == 0 {
		t.Error("Машина у линии должна быть видна скорингу через расширенную зону")
	}
}

func TestVehicleHitsPedestrian(t *testing.T) {
	def := walkerDef()
	def.Player = nil
	e := newTestEngine(def)
	e.prepareRound()

	e.store.Add(&Entity{ID: "car", Kind: KindVehicle, Pos: mgl64.Vec2{50, 50}, Size: mgl64.Vec2{8, 5}})
	e.store.Add(&Entity{ID: "ped", Kind: KindPedestrian, Pos: mgl64.Vec2{52, 51}, Size: mgl64.Vec2{3, 3}})

	e.collisionSys.Update(testTick)
	contacts := e.takeContacts()

	found := false
	for _, c := range contacts {
		if c.kind == contactCollision && c.mover.ID == "car" && c.other.ID == "ped" {
			found = true
		}
	}
	if !found {
		t.Error("Наезд машины на пешехода должен классифицироваться как столкновение")
	}
}

func TestVehicleHitsStoppedVehicle(t *testing.T) {
	def := walkerDef()
	def.Player = nil
	e := newTestEngine(def)
	e.prepareRound()

	e.store.Add(&Entity{
		ID: "leader", Kind: KindVehicle, Pos: mgl64.Vec2{30, 35},
		Size: mgl64.Vec2{8, 5}, Direction: DirRight, IsStopped: true,
	})
	e.store.Add(&Entity{
		ID: "rogue", Kind: KindVehicle, Pos: mgl64.Vec2{25, 35},
		Size: mgl64.Vec2{8, 5}, Speed: 1.6, Direction: DirRight, Dangerous: true,
	})

	e.collisionSys.Update(testTick)
	contacts := e.takeContacts()

	// Ровно одно столкновение: едущий против стоящего, не наоборот
	hits := 0
	for _, c := range contacts {
		if c.kind == contactCollision && c.mover.ID == "rogue" && c.other.ID == "leader" {
			hits++
		}
	}
	if hits != 1 {
		t.Errorf("Наезд на стоящую машину - одно столкновение, получили %d", hits)
	}
}

func TestStoppedVehiclePairDoesNotCollide(t *testing.T) {
	def := walkerDef()
	def.Player = nil
	e := newTestEngine(def)
	e.prepareRound()

	// Обе машины стоят в колонне вплотную, но без наложения: контакта нет
	e.store.Add(&Entity{
		ID: "a", Kind: KindVehicle, Pos: mgl64.Vec2{30, 35},
		Size: mgl64.Vec2{8, 5}, Direction: DirRight, IsStopped: true,
	})
	e.store.Add(&Entity{
		ID: "b", Kind: KindVehicle, Pos: mgl64.Vec2{22, 35},
		Size: mgl64.Vec2{8, 5}, Direction: DirRight, IsStopped: true,
	})

	e.collisionSys.Update(testTick)
	if got := kinds(e.takeContacts()); got[contactCollision] != 0 {
		t.Errorf("Стоящие машины без наложения не сталкиваются: %d", got[contactCollision])
	}
}

func TestPairKeyDeterministic(t *testing.T) {
	if pairKey("a", "b") != pairKey("b", "a") {
		t.Error("Ключ пары не должен зависеть от порядка аргументов")
	}
}
