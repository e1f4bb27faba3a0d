package sim

import (
	"time"
)

// contactKind вид контакта, классифицированного детектором
type contactKind int

// stopLineApproach запас перед стоп-линией, в котором остановившаяся
// машина считается стоящей "у линии"
const stopLineApproach = 6.0

const (
	contactCollision contactKind = iota // Настоящее столкновение (новое в этом тике)
	contactNearMiss                     // Пересечение расширенного радиуса без столкновения
	contactZoneEnter                    // Вход в зону (фронт события)
	contactZoneInside                   // Нахождение в зоне (каждый тик)
	contactZoneLeave                    // Выход из зоны (фронт события)
)

// contact один классифицированный контакт тика.
// Копии сущностей снимаются после движения - детектор всегда видит
// пост-движенческие позиции.
type contact struct {
	kind  contactKind
	mover Entity
	other Entity
}

// CollisionSystem детектор коллизий и зон на AABB-пересечениях.
// Столкновения и "почти столкновения" защелкиваются по фронту: штраф
// начисляется один раз на событие пересечения, а не каждый тик наложения.
type CollisionSystem struct {
	name     string
	priority int
	engine   *Engine

	// Защелки пар прошлого тика
	prevCollide map[string]bool
	prevNear    map[string]bool
	prevZone    map[string]bool
}

// NewCollisionSystem создает детектор коллизий
func NewCollisionSystem(engine *Engine) *CollisionSystem {
	return &CollisionSystem{
		name:        "CollisionSystem",
		priority:    30, // После движения, до скоринга
		engine:      engine,
		prevCollide: make(map[string]bool),
		prevNear:    make(map[string]bool),
		prevZone:    make(map[string]bool),
	}
}

// Reset сбрасывает защелки (вызывается при рестарте и смене уровня)
func (cs *CollisionSystem) Reset() {
	cs.prevCollide = make(map[string]bool)
	cs.prevNear = make(map[string]bool)
	cs.prevZone = make(map[string]bool)
}

// Update классифицирует все контакты тика и передает их скорингу
func (cs *CollisionSystem) Update(deltaTime time.Duration) error {
	store := cs.engine.store

	zones := store.All(KindZone)
	obstacles := store.All(KindVehicle, KindPedestrian, KindCyclist, KindObstacle)

	curCollide := make(map[string]bool)
	curNear := make(map[string]bool)
	curZone := make(map[string]bool)

	// Игрок против препятствий и зон
	if player, ok := store.Get(cs.engine.playerID); ok {
		cs.checkMoverObstacles(player, obstacles, curCollide, curNear)
		cs.checkMoverZones(player, zones, curZone)
	}

	// Машины против пешеходов (игра со светофором) и против стоп-линий
	vehicles := store.All(KindVehicle)
	for _, vehicle := range vehicles {
		for _, ped := range store.All(KindPedestrian) {
			key := pairKey(vehicle.ID, ped.ID)
			if vehicle.Bounds().Intersects(ped.Bounds()) {
				curCollide[key] = true
				if !cs.prevCollide[key] {
					cs.engine.addContact(contact{kind: contactCollision, mover: vehicle, other: ped})
				}
			}
		}

		// Наезд сзади: движущаяся машина въехала в остановившуюся.
		// Асимметрия (едущий против стоящего) дает ровно одно событие на пару.
		if !vehicle.IsStopped {
			for _, other := range vehicles {
				if other.ID == vehicle.ID || !other.IsStopped {
					continue
				}
				key := pairKey(vehicle.ID, other.ID)
				if vehicle.Bounds().Intersects(other.Bounds()) {
					curCollide[key] = true
					if !cs.prevCollide[key] {
						cs.engine.addContact(contact{kind: contactCollision, mover: vehicle, other: other})
					}
				}
			}
		}

		cs.checkMoverZones(vehicle, zones, curZone)
	}

	cs.prevCollide = curCollide
	cs.prevNear = curNear
	cs.prevZone = curZone

	return nil
}

// checkMoverObstacles классифицирует контакты движущейся сущности с препятствиями
func (cs *CollisionSystem) checkMoverObstacles(mover Entity, obstacles []Entity, curCollide, curNear map[string]bool) {
	nearRadius := cs.engine.def.NearMissRadius
	moverBounds := mover.Bounds()

	for _, obs := range obstacles {
		if obs.ID == mover.ID || !obs.Dangerous {
			continue
		}

		key := pairKey(mover.ID, obs.ID)
		obsBounds := obs.Bounds()

		if moverBounds.Intersects(obsBounds) {
			curCollide[key] = true
			if !cs.prevCollide[key] {
				cs.engine.addContact(contact{kind: contactCollision, mover: mover, other: obs})
			}
			continue
		}

		// Почти столкновение: расширенный радиус задет, настоящего контакта нет.
		// Приоритет столкновения обеспечен ветвлением выше.
		if nearRadius > 0 && moverBounds.Expand(nearRadius).Intersects(obsBounds) {
			curNear[key] = true
			if !cs.prevNear[key] {
				cs.engine.addContact(contact{kind: contactNearMiss, mover: mover, other: obs})
			}
		}
	}
}

// checkMoverZones классифицирует вход/нахождение/выход сущности в зонах
func (cs *CollisionSystem) checkMoverZones(mover Entity, zones []Entity, curZone map[string]bool) {
	moverBounds := mover.Bounds()

	for _, zone := range zones {
		key := pairKey(mover.ID, zone.ID)

		zoneBounds := zone.Bounds()
		if zone.Zone == ZoneStopLine {
			// Зона остановки шире самой линии: машина, вставшая перед линией,
			// тоже должна быть видна скорингу
			zoneBounds = zoneBounds.Expand(stopLineApproach)
		}
		inside := moverBounds.Intersects(zoneBounds)

		if inside {
			curZone[key] = true
			if !cs.prevZone[key] {
				cs.engine.addContact(contact{kind: contactZoneEnter, mover: mover, other: zone})
			}
			cs.engine.addContact(contact{kind: contactZoneInside, mover: mover, other: zone})
		} else if cs.prevZone[key] {
			cs.engine.addContact(contact{kind: contactZoneLeave, mover: mover, other: zone})
		}
	}
}

// pairKey детерминированный ключ пары сущностей
func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

// GetName возвращает имя системы
func (cs *CollisionSystem) GetName() string {
	return cs.name
}

// GetPriority возвращает приоритет системы
func (cs *CollisionSystem) GetPriority() int {
	return cs.priority
}
