package sim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ScoringSystem применяет очки к классифицированным контактам и двигает
// раундовую машину состояний. Выполняется последним: стадии тика строго
// упорядочены (ввод → движение → классификация → скоринг), иначе скоринг
// видел бы допоступательные позиции.
type ScoringSystem struct {
	name     string
	priority int
	engine   *Engine
}

// NewScoringSystem создает систему скоринга
func NewScoringSystem(engine *Engine) *ScoringSystem {
	return &ScoringSystem{
		name:     "ScoringSystem",
		priority: 40,
		engine:   engine,
	}
}

// Update обрабатывает контакты текущего тика
func (sc *ScoringSystem) Update(deltaTime time.Duration) error {
	contacts := sc.engine.takeContacts()
	if len(contacts) == 0 {
		return nil
	}

	// Столкновения обрабатываются первыми: штраф не пропускается из-за того,
	// что в том же тике случился и успех
	playerCollided := false
	for _, c := range contacts {
		if c.kind != contactCollision {
			continue
		}
		if sc.handleCollision(c) && c.mover.ID == sc.engine.playerID {
			playerCollided = true
		}
	}

	for _, c := range contacts {
		switch c.kind {
		case contactNearMiss:
			sc.handleNearMiss(c)
		case contactZoneEnter, contactZoneInside, contactZoneLeave:
			sc.handleZone(c, playerCollided)
		}
	}

	return nil
}

// handleCollision начисляет штраф за столкновение.
// Возвращает true, если штраф был применен.
func (sc *ScoringSystem) handleCollision(c contact) bool {
	e := sc.engine
	table := e.def.Scoring

	if c.mover.ID == e.playerID {
		e.applyDelta(table.Collision)
		e.incViolations()
		e.emit(Event{Type: EventCollision, EntityID: c.other.ID, Delta: table.Collision})
		e.logger.Printf("[Scoring] Столкновение игрока с %s (%+d)", c.other.ID, table.Collision)

		e.loseLife()
		return true
	}

	// Машина сбила пешехода: нарушение управления светофором
	if c.mover.Kind == KindVehicle && c.other.Kind == KindPedestrian {
		e.applyDelta(table.Collision)
		e.incViolations()
		e.emit(Event{Type: EventCollision, EntityID: c.mover.ID, ZoneID: c.other.ID, Delta: table.Collision})
		e.logger.Printf("[Scoring] Машина %s сбила пешехода %s (%+d)", c.mover.ID, c.other.ID, table.Collision)

		// Пешеход убирается с поля, машина продолжает движение
		e.store.Remove(c.other.ID)
		return true
	}

	// Наезд на машину, остановившуюся по сигналу: нарушение управления потоком
	if c.mover.Kind == KindVehicle && c.other.Kind == KindVehicle {
		e.applyDelta(table.Collision)
		e.incViolations()
		e.emit(Event{Type: EventCollision, EntityID: c.mover.ID, ZoneID: c.other.ID, Delta: table.Collision})
		e.logger.Printf("[Scoring] Машина %s въехала в стоящую %s (%+d)", c.mover.ID, c.other.ID, table.Collision)
		return true
	}

	return false
}

// handleNearMiss начисляет уменьшенный штраф за "почти столкновение".
// Счетчик нарушений не растет: это предупреждение, а не нарушение.
func (sc *ScoringSystem) handleNearMiss(c contact) {
	if c.mover.ID != sc.engine.playerID {
		return
	}

	table := sc.engine.def.Scoring
	sc.engine.applyDelta(table.NearMiss)
	sc.engine.emit(Event{Type: EventNearMiss, EntityID: c.other.ID, Delta: table.NearMiss})
}

// handleZone интерпретирует контакт с зоной по ее типу
func (sc *ScoringSystem) handleZone(c contact, playerCollided bool) {
	isPlayer := c.mover.ID == sc.engine.playerID

	switch c.other.Zone {
	case ZoneStopLine:
		if c.kind == contactZoneInside && c.mover.Kind == KindVehicle {
			sc.handleStopLine(c)
		}

	case ZoneCamera:
		if isPlayer {
			sc.handleCamera(c)
		}

	case ZoneSegmentExit:
		if isPlayer && c.kind == contactZoneEnter && !playerCollided {
			sc.handleSegmentExit(c)
		}

	case ZoneCheckpoint:
		if isPlayer && c.kind == contactZoneEnter && !playerCollided {
			sc.handleCheckpoint(c)
		}

	case ZoneCrosswalk:
		if isPlayer && c.kind == contactZoneEnter {
			sc.handleCrosswalk(c)
		}

	case ZoneDestination:
		if isPlayer && c.kind == contactZoneEnter && !playerCollided {
			sc.handleDestination(c)
		}

	case ZoneParkingSpot:
		if isPlayer && c.kind == contactZoneInside && !playerCollided {
			sc.handleParking(c)
		}
	}
}

// handleStopLine машина в зоне стоп-линии при красном сигнале:
// остановилась - успех, проехала - нарушение. И то и другое - один раз
// на машину за заход (защелки сбрасываются при завороте за край).
func (sc *ScoringSystem) handleStopLine(c contact) {
	e := sc.engine
	if e.Signal() != SignalRed {
		return
	}

	table := e.def.Scoring
	vehicleID := c.mover.ID

	// Нарушение - только при пересечении самой линии, не зоны подъезда
	crossedLine := c.mover.Bounds().Intersects(c.other.Bounds())

	if crossedLine && !c.mover.IsStopped && c.mover.Speed > 0 && !c.mover.Triggered {
		e.store.Update(vehicleID, func(v *Entity) { v.Triggered = true })
		e.applyDelta(table.Violation)
		e.incViolations()
		e.emit(Event{Type: EventViolation, EntityID: vehicleID, ZoneID: c.other.ID, Delta: table.Violation})
		e.logger.Printf("[Scoring] Машина %s проехала стоп-линию на красный (%+d)", vehicleID, table.Violation)
		return
	}

	if c.mover.IsStopped && !c.mover.Completed {
		e.store.Update(vehicleID, func(v *Entity) { v.Completed = true })
		e.applyDelta(table.Success)
		e.incSuccesses()
		e.emit(Event{Type: EventSafeEntry, EntityID: vehicleID, ZoneID: c.other.ID, Delta: table.Success})
	}
}

// handleCamera камера контроля скорости: превышение внутри зоны - нарушение,
// прохождение зоны без превышения - успех при выезде
func (sc *ScoringSystem) handleCamera(c contact) {
	e := sc.engine
	table := e.def.Scoring

	switch c.kind {
	case contactZoneInside:
		if mgl64.Abs(c.mover.Speed) > e.def.SpeedLimit && !c.other.Triggered {
			e.store.Update(c.other.ID, func(z *Entity) { z.Triggered = true })
			e.applyDelta(table.Violation)
			e.incViolations()
			e.emit(Event{Type: EventViolation, ZoneID: c.other.ID, Delta: table.Violation})
			e.logger.Printf("[Scoring] Превышение скорости на камере %s: %.2f > %.2f (%+d)",
				c.other.ID, mgl64.Abs(c.mover.Speed), e.def.SpeedLimit, table.Violation)
		}

	case contactZoneLeave:
		if !c.other.Triggered && !c.other.Completed {
			e.store.Update(c.other.ID, func(z *Entity) { z.Completed = true })
			e.applyDelta(table.Success)
			e.incSuccesses()
			e.emit(Event{Type: EventSafeEntry, ZoneID: c.other.ID, Delta: table.Success})
		}
	}
}

// handleSegmentExit выезд из сегмента: успех и переход к следующему уровню
func (sc *ScoringSystem) handleSegmentExit(c contact) {
	e := sc.engine
	table := e.def.Scoring

	e.applyDelta(table.Success)
	e.incSuccesses()
	e.emit(Event{Type: EventSafeEntry, ZoneID: c.other.ID, Delta: table.Success})
	e.advanceLevel()
}

// handleCheckpoint чекпоинты проходятся строго по порядку
func (sc *ScoringSystem) handleCheckpoint(c contact) {
	e := sc.engine
	if c.other.Completed || c.other.Order != e.Progress() {
		return
	}

	table := e.def.Scoring
	e.store.Update(c.other.ID, func(z *Entity) { z.Completed = true })
	e.applyDelta(table.Success)
	e.incSuccesses()
	e.advanceProgress()
	e.emit(Event{Type: EventSafeEntry, ZoneID: c.other.ID, Delta: table.Success})
	e.logger.Printf("[Scoring] Чекпоинт %s пройден (%d-й по счету)", c.other.ID, e.Progress())

	// Все чекпоинты уровня собраны - следующий уровень
	if e.Progress() >= e.countCheckpoints() {
		e.advanceLevel()
	}
}

// handleCrosswalk выход на переход при запрещающем сигнале - нарушение
func (sc *ScoringSystem) handleCrosswalk(c contact) {
	e := sc.engine
	if c.other.Signal != SignalRed || c.other.Triggered {
		return
	}

	table := e.def.Scoring
	e.store.Update(c.other.ID, func(z *Entity) { z.Triggered = true })
	e.applyDelta(table.Violation)
	e.incViolations()
	e.emit(Event{Type: EventViolation, ZoneID: c.other.ID, Delta: table.Violation})
}

// handleDestination пешеход дошел до цели: успех, возврат на старт
func (sc *ScoringSystem) handleDestination(c contact) {
	e := sc.engine
	table := e.def.Scoring

	e.applyDelta(table.Success)
	e.incSuccesses()
	e.emit(Event{Type: EventSafeEntry, ZoneID: c.other.ID, Delta: table.Success})
	e.logger.Printf("[Scoring] Переход завершен безопасно (%+d)", table.Success)

	e.resetPlayer()
}

// handleParking оценка точности парковки: бонус по двум порогам
// дистанции до центра места и углового отклонения от целевого курса.
// Вне обоих порогов въезд в зону парковкой не считается.
func (sc *ScoringSystem) handleParking(c contact) {
	e := sc.engine
	spec := e.def.Parking
	if spec == nil || c.other.Occupied {
		return
	}

	if mgl64.Abs(c.mover.Speed) >= spec.StopEpsilon {
		return
	}

	dist := c.mover.Bounds().Center().Sub(c.other.Bounds().Center()).Len()
	angleOff := AngleDiff(c.mover.Angle, c.other.TargetAngle)

	var bonus int
	var tier string
	switch {
	case dist < spec.PerfectDist && angleOff < spec.PerfectAngle:
		bonus = e.def.Scoring.ParkPerfect
		tier = "perfect"
	case dist < spec.LooseDist && angleOff < spec.LooseAngle:
		bonus = e.def.Scoring.ParkLoose
		tier = "loose"
	default:
		return
	}

	e.store.Update(c.other.ID, func(z *Entity) { z.Occupied = true })
	e.store.Update(c.mover.ID, func(p *Entity) { p.IsParked = true })
	e.applyDelta(bonus)
	e.incSuccesses()
	e.emit(Event{Type: EventParked, ZoneID: c.other.ID, Delta: bonus, Tier: tier})
	e.logger.Printf("[Scoring] Парковка (%s): дистанция %.1f, угол %.1f (%+d)", tier, dist, angleOff, bonus)

	e.advanceLevel()
}

// GetName возвращает имя системы
func (sc *ScoringSystem) GetName() string {
	return sc.name
}

// GetPriority возвращает приоритет системы
func (sc *ScoringSystem) GetPriority() int {
	return sc.priority
}
