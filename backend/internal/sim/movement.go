package sim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// MovementSystem интегратор движения: сдвигает все сущности на
// unitVector(direction|angle) * speed за быстрый тик.
// Препятствия заворачиваются или уничтожаются на границе, игрок - ограничивается полем.
type MovementSystem struct {
	name     string
	priority int
	engine   *Engine
}

// NewMovementSystem создает систему движения
func NewMovementSystem(engine *Engine) *MovementSystem {
	return &MovementSystem{
		name:     "MovementSystem",
		priority: 20, // После спавна, до коллизий: детектор видит пост-движенческие позиции
		engine:   engine,
	}
}

// Update двигает игрока и все препятствия
func (ms *MovementSystem) Update(deltaTime time.Duration) error {
	if ms.engine.def.Player != nil {
		ms.movePlayer()
	}

	ms.moveObstacles()
	return nil
}

// movePlayer обрабатывает ввод и интегрирует управляемую сущность
func (ms *MovementSystem) movePlayer() {
	spec := ms.engine.def.Player
	input := ms.engine.input
	bounds := ms.engine.def.Bounds

	ms.engine.store.Update(ms.engine.playerID, func(p *Entity) {
		switch spec.Control {
		case ControlWalker:
			// Пешеход: прямое движение без инерции
			var dir mgl64.Vec2
			if input.IsPressed(ActionUp) {
				dir = dir.Add(mgl64.Vec2{0, -1})
			}
			if input.IsPressed(ActionDown) {
				dir = dir.Add(mgl64.Vec2{0, 1})
			}
			if input.IsPressed(ActionLeft) {
				dir = dir.Add(mgl64.Vec2{-1, 0})
			}
			if input.IsPressed(ActionRight) {
				dir = dir.Add(mgl64.Vec2{1, 0})
			}

			if dir.Len() > 0 {
				p.Pos = p.Pos.Add(dir.Normalize().Mul(spec.WalkSpeed))
				p.Speed = spec.WalkSpeed
			} else {
				p.Speed = 0
			}

		case ControlVehicle:
			// Машина: газ/тормоз с инерцией и затуханием
			switch {
			case input.IsPressed(ActionUp):
				p.Speed += spec.Accel
				if p.Speed > spec.MaxSpeed {
					p.Speed = spec.MaxSpeed
				}
			case input.IsPressed(ActionDown):
				p.Speed -= spec.BrakeDecel
				if p.Speed < -spec.ReverseMax {
					p.Speed = -spec.ReverseMax
				}
			default:
				p.Speed *= spec.Friction
				if mgl64.Abs(p.Speed) < 0.01 {
					p.Speed = 0
				}
			}

			// Руль не действует на месте: нельзя повернуть стоящую машину
			if mgl64.Abs(p.Speed) >= spec.SteerEpsilon {
				if input.IsPressed(ActionLeft) {
					p.Angle -= spec.SteerRate
				}
				if input.IsPressed(ActionRight) {
					p.Angle += spec.SteerRate
				}
				p.Angle = normalizeAngle(p.Angle)
			}

			p.Pos = p.Pos.Add(p.Heading().Mul(p.Speed))
			p.IsStopped = mgl64.Abs(p.Speed) < spec.SteerEpsilon
		}

		// Игрок никогда не заворачивается - только ограничение полем
		p.Pos = clampToBounds(p.Pos, p.Size, bounds)
	})
}

// moveObstacles двигает препятствия по кардинальным направлениям
func (ms *MovementSystem) moveObstacles() {
	bounds := ms.engine.def.Bounds
	signalRed := ms.engine.Signal() == SignalRed
	stopZones := ms.engine.stopLineZones()
	vehicles := ms.engine.store.All(KindVehicle)

	var toRemove []string

	for _, snapshot := range ms.engine.store.All(KindVehicle, KindPedestrian, KindCyclist) {
		id := snapshot.ID

		ms.engine.store.Update(id, func(e *Entity) {
			// Законопослушные машины тормозят перед стоп-линией на красный
			// и не въезжают в уже остановившуюся машину впереди
			if ms.engine.def.SignalControl && e.Kind == KindVehicle && !e.Dangerous {
				if signalRed && (ms.approachesStopLine(e, stopZones) || blockedByStopped(e, vehicles)) {
					e.IsStopped = true
				}
				if !signalRed {
					e.IsStopped = false
				}
			}

			if e.IsStopped {
				return
			}

			e.Pos = e.Pos.Add(e.Direction.Vector().Mul(e.Speed))

			switch e.Boundary {
			case BoundaryRemove:
				if outOfBounds(e, bounds) {
					toRemove = append(toRemove, id)
				}
			default:
				// Поток транспорта: вышел за край - входит с противоположного
				wrapEntity(e, bounds)
			}
		})
	}

	for _, id := range toRemove {
		ms.engine.store.Remove(id)
	}
}

// approachesStopLine проверяет, что машина в зоне торможения у стоп-линии
func (ms *MovementSystem) approachesStopLine(e *Entity, zones []Entity) bool {
	lookahead := brakeLookahead(e)
	for _, z := range zones {
		if lookahead.Intersects(z.Bounds()) {
			return true
		}
	}
	return false
}

// blockedByStopped проверяет, что прямо по курсу стоит остановившаяся машина.
// Так колонна встает за лидером вместо наезда друг на друга.
func blockedByStopped(e *Entity, vehicles []Entity) bool {
	lookahead := brakeLookahead(e)
	for _, v := range vehicles {
		if v.ID == e.ID || !v.IsStopped || v.Direction != e.Direction {
			continue
		}
		if lookahead.Intersects(v.Bounds()) {
			return true
		}
	}
	return false
}

// brakeLookahead бокс сущности, расширенный на тормозной путь по курсу
func brakeLookahead(e *Entity) Rect {
	lookahead := e.Bounds()
	brakeDist := e.Speed * 3
	switch e.Direction {
	case DirRight:
		lookahead.W += brakeDist
	case DirLeft:
		lookahead.X -= brakeDist
		lookahead.W += brakeDist
	case DirDown:
		lookahead.H += brakeDist
	case DirUp:
		lookahead.Y -= brakeDist
		lookahead.H += brakeDist
	}
	return lookahead
}

// wrapEntity заворачивает сущность на противоположный край.
// Возвращает true, если заворот произошел в этом тике.
func wrapEntity(e *Entity, bounds mgl64.Vec2) bool {
	x, y := e.Pos.X(), e.Pos.Y()
	wrapped := false

	switch {
	case e.Direction == DirRight && x >= bounds.X():
		x = -e.Size.X()
		wrapped = true
	case e.Direction == DirLeft && x+e.Size.X() <= 0:
		x = bounds.X()
		wrapped = true
	case e.Direction == DirDown && y >= bounds.Y():
		y = -e.Size.Y()
		wrapped = true
	case e.Direction == DirUp && y+e.Size.Y() <= 0:
		y = bounds.Y()
		wrapped = true
	}

	if wrapped {
		e.Pos = mgl64.Vec2{x, y}
		// Переезд через край - новый заход: скоринговые защелки сбрасываются
		e.Triggered = false
		e.Completed = false
	}
	return wrapped
}

// outOfBounds проверяет полный выход сущности за пределы поля
func outOfBounds(e *Entity, bounds mgl64.Vec2) bool {
	b := e.Bounds()
	return b.X+b.W < 0 || b.X > bounds.X() || b.Y+b.H < 0 || b.Y > bounds.Y()
}

// clampToBounds ограничивает позицию так, чтобы сущность оставалась в поле
func clampToBounds(pos, size, bounds mgl64.Vec2) mgl64.Vec2 {
	x := mgl64.Clamp(pos.X(), 0, bounds.X()-size.X())
	y := mgl64.Clamp(pos.Y(), 0, bounds.Y()-size.Y())
	return mgl64.Vec2{x, y}
}

// normalizeAngle приводит угол к диапазону [0, 360)
func normalizeAngle(a float64) float64 {
	for a < 0 {
		a += 360
	}
	for a >= 360 {
		a -= 360
	}
	return a
}

// GetName возвращает имя системы
func (ms *MovementSystem) GetName() string {
	return ms.name
}

// GetPriority возвращает приоритет системы
func (ms *MovementSystem) GetPriority() int {
	return ms.priority
}
