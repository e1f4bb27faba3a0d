package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind тип сущности в симуляции
type Kind string

const (
	KindPlayer     Kind = "player"     // Управляемая сущность (машина или пешеход)
	KindVehicle    Kind = "vehicle"    // Автомобиль-препятствие
	KindPedestrian Kind = "pedestrian" // Пешеход-препятствие
	KindCyclist    Kind = "cyclist"    // Велосипедист
	KindObstacle   Kind = "obstacle"   // Статичное препятствие
	KindZone       Kind = "zone"       // Статичная зона (парковка, чекпоинт и т.д.)
)

// Direction кардинальное направление движения препятствий
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// Directions список всех кардинальных направлений
var Directions = []Direction{DirUp, DirDown, DirLeft, DirRight}

// Vector возвращает единичный вектор направления.
// Ось Y направлена вниз, как в DOM-координатах клиента.
func (d Direction) Vector() mgl64.Vec2 {
	switch d {
	case DirUp:
		return mgl64.Vec2{0, -1}
	case DirDown:
		return mgl64.Vec2{0, 1}
	case DirLeft:
		return mgl64.Vec2{-1, 0}
	case DirRight:
		return mgl64.Vec2{1, 0}
	}
	return mgl64.Vec2{}
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	}
	return d
}

// ZoneType тип статичной зоны
type ZoneType string

const (
	ZoneParkingSpot ZoneType = "parking_spot" // Парковочное место
	ZoneCheckpoint  ZoneType = "checkpoint"   // Чекпоинт квеста
	ZoneCrosswalk   ZoneType = "crosswalk"    // Пешеходный переход
	ZoneStopLine    ZoneType = "stop_line"    // Стоп-линия у светофора
	ZoneCamera      ZoneType = "camera"       // Камера контроля скорости
	ZoneDestination ZoneType = "destination"  // Цель пешехода
	ZoneSegmentExit ZoneType = "segment_exit" // Выезд из сегмента дороги
)

// SignalColor цвет сигнала светофора
type SignalColor string

const (
	SignalRed    SignalColor = "red"
	SignalYellow SignalColor = "yellow"
	SignalGreen  SignalColor = "green"
)

// Rect прямоугольник, выровненный по осям (AABB)
type Rect struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	W float64 `json:"w" msgpack:"w"`
	H float64 `json:"h" msgpack:"h"`
}

// Intersects проверяет пересечение двух AABB
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X &&
		r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// Center возвращает центр прямоугольника
func (r Rect) Center() mgl64.Vec2 {
	return mgl64.Vec2{r.X + r.W/2, r.Y + r.H/2}
}

// Expand возвращает прямоугольник, расширенный на m единиц во все стороны.
// Используется для проверки "почти столкновений".
func (r Rect) Expand(m float64) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, W: r.W + 2*m, H: r.H + 2*m}
}

// Entity игровая сущность: машина, пешеход, препятствие, зона или игрок
type Entity struct {
	ID   string `json:"id" msgpack:"id"`
	Kind Kind   `json:"kind" msgpack:"kind"`

	Pos  mgl64.Vec2 `json:"pos" msgpack:"pos"`
	Size mgl64.Vec2 `json:"size" msgpack:"size"`

	// Движение: препятствия ходят по кардинальному направлению,
	// управляемая машина - по углу (градусы, 0 = вверх)
	Speed     float64   `json:"speed" msgpack:"speed"`
	Direction Direction `json:"direction,omitempty" msgpack:"direction,omitempty"`
	Angle     float64   `json:"angle,omitempty" msgpack:"angle,omitempty"`

	Subtype   string `json:"subtype,omitempty" msgpack:"subtype,omitempty"`
	Dangerous bool   `json:"dangerous,omitempty" msgpack:"dangerous,omitempty"`

	// Поля зон
	Zone        ZoneType    `json:"zone,omitempty" msgpack:"zone,omitempty"`
	Signal      SignalColor `json:"signal,omitempty" msgpack:"signal,omitempty"`
	TargetAngle float64     `json:"target_angle,omitempty" msgpack:"target_angle,omitempty"`
	Order       int         `json:"order,omitempty" msgpack:"order,omitempty"`
	Triggered   bool        `json:"triggered,omitempty" msgpack:"triggered,omitempty"`
	Completed   bool        `json:"completed,omitempty" msgpack:"completed,omitempty"`
	Occupied    bool        `json:"occupied,omitempty" msgpack:"occupied,omitempty"`

	// Политика поведения на границе поля; наружу не сериализуется
	Boundary BoundaryPolicy `json:"-" msgpack:"-"`

	// Поля игрока
	Lives     int  `json:"lives,omitempty" msgpack:"lives,omitempty"`
	IsStopped bool `json:"is_stopped,omitempty" msgpack:"is_stopped,omitempty"`
	IsParked  bool `json:"is_parked,omitempty" msgpack:"is_parked,omitempty"`
}

// Bounds возвращает AABB сущности
func (e *Entity) Bounds() Rect {
	return Rect{X: e.Pos.X(), Y: e.Pos.Y(), W: e.Size.X(), H: e.Size.Y()}
}

// Heading возвращает единичный вектор по углу сущности.
// Угол 0 - вверх, положительное направление - по часовой стрелке.
func (e *Entity) Heading() mgl64.Vec2 {
	rad := mgl64.DegToRad(e.Angle)
	return mgl64.Vec2{math.Sin(rad), -math.Cos(rad)}
}

// AngleDiff возвращает абсолютную угловую разницу в градусах,
// нормализованную к диапазону [0, 180]
func AngleDiff(a, b float64) float64 {
	diff := math.Mod(math.Abs(a-b), 360)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
