package sim

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const testTick = 50 * time.Millisecond

// newTestEngine движок с фиксированным зерном, часы не запускаются:
// тики прогоняются вручную для детерминированности
func newTestEngine(def *GameDefinition) *Engine {
	return NewEngineWithSeed(def, discardLogger(), 42)
}

func walkerDef() *GameDefinition {
	return &GameDefinition{
		ID:       "test-walker",
		Bounds:   mgl64.Vec2{100, 100},
		FastTick: testTick,
		SlowTick: time.Second,

		RoundTime: 60,
		Player: &PlayerSpec{
			Control:   ControlWalker,
			Size:      mgl64.Vec2{4, 4},
			WalkSpeed: 1.4,
			Lives:     3,
		},
		Levels: []Level{{PlayerStart: mgl64.Vec2{50, 50}}},

		Scoring:          ScoreTable{Success: 25, Collision: -30, NearMiss: -5},
		MaxPossibleScore: 100,
		ViolationCoeff:   10,
	}
}

func vehicleDef() *GameDefinition {
	return &GameDefinition{
		ID:       "test-vehicle",
		Bounds:   mgl64.Vec2{100, 100},
		FastTick: testTick,
		SlowTick: time.Second,

		RoundTime: 90,
		Player: &PlayerSpec{
			Control:      ControlVehicle,
			Size:         mgl64.Vec2{6, 10},
			Accel:        0.25,
			MaxSpeed:     2.5,
			ReverseMax:   1.2,
			Friction:     0.9,
			BrakeDecel:   0.5,
			SteerRate:    3.5,
			SteerEpsilon: 0.2,
		},
		Levels: []Level{{PlayerStart: mgl64.Vec2{50, 50}, PlayerAngle: 0}},

		Scoring:          ScoreTable{Collision: -20, ParkPerfect: 50, ParkLoose: 25},
		MaxPossibleScore: 100,
		ViolationCoeff:   10,
	}
}

func TestWalkerMoves(t *testing.T) {
	e := newTestEngine(walkerDef())
	e.prepareRound()

	e.SetInput("ArrowUp", true)
	e.fastTick(testTick)

	p, _ := e.store.Get("player")
	if math.Abs(p.Pos.Y()-(50-1.4)) > 1e-9 {
		t.Errorf("Вверх уменьшает Y: ожидалось %.1f, получили %.1f", 50-1.4, p.Pos.Y())
	}

	// Отпустили - пешеход стоит на месте
	e.SetInput("ArrowUp", false)
	e.fastTick(testTick)
	after, _ := e.store.Get("player")
	if after.Pos != p.Pos {
		t.Error("Без нажатых клавиш пешеход не должен двигаться")
	}
}

func TestWalkerDiagonalNormalized(t *testing.T) {
	e := newTestEngine(walkerDef())
	e.prepareRound()

	e.SetInput("ArrowUp", true)
	e.SetInput("ArrowRight", true)
	e.fastTick(testTick)

	p, _ := e.store.Get("player")
	dist := p.Pos.Sub(mgl64.Vec2{50, 50}).Len()
	if math.Abs(dist-1.4) > 1e-9 {
		t.Errorf("Диагональное движение нормализуется: путь %.3f, ожидалось 1.4", dist)
	}
}

func TestPlayerClampedToBounds(t *testing.T) {
	def := walkerDef()
	def.Levels[0].PlayerStart = mgl64.Vec2{50, 1}
	e := newTestEngine(def)
	e.prepareRound()

	e.SetInput("ArrowUp", true)
	for i := 0; i < 5; i++ {
		e.fastTick(testTick)
	}

	p, _ := e.store.Get("player")
	if p.Pos.Y() != 0 {
		t.Errorf("Игрок должен упереться в границу поля: Y = %.2f", p.Pos.Y())
	}
}

func TestVehicleAcceleration(t *testing.T) {
	e := newTestEngine(vehicleDef())
	e.prepareRound()

	e.SetInput("ArrowUp", true)
	e.fastTick(testTick)

	p, _ := e.store.Get("player")
	if math.Abs(p.Speed-0.25) > 1e-9 {
		t.Errorf("После одного тика газа скорость 0.25, получили %.3f", p.Speed)
	}
	// Угол 0 - движение вверх
	if p.Pos.Y() >= 50 {
		t.Errorf("Машина с углом 0 едет вверх, Y = %.2f", p.Pos.Y())
	}

	// Скорость насыщается на максимуме
	for i := 0; i < 30; i++ {
		e.fastTick(testTick)
	}
	p, _ = e.store.Get("player")
	if p.Speed > 2.5+1e-9 {
		t.Errorf("Скорость не должна превышать максимум: %.3f", p.Speed)
	}
}

func TestVehicleFrictionDecay(t *testing.T) {
	e := newTestEngine(vehicleDef())
	e.prepareRound()

	e.SetInput("ArrowUp", true)
	for i := 0; i < 10; i++ {
		e.fastTick(testTick)
	}
	e.SetInput("ArrowUp", false)

	p, _ := e.store.Get("player")
	before := p.Speed

	e.fastTick(testTick)
	p, _ = e.store.Get("player")
	if math.Abs(p.Speed-before*0.9) > 1e-9 {
		t.Errorf("Без газа скорость затухает на множитель трения: %.4f, ожидалось %.4f", p.Speed, before*0.9)
	}

	// Затухание доводит скорость до полного нуля
	for i := 0; i < 100; i++ {
		e.fastTick(testTick)
	}
	p, _ = e.store.Get("player")
	if p.Speed != 0 {
		t.Errorf("Малая скорость обнуляется, получили %v", p.Speed)
	}
}

func TestVehicleSteeringRequiresMotion(t *testing.T) {
	e := newTestEngine(vehicleDef())
	e.prepareRound()

	// Стоящая машина не поворачивает
	e.SetInput("ArrowLeft", true)
	e.fastTick(testTick)

	p, _ := e.store.Get("player")
	if p.Angle != 0 {
		t.Errorf("Руль на месте не действует: угол %.1f", p.Angle)
	}

	// В движении - поворачивает
	e.SetInput("ArrowUp", true)
	for i := 0; i < 3; i++ {
		e.fastTick(testTick)
	}
	p, _ = e.store.Get("player")
	if p.Angle == 0 {
		t.Error("В движении руль должен менять угол")
	}
}

func TestVehicleBrakeAndReverse(t *testing.T) {
	e := newTestEngine(vehicleDef())
	e.prepareRound()

	e.SetInput("ArrowDown", true)
	for i := 0; i < 10; i++ {
		e.fastTick(testTick)
	}

	p, _ := e.store.Get("player")
	if math.Abs(p.Speed-(-1.2)) > 1e-9 {
		t.Errorf("Задний ход упирается в лимит -1.2, получили %.3f", p.Speed)
	}
}

func TestObstacleWrap(t *testing.T) {
	e := newTestEngine(walkerDef())
	e.prepareRound()

	e.store.Add(&Entity{
		ID:        "v1",
		Kind:      KindVehicle,
		Pos:       mgl64.Vec2{98, 40},
		Size:      mgl64.Vec2{8, 5},
		Speed:     3,
		Direction: DirRight,
		Boundary:  BoundaryWrap,
		Triggered: true, // Защелка должна сброситься при завороте
	})

	e.fastTick(testTick)

	v, ok := e.store.Get("v1")
	if !ok {
		t.Fatal("Заворачиваемая сущность не должна удаляться")
	}
	if v.Pos.X() != -8 {
		t.Errorf("После заворота X = -ширина: ожидалось -8, получили %.1f", v.Pos.X())
	}
	if v.Triggered {
		t.Error("Заворот за край начинает новый заход: защелка должна сброситься")
	}
}

func TestObstacleRemovedAtBoundary(t *testing.T) {
	e := newTestEngine(walkerDef())
	e.prepareRound()

	e.store.Add(&Entity{
		ID:        "p1",
		Kind:      KindPedestrian,
		Pos:       mgl64.Vec2{40, 98},
		Size:      mgl64.Vec2{3, 3},
		Speed:     5,
		Direction: DirDown,
		Boundary:  BoundaryRemove,
	})

	e.fastTick(testTick)

	if _, ok := e.store.Get("p1"); ok {
		t.Error("Пешеход за границей поля должен быть удален")
	}
}

func TestCompliantVehicleStopsAtRedLine(t *testing.T) {
	def := walkerDef()
	def.Player = nil
	def.SignalControl = true
	def.Levels[0].Zones = []ZoneSpec{
		{ID: "line", Type: ZoneStopLine, Rect: Rect{X: 40, Y: 30, W: 6, H: 20}},
	}
	e := newTestEngine(def)
	e.prepareRound()

	e.store.Add(&Entity{
		ID:        "car",
		Kind:      KindVehicle,
		Pos:       mgl64.Vec2{30, 35},
		Size:      mgl64.Vec2{8, 5},
		Speed:     1.6,
		Direction: DirRight,
		Boundary:  BoundaryWrap,
	})

	// На красный законопослушная машина встает у линии
	for i := 0; i < 10; i++ {
		e.fastTick(testTick)
	}
	car, _ := e.store.Get("car")
	if !car.IsStopped {
		t.Fatal("Машина должна остановиться перед стоп-линией на красный")
	}
	stoppedX := car.Pos.X()

	// Зеленый отпускает
	e.SetInput("Space", true)
	e.fastTick(testTick)
	e.SetInput("Space", false)
	e.fastTick(testTick)

	car, _ = e.store.Get("car")
	if car.IsStopped || car.Pos.X() <= stoppedX {
		t.Error("На зеленый машина должна поехать дальше")
	}
}

func TestCompliantVehicleQueuesBehindStopped(t *testing.T) {
	def := walkerDef()
	def.Player = nil
	def.SignalControl = true
	def.Levels[0].Zones = []ZoneSpec{
		{ID: "line", Type: ZoneStopLine, Rect: Rect{X: 40, Y: 30, W: 6, H: 20}},
	}
	e := newTestEngine(def)
	e.prepareRound()

	e.store.Add(&Entity{
		ID:        "leader",
		Kind:      KindVehicle,
		Pos:       mgl64.Vec2{30, 35},
		Size:      mgl64.Vec2{8, 5},
		Speed:     1.6,
		Direction: DirRight,
		Boundary:  BoundaryWrap,
	})
	e.store.Add(&Entity{
		ID:        "follower",
		Kind:      KindVehicle,
		Pos:       mgl64.Vec2{12, 35},
		Size:      mgl64.Vec2{8, 5},
		Speed:     1.6,
		Direction: DirRight,
		Boundary:  BoundaryWrap,
	})

	// Колонна встает за лидером: машины не наезжают друг на друга
	for i := 0; i < 20; i++ {
		e.fastTick(testTick)
	}

	leader, _ := e.store.Get("leader")
	follower, _ := e.store.Get("follower")
	if !leader.IsStopped {
		t.Fatal("Лидер должен остановиться перед стоп-линией на красный")
	}
	if !follower.IsStopped {
		t.Fatal("Следующая машина должна встать за лидером")
	}
	if follower.Bounds().Intersects(leader.Bounds()) {
		t.Errorf("Машины в колонне не накладываются: лидер %.1f, следом %.1f",
			leader.Pos.X(), follower.Pos.X())
	}

	// Зеленый распускает колонну
	e.SetInput("Space", true)
	e.fastTick(testTick)

	leader, _ = e.store.Get("leader")
	follower, _ = e.store.Get("follower")
	if leader.IsStopped || follower.IsStopped {
		t.Error("На зеленый вся колонна должна поехать")
	}
}

func TestDangerousVehicleIgnoresRed(t *testing.T) {
	def := walkerDef()
	def.Player = nil
	def.SignalControl = true
	def.Levels[0].Zones = []ZoneSpec{
		{ID: "line", Type: ZoneStopLine, Rect: Rect{X: 40, Y: 30, W: 6, H: 20}},
	}
	e := newTestEngine(def)
	e.prepareRound()

	e.store.Add(&Entity{
		ID:        "rogue",
		Kind:      KindVehicle,
		Pos:       mgl64.Vec2{30, 35},
		Size:      mgl64.Vec2{8, 5},
		Speed:     1.6,
		Direction: DirRight,
		Dangerous: true,
		Boundary:  BoundaryWrap,
	})

	for i := 0; i < 10; i++ {
		e.fastTick(testTick)
	}

	rogue, _ := e.store.Get("rogue")
	if rogue.IsStopped {
		t.Error("Нарушитель не останавливается на красный")
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{-10, 350},
		{370, 10},
		{720, 0},
		{-360, 0},
	}
	for _, tt := range tests {
		if got := normalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("normalizeAngle(%.0f) = %.1f, ожидалось %.1f", tt.in, got, tt.want)
		}
	}
}
