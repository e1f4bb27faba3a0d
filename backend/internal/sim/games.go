package sim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// BoundaryPolicy поведение сущности на границе игрового поля
type BoundaryPolicy string

const (
	BoundaryWrap   BoundaryPolicy = "wrap"   // Поток машин: выход за край - вход с противоположного
	BoundaryRemove BoundaryPolicy = "remove" // Пешеход дошел до края - сущность уничтожается
	BoundaryClamp  BoundaryPolicy = "clamp"  // Игрок: позиция ограничивается полем
)

// ControlMode способ управления игроком
type ControlMode string

const (
	ControlVehicle ControlMode = "vehicle" // Машина: газ/тормоз/руль, инерция
	ControlWalker  ControlMode = "walker"  // Пешеход: прямое движение по стрелкам
)

// Subtype подтип спавнимой сущности со своей скоростью.
// Дети бегают быстрее взрослых, пожилые идут медленнее - это часть
// обучающего содержания, скорости подобраны под ощущение опасности.
type Subtype struct {
	Name   string
	Speed  float64
	Weight int // Относительная вероятность выбора
}

// SpawnRule правило периодического спавна одного типа сущностей
type SpawnRule struct {
	Kind        Kind
	Size        mgl64.Vec2
	Interval    time.Duration // Базовый интервал между попытками спавна
	MinInterval time.Duration // Нижняя граница при росте сложности
	Probability float64       // Вероятность спавна при каждой попытке
	Subtypes    []Subtype
	Directions  []Direction // Допустимые направления; пусто - любое
	Lanes       []float64   // Фиксированные полосы (координата поперек движения)
	DangerProb  float64     // Вероятность флага dangerous
	Boundary    BoundaryPolicy
}

// ZoneSpec описание статичной зоны уровня
type ZoneSpec struct {
	ID          string
	Type        ZoneType
	Rect        Rect
	TargetAngle float64 // Целевой курс для парковки
	Order       int     // Порядок прохождения чекпоинтов
	Signal      SignalColor
}

// EntitySpec описание препятствия, размещаемого при инициализации уровня
type EntitySpec struct {
	Kind      Kind
	Pos       mgl64.Vec2
	Size      mgl64.Vec2
	Direction Direction
	Speed     float64
	Subtype   string
	Dangerous bool
}

// PlayerSpec параметры управляемой сущности
type PlayerSpec struct {
	Control      ControlMode
	Size         mgl64.Vec2
	WalkSpeed    float64 // Скорость пешехода (units/тик)
	Accel        float64 // Прирост скорости за тик при удержании газа
	MaxSpeed     float64
	ReverseMax   float64 // Максимальная скорость задним ходом (по модулю)
	Friction     float64 // Множитель затухания скорости без газа
	BrakeDecel   float64 // Фиксированное замедление при торможении, units/тик
	SteerRate    float64 // Градусы поворота за тик
	SteerEpsilon float64 // Ниже этой скорости руль не действует
	Lives        int     // 0 - без жизней
}

// Level раскладка одного уровня/сегмента
type Level struct {
	PlayerStart mgl64.Vec2
	PlayerAngle float64
	Zones       []ZoneSpec
	Obstacles   []EntitySpec
}

// ScoreTable таблица очков. Штрафы задаются отрицательными значениями.
type ScoreTable struct {
	Success     int // Успешное компл. действие (остановка на красный, переход, чекпоинт)
	Violation   int // Нарушение (проезд на красный, превышение скорости)
	Collision   int // Столкновение
	NearMiss    int // Почти столкновение
	ParkPerfect int // Бонус за точную парковку
	ParkLoose   int // Бонус за парковку в свободном допуске
}

// ParkingSpec пороги точности парковки
type ParkingSpec struct {
	PerfectDist  float64 // Дистанция до центра места для высшего бонуса
	PerfectAngle float64 // Угловое отклонение для высшего бонуса
	LooseDist    float64
	LooseAngle   float64
	StopEpsilon  float64 // Модуль скорости, ниже которого машина считается остановившейся
}

// GameDefinition декларативное описание мини-игры.
// Один движок + разные определения вместо пяти копий игрового цикла.
type GameDefinition struct {
	ID   string
	Name string

	Bounds   mgl64.Vec2 // Размер игрового поля в условных единицах
	FastTick time.Duration
	SlowTick time.Duration

	RoundTime int // Секунды на раунд
	Caps      map[Kind]int

	Player *PlayerSpec // nil - игрок управляет не сущностью, а сигналом
	Spawns []SpawnRule
	Levels []Level

	Scoring          ScoreTable
	MaxPossibleScore int
	ViolationCoeff   int // Вычитается за каждое нарушение при подсчете процента

	NearMissRadius float64      // Радиус "почти столкновения"; 0 - не классифицируется
	Parking        *ParkingSpec // nil - игра без парковки
	SignalControl  bool         // Кнопка действия переключает светофор
	SpeedLimit     float64      // Лимит скорости для камер; 0 - без лимита

	DifficultyInterval time.Duration
	DifficultyStep     float64
	DifficultyMax      float64
}

// BuiltinGames возвращает определения всех встроенных мини-игр
func BuiltinGames() map[string]*GameDefinition {
	games := []*GameDefinition{
		TrafficLightGame(),
		CrossingGame(),
		ParkingGame(),
		SpeedLimitGame(),
		QuestGame(),
	}

	result := make(map[string]*GameDefinition, len(games))
	for _, g := range games {
		result[g.ID] = g
	}
	return result
}

// TrafficLightGame игрок управляет светофором на перекрестке:
// машины должны останавливаться на красный, пешеходы - безопасно переходить.
func TrafficLightGame() *GameDefinition {
	return &GameDefinition{
		ID:       "traffic-light",
		Name:     "Управление светофором",
		Bounds:   mgl64.Vec2{100, 100},
		FastTick: 50 * time.Millisecond,
		SlowTick: time.Second,

		RoundTime: 60,
		Caps: map[Kind]int{
			KindVehicle:    6,
			KindPedestrian: 8,
		},

		SignalControl: true,

		Spawns: []SpawnRule{
			{
				Kind:        KindVehicle,
				Size:        mgl64.Vec2{8, 5},
				Interval:    2 * time.Second,
				MinInterval: 700 * time.Millisecond,
				Probability: 0.6,
				Directions:  []Direction{DirRight},
				Lanes:       []float64{42, 53},
				DangerProb:  0.2, // Часть водителей игнорирует красный
				Boundary:    BoundaryWrap,
				Subtypes: []Subtype{
					{Name: "car", Speed: 1.6, Weight: 5},
					{Name: "truck", Speed: 1.1, Weight: 2},
					{Name: "bus", Speed: 1.3, Weight: 2},
				},
			},
			{
				Kind:        KindPedestrian,
				Size:        mgl64.Vec2{3, 3},
				Interval:    3 * time.Second,
				MinInterval: 1200 * time.Millisecond,
				Probability: 0.5,
				Directions:  []Direction{DirDown},
				Lanes:       []float64{48, 52},
				Boundary:    BoundaryRemove,
				Subtypes: []Subtype{
					{Name: "adult", Speed: 1.2, Weight: 5},
					{Name: "child", Speed: 1.5, Weight: 2},
					{Name: "elderly", Speed: 0.8, Weight: 2},
				},
			},
		},

		Levels: []Level{
			{
				Zones: []ZoneSpec{
					{ID: "stop_line_main", Type: ZoneStopLine, Rect: Rect{X: 34, Y: 40, W: 6, H: 20}, Signal: SignalRed},
					{ID: "crosswalk_main", Type: ZoneCrosswalk, Rect: Rect{X: 44, Y: 40, W: 12, H: 20}},
				},
			},
		},

		Scoring: ScoreTable{
			Success:   10,
			Violation: -15,
			Collision: -30,
		},
		MaxPossibleScore: 300,
		ViolationCoeff:   10,

		DifficultyInterval: 10 * time.Second,
		DifficultyStep:     0.25,
		DifficultyMax:      3.0,
	}
}

// CrossingGame игрок-пешеход переходит дорогу через полосы движущегося транспорта
func CrossingGame() *GameDefinition {
	return &GameDefinition{
		ID:       "crossing",
		Name:     "Пешеходный переход",
		Bounds:   mgl64.Vec2{100, 100},
		FastTick: 50 * time.Millisecond,
		SlowTick: time.Second,

		RoundTime: 45,
		Caps: map[Kind]int{
			KindVehicle: 6,
			KindCyclist: 3,
		},

		Player: &PlayerSpec{
			Control:   ControlWalker,
			Size:      mgl64.Vec2{4, 4},
			WalkSpeed: 1.4,
			Lives:     3,
		},

		NearMissRadius: 7.5, // Половина разницы радиусов 30 и 15 в пикселях клиента

		Spawns: []SpawnRule{
			{
				Kind:        KindVehicle,
				Size:        mgl64.Vec2{9, 5},
				Interval:    1500 * time.Millisecond,
				MinInterval: 500 * time.Millisecond,
				Probability: 0.7,
				Directions:  []Direction{DirLeft, DirRight},
				Lanes:       []float64{25, 38, 55, 68},
				DangerProb:  1.0, // Любая машина опасна для пешехода
				Boundary:    BoundaryWrap,
				Subtypes: []Subtype{
					{Name: "car", Speed: 1.8, Weight: 5},
					{Name: "truck", Speed: 1.2, Weight: 2},
					{Name: "motorbike", Speed: 2.4, Weight: 1},
				},
			},
			{
				Kind:        KindCyclist,
				Size:        mgl64.Vec2{4, 4},
				Interval:    2500 * time.Millisecond,
				MinInterval: 1 * time.Second,
				Probability: 0.4,
				Directions:  []Direction{DirLeft, DirRight},
				Lanes:       []float64{18, 76},
				DangerProb:  1.0,
				Boundary:    BoundaryWrap,
				Subtypes: []Subtype{
					{Name: "cyclist", Speed: 1.5, Weight: 1},
				},
			},
		},

		Levels: []Level{
			{
				PlayerStart: mgl64.Vec2{48, 90},
				Zones: []ZoneSpec{
					{ID: "destination", Type: ZoneDestination, Rect: Rect{X: 40, Y: 0, W: 20, H: 8}},
					{ID: "crosswalk", Type: ZoneCrosswalk, Rect: Rect{X: 44, Y: 10, W: 12, H: 80}},
				},
			},
		},

		Scoring: ScoreTable{
			Success:   25,
			Collision: -30,
			NearMiss:  -5,
		},
		MaxPossibleScore: 250,
		ViolationCoeff:   10,

		DifficultyInterval: 10 * time.Second,
		DifficultyStep:     0.25,
		DifficultyMax:      3.0,
	}
}

// ParkingGame игрок паркует машину в размеченное место; бонус зависит от точности
func ParkingGame() *GameDefinition {
	player := &PlayerSpec{
		Control:      ControlVehicle,
		Size:         mgl64.Vec2{6, 10},
		Accel:        0.25,
		MaxSpeed:     2.5,
		ReverseMax:   1.2,
		Friction:     0.9,
		BrakeDecel:   0.5,
		SteerRate:    3.5,
		SteerEpsilon: 0.2,
	}

	return &GameDefinition{
		ID:       "parking",
		Name:     "Парковка",
		Bounds:   mgl64.Vec2{100, 100},
		FastTick: 50 * time.Millisecond,
		SlowTick: time.Second,

		RoundTime: 90,
		Caps:      map[Kind]int{},

		Player: player,

		Parking: &ParkingSpec{
			PerfectDist:  5,
			PerfectAngle: 5,
			LooseDist:    15,
			LooseAngle:   15,
			StopEpsilon:  0.1,
		},

		Levels: []Level{
			{
				PlayerStart: mgl64.Vec2{10, 85},
				PlayerAngle: 0,
				Zones: []ZoneSpec{
					{ID: "spot_1", Type: ZoneParkingSpot, Rect: Rect{X: 70, Y: 20, W: 10, H: 14}, TargetAngle: 0},
				},
				Obstacles: []EntitySpec{
					{Kind: KindObstacle, Pos: mgl64.Vec2{56, 20}, Size: mgl64.Vec2{8, 12}, Dangerous: true},
					{Kind: KindObstacle, Pos: mgl64.Vec2{84, 20}, Size: mgl64.Vec2{8, 12}, Dangerous: true},
				},
			},
			{
				PlayerStart: mgl64.Vec2{10, 10},
				PlayerAngle: 90,
				Zones: []ZoneSpec{
					{ID: "spot_2", Type: ZoneParkingSpot, Rect: Rect{X: 44, Y: 70, W: 14, H: 10}, TargetAngle: 90},
				},
				Obstacles: []EntitySpec{
					{Kind: KindObstacle, Pos: mgl64.Vec2{24, 70}, Size: mgl64.Vec2{14, 9}, Dangerous: true},
					{Kind: KindObstacle, Pos: mgl64.Vec2{64, 70}, Size: mgl64.Vec2{14, 9}, Dangerous: true},
					{Kind: KindObstacle, Pos: mgl64.Vec2{44, 40}, Size: mgl64.Vec2{20, 6}, Dangerous: true},
				},
			},
			{
				PlayerStart: mgl64.Vec2{90, 90},
				PlayerAngle: 270,
				Zones: []ZoneSpec{
					{ID: "spot_3", Type: ZoneParkingSpot, Rect: Rect{X: 12, Y: 12, W: 10, H: 14}, TargetAngle: 180},
				},
				Obstacles: []EntitySpec{
					{Kind: KindObstacle, Pos: mgl64.Vec2{30, 12}, Size: mgl64.Vec2{8, 12}, Dangerous: true},
					{Kind: KindObstacle, Pos: mgl64.Vec2{50, 50}, Size: mgl64.Vec2{12, 12}, Dangerous: true},
				},
			},
		},

		Scoring: ScoreTable{
			Collision:   -20,
			ParkPerfect: 50,
			ParkLoose:   25,
		},
		MaxPossibleScore: 150,
		ViolationCoeff:   10,
	}
}

// SpeedLimitGame игрок едет по сегментам дороги и проходит камеры контроля скорости
func SpeedLimitGame() *GameDefinition {
	player := &PlayerSpec{
		Control:      ControlVehicle,
		Size:         mgl64.Vec2{5, 9},
		Accel:        0.3,
		MaxSpeed:     4.0,
		ReverseMax:   1.0,
		Friction:     0.9,
		BrakeDecel:   0.5,
		SteerRate:    4.0,
		SteerEpsilon: 0.2,
	}

	makeSegment := func(cameraY float64, exitY float64) Level {
		return Level{
			PlayerStart: mgl64.Vec2{48, 92},
			PlayerAngle: 0,
			Zones: []ZoneSpec{
				{ID: "camera", Type: ZoneCamera, Rect: Rect{X: 30, Y: cameraY, W: 40, H: 8}},
				{ID: "exit", Type: ZoneSegmentExit, Rect: Rect{X: 30, Y: exitY, W: 40, H: 6}},
			},
			Obstacles: []EntitySpec{
				{Kind: KindObstacle, Pos: mgl64.Vec2{20, cameraY + 20}, Size: mgl64.Vec2{6, 6}, Dangerous: true},
				{Kind: KindObstacle, Pos: mgl64.Vec2{74, cameraY - 18}, Size: mgl64.Vec2{6, 6}, Dangerous: true},
			},
		}
	}

	return &GameDefinition{
		ID:       "speed-limit",
		Name:     "Соблюдай скорость",
		Bounds:   mgl64.Vec2{100, 100},
		FastTick: 50 * time.Millisecond,
		SlowTick: time.Second,

		RoundTime: 75,
		Caps:      map[Kind]int{},

		Player:     player,
		SpeedLimit: 2.2,

		Levels: []Level{
			makeSegment(55, 2),
			makeSegment(40, 2),
			makeSegment(62, 2),
		},

		Scoring: ScoreTable{
			Success:   20,
			Violation: -15,
			Collision: -20,
		},
		MaxPossibleScore: 180,
		ViolationCoeff:   10,
	}
}

// QuestGame "дорожный квест": пройти чекпоинты по порядку среди потока машин
func QuestGame() *GameDefinition {
	return &GameDefinition{
		ID:       "quest",
		Name:     "Дорожный квест",
		Bounds:   mgl64.Vec2{100, 100},
		FastTick: 50 * time.Millisecond,
		SlowTick: time.Second,

		RoundTime: 120,
		Caps: map[Kind]int{
			KindVehicle: 5,
		},

		Player: &PlayerSpec{
			Control:   ControlWalker,
			Size:      mgl64.Vec2{4, 4},
			WalkSpeed: 1.3,
			Lives:     3,
		},

		NearMissRadius: 6,

		Spawns: []SpawnRule{
			{
				Kind:        KindVehicle,
				Size:        mgl64.Vec2{9, 5},
				Interval:    2 * time.Second,
				MinInterval: 800 * time.Millisecond,
				Probability: 0.5,
				Directions:  []Direction{DirLeft, DirRight},
				Lanes:       []float64{30, 50, 70},
				DangerProb:  1.0,
				Boundary:    BoundaryWrap,
				Subtypes: []Subtype{
					{Name: "car", Speed: 1.6, Weight: 4},
					{Name: "truck", Speed: 1.1, Weight: 2},
				},
			},
		},

		Levels: []Level{
			{
				PlayerStart: mgl64.Vec2{5, 92},
				Zones: []ZoneSpec{
					{ID: "cp_1", Type: ZoneCheckpoint, Rect: Rect{X: 80, Y: 80, W: 10, H: 10}, Order: 0},
					{ID: "cp_2", Type: ZoneCheckpoint, Rect: Rect{X: 10, Y: 42, W: 10, H: 10}, Order: 1},
					{ID: "cp_3", Type: ZoneCheckpoint, Rect: Rect{X: 82, Y: 6, W: 10, H: 10}, Order: 2},
					{ID: "crosswalk_q", Type: ZoneCrosswalk, Rect: Rect{X: 44, Y: 24, W: 12, H: 56}, Signal: SignalGreen},
				},
			},
			{
				PlayerStart: mgl64.Vec2{92, 92},
				Zones: []ZoneSpec{
					{ID: "cp_1", Type: ZoneCheckpoint, Rect: Rect{X: 8, Y: 82, W: 10, H: 10}, Order: 0},
					{ID: "cp_2", Type: ZoneCheckpoint, Rect: Rect{X: 80, Y: 46, W: 10, H: 10}, Order: 1},
					{ID: "cp_3", Type: ZoneCheckpoint, Rect: Rect{X: 8, Y: 8, W: 10, H: 10}, Order: 2},
					{ID: "cp_4", Type: ZoneCheckpoint, Rect: Rect{X: 46, Y: 4, W: 10, H: 10}, Order: 3},
				},
			},
		},

		Scoring: ScoreTable{
			Success:   15,
			Collision: -25,
			NearMiss:  -5,
		},
		MaxPossibleScore: 200,
		ViolationCoeff:   10,

		DifficultyInterval: 10 * time.Second,
		DifficultyStep:     0.25,
		DifficultyMax:      3.0,
	}
}
