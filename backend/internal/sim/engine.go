package sim

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// TickSystem интерфейс игровой системы, выполняемой каждый быстрый тик
type TickSystem interface {
	Update(deltaTime time.Duration) error
	GetName() string
	GetPriority() int // Приоритет выполнения (меньше = раньше)
}

// Snapshot снимок состояния для рендеринга на клиенте
type Snapshot struct {
	Entities   []Entity    `json:"entities" msgpack:"entities"`
	Round      Round       `json:"round" msgpack:"round"`
	Signal     SignalColor `json:"signal,omitempty" msgpack:"signal,omitempty"`
	Events     []Event     `json:"events,omitempty" msgpack:"events,omitempty"`
	Tick       uint64      `json:"tick" msgpack:"tick"`
	ServerTime int64       `json:"server_time" msgpack:"server_time"`
}

// Engine движок одной мини-игры: владеет хранилищем сущностей, раундом
// и часами. Один движок - один активный раунд; два раунда одновременно
// не существуют, рестарт полностью переинициализирует состояние.
type Engine struct {
	def    *GameDefinition
	logger *log.Logger
	rng    *rand.Rand

	clock *Clock
	input *InputState
	store *Store

	systems      []TickSystem
	collisionSys *CollisionSystem

	mu            sync.RWMutex
	round         Round
	signal        SignalColor
	progress      int // Индекс текущего чекпоинта квеста
	speedMult     float64
	playSeconds   int
	pending       []Event
	contacts      []contact
	lastToggle    bool
	onComplete    func(percentage int)
	completeFired bool

	playerID string
}

// NewEngine создает движок для определения игры
func NewEngine(def *GameDefinition, logger *log.Logger) *Engine {
	return NewEngineWithSeed(def, logger, time.Now().UnixNano())
}

// NewEngineWithSeed создает движок с фиксированным зерном генератора
// (детерминированные прогоны в тестах)
func NewEngineWithSeed(def *GameDefinition, logger *log.Logger, seed int64) *Engine {
	if logger == nil {
		logger = log.Default()
	}

	e := &Engine{
		def:       def,
		logger:    logger,
		rng:       rand.New(rand.NewSource(seed)),
		input:     NewInputState(),
		store:     NewStore(def.Caps, logger),
		signal:    SignalRed,
		speedMult: 1.0,
		round:     Round{State: StateWaiting},
		playerID:  "player",
	}

	e.clock = NewClock(def.FastTick, def.SlowTick, logger)
	e.clock.SetCallbacks(e.fastTick, e.slowTick)

	e.collisionSys = NewCollisionSystem(e)
	e.registerSystem(NewSpawnerSystem(e))
	e.registerSystem(NewMovementSystem(e))
	e.registerSystem(e.collisionSys)
	e.registerSystem(NewScoringSystem(e))

	return e
}

// registerSystem добавляет систему с сортировкой по приоритету
func (e *Engine) registerSystem(system TickSystem) {
	e.systems = append(e.systems, system)

	for i := len(e.systems) - 1; i > 0; i-- {
		if e.systems[i].GetPriority() < e.systems[i-1].GetPriority() {
			e.systems[i], e.systems[i-1] = e.systems[i-1], e.systems[i]
		} else {
			break
		}
	}

	// Инициализируем метрики для системы
	e.clock.PerfMonitor().initSystemMetrics(system.GetName())
}

// === Управление жизненным циклом раунда ===

// Start запускает раунд. Допустим только из waiting: повторный старт
// во время игры не имеет наблюдаемого эффекта.
func (e *Engine) Start() {
	if !e.prepareRound() {
		return
	}
	e.clock.Start()
}

// prepareRound переводит движок в playing и инициализирует раунд.
// Возвращает false, если старт недопустим из текущего состояния.
func (e *Engine) prepareRound() bool {
	e.mu.Lock()
	if e.round.State != StateWaiting {
		e.mu.Unlock()
		return false
	}

	lives := 0
	if e.def.Player != nil {
		lives = e.def.Player.Lives
	}

	e.round = Round{
		State:    StatePlaying,
		TimeLeft: e.def.RoundTime,
		Lives:    lives,
	}
	e.signal = SignalRed
	e.speedMult = 1.0
	e.playSeconds = 0
	e.progress = 0
	e.pending = nil
	e.contacts = nil
	e.lastToggle = false
	e.completeFired = false
	e.mu.Unlock()

	e.input.Reset()
	e.applyLevel(0)

	e.logger.Printf("[Engine] Старт раунда %q: %d сек, жизней %d", e.def.ID, e.def.RoundTime, lives)
	return true
}

// Pause приостанавливает раунд, полностью останавливая таймеры.
// Пауза не из playing - no-op, как и повторная пауза.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.round.State != StatePlaying {
		e.mu.Unlock()
		return
	}
	e.round.State = StatePaused
	e.mu.Unlock()

	// Stop ждет завершения текущего тика: после возврата дрейфа нет
	e.clock.Stop()
	e.logger.Printf("[Engine] Раунд %q на паузе", e.def.ID)
}

// Resume возобновляет раунд из паузы
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.round.State != StatePaused {
		e.mu.Unlock()
		return
	}
	e.round.State = StatePlaying
	e.mu.Unlock()

	e.clock.Start()
	e.logger.Printf("[Engine] Раунд %q возобновлен", e.def.ID)
}

// Restart возвращает движок в waiting. Из finished это "продолжить":
// именно здесь ровно один раз вызывается onComplete с итоговым процентом.
func (e *Engine) Restart() {
	e.mu.Lock()
	var fire func(int)
	var pct int
	if e.round.State == StateFinished && !e.completeFired && e.onComplete != nil {
		fire = e.onComplete
		pct = e.round.Percentage
		e.completeFired = true
	}
	e.round = Round{State: StateWaiting}
	e.pending = nil
	e.contacts = nil
	e.mu.Unlock()

	e.clock.Stop()
	e.store.Clear()
	e.collisionSys.Reset()
	e.input.Reset()

	if fire != nil {
		fire(pct)
	}

	e.logger.Printf("[Engine] Раунд %q сброшен в ожидание", e.def.ID)
}

// SetInput передает состояние клавиши. Синхронно, без очереди.
func (e *Engine) SetInput(key string, pressed bool) {
	e.input.SetKey(key, pressed)
}

// SetOnComplete устанавливает терминальный обратный вызов раунда
func (e *Engine) SetOnComplete(fn func(percentage int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

// State возвращает текущее состояние раунда
func (e *Engine) State() RoundState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round.State
}

// RoundInfo возвращает копию раундовых счетчиков
func (e *Engine) RoundInfo() Round {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round
}

// Def возвращает определение игры движка
func (e *Engine) Def() *GameDefinition {
	return e.def
}

// Snapshot возвращает снимок состояния и опустошает ленту событий
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	events := e.pending
	e.pending = nil
	round := e.round
	signal := e.signal
	e.mu.Unlock()

	return Snapshot{
		Entities:   e.store.All(),
		Round:      round,
		Signal:     signal,
		Events:     events,
		Tick:       e.clock.TickCount(),
		ServerTime: time.Now().UnixMilli(),
	}
}

// Stats возвращает статистику движка для мониторинга
func (e *Engine) Stats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return map[string]interface{}{
		"game":       e.def.ID,
		"state":      string(e.round.State),
		"score":      e.round.Score,
		"violations": e.round.Violations,
		"level":      e.round.Level,
		"speed_mult": e.speedMult,
		"tick_count": e.clock.TickCount(),
		"entities":   len(e.store.All()),
		"systems":    e.clock.PerfMonitor().GetSystemsStats(),
	}
}

// === Тиковый конвейер ===

// fastTick один шаг симуляции. Порядок стадий фиксирован:
// чтение ввода → движение → классификация коллизий → скоринг.
func (e *Engine) fastTick(deltaTime time.Duration) {
	if e.State() != StatePlaying {
		return
	}

	e.processToggle()

	for _, system := range e.systems {
		start := time.Now()
		if err := system.Update(deltaTime); err != nil {
			e.logger.Printf("[Engine] Ошибка в системе %s: %v", system.GetName(), err)
			e.clock.PerfMonitor().recordError(system.GetName())
		}
		e.clock.PerfMonitor().recordExecution(system.GetName(), time.Since(start))
	}
}

// slowTick обратный отсчет и эскалация сложности
func (e *Engine) slowTick() {
	e.mu.Lock()
	if e.round.State != StatePlaying {
		e.mu.Unlock()
		return
	}

	e.round.TimeLeft--
	e.playSeconds++

	// Рост сложности: только будущие спавны, живые сущности не ускоряются
	if e.def.DifficultyInterval > 0 {
		intervalSec := int(e.def.DifficultyInterval / time.Second)
		if intervalSec > 0 && e.playSeconds%intervalSec == 0 && e.speedMult < e.def.DifficultyMax {
			e.speedMult += e.def.DifficultyStep
			if e.speedMult > e.def.DifficultyMax {
				e.speedMult = e.def.DifficultyMax
			}
			e.logger.Printf("[Engine] Сложность повышена: множитель %.2f", e.speedMult)
		}
	}

	timeUp := e.round.TimeLeft <= 0
	e.mu.Unlock()

	if timeUp {
		e.logger.Printf("[Engine] Время раунда %q вышло", e.def.ID)
		e.finish()
	}
}

// processToggle стадия чтения ввода: переключение светофора по фронту нажатия
func (e *Engine) processToggle() {
	if !e.def.SignalControl {
		return
	}

	pressed := e.input.IsPressed(ActionToggle)

	e.mu.Lock()
	edge := pressed && !e.lastToggle
	e.lastToggle = pressed
	if !edge {
		e.mu.Unlock()
		return
	}

	if e.signal == SignalRed {
		e.signal = SignalGreen
	} else {
		e.signal = SignalRed
	}
	signal := e.signal
	e.mu.Unlock()

	// Зоны стоп-линий отражают текущий сигнал в снимке
	for _, z := range e.store.All(KindZone) {
		if z.Zone == ZoneStopLine {
			e.store.Update(z.ID, func(zone *Entity) { zone.Signal = signal })
		}
	}

	e.emit(Event{Type: EventSignal, Tier: string(signal)})
	e.logger.Printf("[Engine] Сигнал переключен: %s", signal)
}

// === Внутренние операции, используемые системами ===

// Signal текущий сигнал светофора игры
func (e *Engine) Signal() SignalColor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.signal
}

// SpeedMult текущий множитель сложности
func (e *Engine) SpeedMult() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.speedMult
}

// Progress индекс следующего чекпоинта
func (e *Engine) Progress() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.progress
}

func (e *Engine) advanceProgress() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress++
}

// countCheckpoints количество чекпоинтов текущего уровня
func (e *Engine) countCheckpoints() int {
	count := 0
	for _, z := range e.store.All(KindZone) {
		if z.Zone == ZoneCheckpoint {
			count++
		}
	}
	return count
}

// stopLineZones зоны стоп-линий текущего уровня
func (e *Engine) stopLineZones() []Entity {
	var result []Entity
	for _, z := range e.store.All(KindZone) {
		if z.Zone == ZoneStopLine {
			result = append(result, z)
		}
	}
	return result
}

func (e *Engine) addContact(c contact) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contacts = append(e.contacts, c)
}

func (e *Engine) takeContacts() []contact {
	e.mu.Lock()
	defer e.mu.Unlock()
	contacts := e.contacts
	e.contacts = nil
	return contacts
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev.Tick = e.clock.TickCount()
	e.pending = append(e.pending, ev)
}

// applyDelta изменяет счет с ограничением снизу нулем
func (e *Engine) applyDelta(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.round.ApplyDelta(delta)
}

func (e *Engine) incViolations() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.round.Violations++
}

func (e *Engine) incSuccesses() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.round.Successes++
}

// loseLife снимает жизнь (если игра с жизнями) и возвращает игрока на старт
func (e *Engine) loseLife() {
	if e.def.Player == nil {
		return
	}

	e.resetPlayer()

	if e.def.Player.Lives <= 0 {
		return // Игра без жизней: только сброс позиции
	}

	e.mu.Lock()
	e.round.Lives--
	lives := e.round.Lives
	e.mu.Unlock()

	e.store.Update(e.playerID, func(p *Entity) { p.Lives = lives })
	e.emit(Event{Type: EventLifeLost})
	e.logger.Printf("[Engine] Потеряна жизнь, осталось %d", lives)

	if lives <= 0 {
		e.finish()
	}
}

// resetPlayer возвращает игрока на стартовую позицию текущего уровня
func (e *Engine) resetPlayer() {
	if e.def.Player == nil {
		return
	}

	level := e.currentLevel()
	e.store.Update(e.playerID, func(p *Entity) {
		p.Pos = level.PlayerStart
		p.Angle = level.PlayerAngle
		p.Speed = 0
		p.IsParked = false
	})
}

// advanceLevel переход к следующему уровню/сегменту. Счет и нарушения
// переносятся, раскладка сущностей переинициализируется полностью.
func (e *Engine) advanceLevel() {
	e.mu.Lock()
	e.round.Level++
	next := e.round.Level
	e.mu.Unlock()

	if next >= len(e.def.Levels) {
		e.logger.Printf("[Engine] Все уровни раунда %q пройдены", e.def.ID)
		e.finish()
		return
	}

	e.emit(Event{Type: EventLevelUp})
	e.logger.Printf("[Engine] Переход на уровень %d", next+1)
	e.applyLevel(next)
}

// currentLevel раскладка текущего уровня
func (e *Engine) currentLevel() Level {
	e.mu.RLock()
	idx := e.round.Level
	e.mu.RUnlock()

	if len(e.def.Levels) == 0 {
		return Level{}
	}
	if idx >= len(e.def.Levels) {
		idx = len(e.def.Levels) - 1
	}
	return e.def.Levels[idx]
}

// applyLevel инициализирует раскладку уровня: зоны, препятствия, игрок
func (e *Engine) applyLevel(idx int) {
	e.store.Clear()
	e.collisionSys.Reset()

	e.mu.Lock()
	e.progress = 0
	e.contacts = nil
	signal := e.signal
	e.mu.Unlock()

	var level Level
	if idx < len(e.def.Levels) {
		level = e.def.Levels[idx]
	}

	for _, zs := range level.Zones {
		zoneSignal := zs.Signal
		if zs.Type == ZoneStopLine {
			zoneSignal = signal
		}
		e.store.Add(&Entity{
			ID:          zs.ID,
			Kind:        KindZone,
			Pos:         mgl64.Vec2{zs.Rect.X, zs.Rect.Y},
			Size:        mgl64.Vec2{zs.Rect.W, zs.Rect.H},
			Zone:        zs.Type,
			Signal:      zoneSignal,
			TargetAngle: zs.TargetAngle,
			Order:       zs.Order,
		})
	}

	for _, os := range level.Obstacles {
		e.store.Add(&Entity{
			ID:        fmt.Sprintf("obstacle_%d", e.store.NextSeq()),
			Kind:      os.Kind,
			Pos:       os.Pos,
			Size:      os.Size,
			Direction: os.Direction,
			Speed:     os.Speed,
			Subtype:   os.Subtype,
			Dangerous: os.Dangerous,
		})
	}

	if e.def.Player != nil {
		e.mu.RLock()
		lives := e.round.Lives
		e.mu.RUnlock()

		e.store.Add(&Entity{
			ID:       e.playerID,
			Kind:     KindPlayer,
			Pos:      level.PlayerStart,
			Size:     e.def.Player.Size,
			Angle:    level.PlayerAngle,
			Lives:    lives,
			Boundary: BoundaryClamp,
		})
	}
}

// finish терминальный переход раунда. Процент считается здесь один раз;
// onComplete откладывается до явного продолжения игроком (Restart).
func (e *Engine) finish() {
	e.mu.Lock()
	if e.round.State == StateFinished {
		e.mu.Unlock()
		return
	}
	e.round.State = StateFinished
	e.round.Percentage = FinalPercentage(
		e.round.Score, e.round.Violations, e.def.ViolationCoeff, e.def.MaxPossibleScore)
	pct := e.round.Percentage
	e.mu.Unlock()

	e.emit(Event{Type: EventFinished, Delta: pct})
	e.logger.Printf("[Engine] Раунд %q завершен: счет %d, нарушений %d, процент %d%%",
		e.def.ID, e.RoundInfo().Score, e.RoundInfo().Violations, pct)

	// Останавливаем часы из горутины: finish вызывается изнутри тика,
	// синхронный Stop здесь ждал бы сам себя
	go e.clock.Stop()
}
