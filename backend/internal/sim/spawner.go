package sim

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// SpawnerSystem вероятностный спавн препятствий по таймеру.
// Лимиты живых сущностей проверяются до создания: при достижении лимита
// спавн молча пропускается, никогда не откладывается в очередь.
type SpawnerSystem struct {
	name     string
	priority int
	engine   *Engine

	// Накопленное симуляционное время с последнего спавна каждого типа.
	// Настенные часы не годятся: пауза не должна накапливать "долг" спавна
	sinceSpawn map[Kind]time.Duration
}

// NewSpawnerSystem создает систему спавна для движка
func NewSpawnerSystem(engine *Engine) *SpawnerSystem {
	return &SpawnerSystem{
		name:       "SpawnerSystem",
		priority:   10, // До движения: новая сущность двигается уже в этом тике
		engine:     engine,
		sinceSpawn: make(map[Kind]time.Duration),
	}
}

// Update проверяет все правила спавна
func (ss *SpawnerSystem) Update(deltaTime time.Duration) error {
	mult := ss.engine.SpeedMult()

	for i := range ss.engine.def.Spawns {
		rule := &ss.engine.def.Spawns[i]

		// Интервал сокращается с ростом сложности, но не ниже MinInterval
		interval := time.Duration(float64(rule.Interval) / mult)
		if interval < rule.MinInterval {
			interval = rule.MinInterval
		}

		ss.sinceSpawn[rule.Kind] += deltaTime
		if ss.sinceSpawn[rule.Kind] < interval {
			continue
		}
		ss.sinceSpawn[rule.Kind] = 0

		if ss.engine.rng.Float64() > rule.Probability {
			continue
		}

		if !ss.engine.store.CanSpawn(rule.Kind) {
			// Лимит достигнут - пропускаем, рост числа сущностей ограничен
			continue
		}

		entity := ss.spawnOne(rule, mult)
		ss.engine.store.Add(entity)
	}

	return nil
}

// spawnOne создает одну сущность на краю поля по правилу спавна.
// Множитель сложности применяется только к новым сущностям -
// уже живые не ускоряются, чтобы не было видимых скачков.
func (ss *SpawnerSystem) spawnOne(rule *SpawnRule, mult float64) *Entity {
	rng := ss.engine.rng
	bounds := ss.engine.def.Bounds

	dirs := rule.Directions
	if len(dirs) == 0 {
		dirs = Directions
	}
	dir := dirs[rng.Intn(len(dirs))]
	sub := pickSubtype(rule.Subtypes, rng.Intn(totalWeight(rule.Subtypes)))

	// Позиция: за краем поля со стороны, противоположной движению
	var pos mgl64.Vec2
	lane := rng.Float64() * crossAxis(dir, bounds)
	if len(rule.Lanes) > 0 {
		lane = rule.Lanes[rng.Intn(len(rule.Lanes))]
	}

	switch dir {
	case DirRight:
		pos = mgl64.Vec2{-rule.Size.X(), lane}
	case DirLeft:
		pos = mgl64.Vec2{bounds.X(), lane}
	case DirDown:
		pos = mgl64.Vec2{lane, -rule.Size.Y()}
	case DirUp:
		pos = mgl64.Vec2{lane, bounds.Y()}
	}

	entity := &Entity{
		ID:        fmt.Sprintf("%s_%d", rule.Kind, ss.engine.store.NextSeq()),
		Kind:      rule.Kind,
		Pos:       pos,
		Size:      rule.Size,
		Speed:     sub.Speed * mult,
		Direction: dir,
		Subtype:   sub.Name,
		Dangerous: rng.Float64() < rule.DangerProb,
		Boundary:  rule.Boundary,
	}

	ss.engine.logger.Printf("[Spawner] Создан %s (%s) в (%.1f, %.1f), скорость %.2f, направление %s",
		entity.ID, entity.Subtype, pos.X(), pos.Y(), entity.Speed, dir)

	return entity
}

// crossAxis возвращает размер поля поперек направления движения
func crossAxis(dir Direction, bounds mgl64.Vec2) float64 {
	if dir == DirLeft || dir == DirRight {
		return bounds.Y()
	}
	return bounds.X()
}

func totalWeight(subs []Subtype) int {
	total := 0
	for _, s := range subs {
		total += s.Weight
	}
	if total == 0 {
		return 1
	}
	return total
}

// pickSubtype выбирает подтип по взвешенной случайной величине
func pickSubtype(subs []Subtype, roll int) Subtype {
	if len(subs) == 0 {
		return Subtype{Speed: 1}
	}
	for _, s := range subs {
		roll -= s.Weight
		if roll < 0 {
			return s
		}
	}
	return subs[len(subs)-1]
}

// GetName возвращает имя системы
func (ss *SpawnerSystem) GetName() string {
	return ss.name
}

// GetPriority возвращает приоритет системы
func (ss *SpawnerSystem) GetPriority() int {
	return ss.priority
}
