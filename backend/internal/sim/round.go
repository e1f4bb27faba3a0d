package sim

import "math"

// RoundState состояние жизненного цикла раунда
type RoundState string

const (
	StateWaiting  RoundState = "waiting"  // Показ инструкций, ожидание старта
	StatePlaying  RoundState = "playing"  // Идет симуляция
	StatePaused   RoundState = "paused"   // Таймеры полностью остановлены
	StateFinished RoundState = "finished" // Терминальное состояние раунда
)

// Round агрегированное состояние одного раунда. Сущности сюда не попадают -
// только счетчики; записями владеет Store.
type Round struct {
	State      RoundState `json:"state" msgpack:"state"`
	Score      int        `json:"score" msgpack:"score"`
	TimeLeft   int        `json:"time_left" msgpack:"time_left"`
	Violations int        `json:"violations" msgpack:"violations"`
	Successes  int        `json:"successes" msgpack:"successes"`
	Level      int        `json:"level" msgpack:"level"`
	Lives      int        `json:"lives" msgpack:"lives"`
	Percentage int        `json:"percentage" msgpack:"percentage"` // Заполняется при завершении
}

// ApplyDelta применяет изменение очков с ограничением снизу:
// счет никогда не уходит в минус.
func (r *Round) ApplyDelta(delta int) {
	r.Score += delta
	if r.Score < 0 {
		r.Score = 0
	}
}

// FinalPercentage вычисляет итоговый процент раунда.
// Штраф за нарушения вычитается один раз при завершении, не по тикам.
func FinalPercentage(rawScore, violations, violationCoeff, maxPossible int) int {
	if maxPossible <= 0 {
		return 0
	}

	adjusted := rawScore - violations*violationCoeff
	pct := int(math.Round(float64(adjusted) / float64(maxPossible) * 100))

	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// EventType тип игрового события, произошедшего за тик
type EventType string

const (
	EventCollision EventType = "collision"
	EventNearMiss  EventType = "near_miss"
	EventSafeEntry EventType = "safe_entry"
	EventViolation EventType = "violation"
	EventParked    EventType = "parked"
	EventLevelUp   EventType = "level_up"
	EventSignal    EventType = "signal"
	EventLifeLost  EventType = "life_lost"
	EventFinished  EventType = "finished"
)

// Event скоринговое событие тика. Передается клиенту в снимке
// для отображения всплывающих сообщений.
type Event struct {
	Type     EventType `json:"type" msgpack:"type"`
	EntityID string    `json:"entity_id,omitempty" msgpack:"entity_id,omitempty"`
	ZoneID   string    `json:"zone_id,omitempty" msgpack:"zone_id,omitempty"`
	Delta    int       `json:"delta,omitempty" msgpack:"delta,omitempty"`
	Tier     string    `json:"tier,omitempty" msgpack:"tier,omitempty"`
	Tick     uint64    `json:"tick" msgpack:"tick"`
}
