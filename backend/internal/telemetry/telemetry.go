package telemetry

import (
	"encoding/json"
	"log"
	"math"
	"sync"
	"time"
)

// Vector2 структура для 2D вектора
type Vector2 struct {
	X, Y float64
}

// TelemetryData структура для сбора телеметрии объекта симуляции
type TelemetryData struct {
	Timestamp  int64   `json:"timestamp"`   // Время в миллисекундах
	SessionID  string  `json:"session_id"`  // ID игровой сессии
	GameID     string  `json:"game_id"`     // ID мини-игры
	ObjectID   string  `json:"object_id"`   // ID сущности
	ObjectKind string  `json:"object_kind"` // Тип сущности (player, vehicle, pedestrian...)
	Position   Vector2 `json:"position"`    // Позиция
	Speed      float64 `json:"speed"`       // Модуль скорости
	Angle      float64 `json:"angle"`       // Курс (для управляемой машины)
	Event      string  `json:"event,omitempty"`
}

// TelemetryManager управляет сбором и выводом телеметрии
type TelemetryManager struct {
	enabled    bool
	data       []TelemetryData
	mutex      sync.RWMutex
	maxEntries int

	// Счетчики для статистики
	counters      map[string]int
	lastPrint     time.Time
	printInterval time.Duration

	logger *log.Logger
}

// NewTelemetryManager создает новый менеджер телеметрии
func NewTelemetryManager(logger *log.Logger) *TelemetryManager {
	if logger == nil {
		logger = log.Default()
	}

	return &TelemetryManager{
		enabled:       true,
		data:          make([]TelemetryData, 0),
		maxEntries:    200, // Храним последние 200 записей
		counters:      make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: 2 * time.Second,
		logger:        logger,
	}
}

// SetEnabled включает или выключает сбор телеметрии
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	tm.enabled = enabled
}

// LogObjectState записывает состояние сущности
func (tm *TelemetryManager) LogObjectState(sessionID, gameID, objectID, objectKind string,
	position Vector2, speed, angle float64) {

	if !tm.isEnabled() {
		return
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	entry := TelemetryData{
		Timestamp:  time.Now().UnixMilli(),
		SessionID:  sessionID,
		GameID:     gameID,
		ObjectID:   objectID,
		ObjectKind: objectKind,
		Position:   position,
		Speed:      math.Abs(speed),
		Angle:      angle,
	}

	tm.data = append(tm.data, entry)

	// Ограничиваем размер буфера
	if len(tm.data) > tm.maxEntries {
		tm.data = tm.data[1:]
	}

	tm.counters[objectKind]++
}

// LogEvent записывает скоринговое событие раунда
func (tm *TelemetryManager) LogEvent(sessionID, gameID, event string) {
	if !tm.isEnabled() {
		return
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.data = append(tm.data, TelemetryData{
		Timestamp: time.Now().UnixMilli(),
		SessionID: sessionID,
		GameID:    gameID,
		Event:     event,
	})
	if len(tm.data) > tm.maxEntries {
		tm.data = tm.data[1:]
	}

	tm.counters["event_"+event]++
}

// PrintStatsIfDue периодически выводит накопленные счетчики в лог
func (tm *TelemetryManager) PrintStatsIfDue() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if time.Since(tm.lastPrint) < tm.printInterval {
		return
	}
	tm.lastPrint = time.Now()

	if len(tm.counters) == 0 {
		return
	}

	stats, err := json.Marshal(tm.counters)
	if err != nil {
		tm.logger.Printf("[Telemetry] Ошибка сериализации статистики: %v", err)
		return
	}

	tm.logger.Printf("[Telemetry] Счетчики: %s", string(stats))
}

// GetRecentData возвращает копию последних записей телеметрии
func (tm *TelemetryManager) GetRecentData(limit int) []TelemetryData {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	if limit <= 0 || limit > len(tm.data) {
		limit = len(tm.data)
	}

	result := make([]TelemetryData, limit)
	copy(result, tm.data[len(tm.data)-limit:])
	return result
}

// GetCounters возвращает копию счетчиков
func (tm *TelemetryManager) GetCounters() map[string]int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	result := make(map[string]int, len(tm.counters))
	for k, v := range tm.counters {
		result[k] = v
	}
	return result
}

func (tm *TelemetryManager) isEnabled() bool {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return tm.enabled
}
