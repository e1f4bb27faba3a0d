package sim

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestClockTicks(t *testing.T) {
	var fastTicks, slowTicks atomic.Int64

	clock := NewClock(10*time.Millisecond, 50*time.Millisecond, discardLogger())
	clock.SetCallbacks(
		func(dt time.Duration) { fastTicks.Add(1) },
		func() { slowTicks.Add(1) },
	)

	clock.Start()
	time.Sleep(120 * time.Millisecond)
	clock.Stop()

	if fastTicks.Load() < 5 {
		t.Errorf("За 120 мс ожидалось минимум 5 быстрых тиков, получили %d", fastTicks.Load())
	}
	if slowTicks.Load() < 1 {
		t.Errorf("За 120 мс ожидался минимум 1 медленный тик, получили %d", slowTicks.Load())
	}
	if clock.TickCount() == 0 {
		t.Error("Счетчик тиков не должен быть нулевым после работы часов")
	}
}

func TestClockStopIsSynchronous(t *testing.T) {
	var ticks atomic.Int64

	clock := NewClock(5*time.Millisecond, time.Second, discardLogger())
	clock.SetCallbacks(func(dt time.Duration) { ticks.Add(1) }, nil)

	clock.Start()
	time.Sleep(30 * time.Millisecond)
	clock.Stop()

	// После возврата Stop обработчики больше не вызываются
	after := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if ticks.Load() != after {
		t.Errorf("После Stop пришли еще тики: было %d, стало %d", after, ticks.Load())
	}

	if clock.Running() {
		t.Error("После Stop часы не должны считаться работающими")
	}
}

func TestClockStopIdempotent(t *testing.T) {
	clock := NewClock(10*time.Millisecond, time.Second, discardLogger())
	clock.SetCallbacks(func(dt time.Duration) {}, nil)

	// Stop без Start и повторный Stop не должны блокироваться или паниковать
	clock.Stop()

	clock.Start()
	clock.Stop()
	clock.Stop()
}

func TestClockRestartAfterStop(t *testing.T) {
	var ticks atomic.Int64

	clock := NewClock(5*time.Millisecond, time.Second, discardLogger())
	clock.SetCallbacks(func(dt time.Duration) { ticks.Add(1) }, nil)

	clock.Start()
	time.Sleep(20 * time.Millisecond)
	clock.Stop()

	before := ticks.Load()

	clock.Start()
	time.Sleep(30 * time.Millisecond)
	clock.Stop()

	if ticks.Load() <= before {
		t.Error("После повторного Start тики должны продолжиться")
	}
}

func TestClockStartIdempotent(t *testing.T) {
	clock := NewClock(10*time.Millisecond, time.Second, discardLogger())
	clock.SetCallbacks(func(dt time.Duration) {}, nil)

	clock.Start()
	clock.Start() // Повторный Start при работающих часах - no-op
	defer clock.Stop()

	if !clock.Running() {
		t.Error("Часы должны работать после Start")
	}
}

func TestClockRecoversFromPanic(t *testing.T) {
	var calls atomic.Int64

	clock := NewClock(5*time.Millisecond, time.Second, discardLogger())
	clock.SetCallbacks(func(dt time.Duration) {
		calls.Add(1)
		panic("тестовая паника")
	}, nil)

	clock.Start()
	time.Sleep(30 * time.Millisecond)
	clock.Stop()

	// Паника в обработчике не валит цикл: тики продолжаются
	if calls.Load() < 2 {
		t.Errorf("После паники тики должны продолжаться, вызовов: %d", calls.Load())
	}

	stats := clock.PerfMonitor().GetSystemsStats()
	fastStats, ok := stats["fast_tick"].(map[string]interface{})
	if !ok {
		t.Fatal("Метрики быстрого тика должны существовать после паники")
	}

	// Паника фиксируется как ошибка, а не теряется молча
	errors, _ := fastStats["errors"].(uint64)
	if errors == 0 {
		t.Errorf("Паники должны учитываться в счетчике ошибок, получили %d", errors)
	}
}

func TestClockMetricsInitializedBeforeFirstTick(t *testing.T) {
	clock := NewClock(10*time.Millisecond, time.Second, discardLogger())

	// Записи метрик создаются при создании часов, до первого замера:
	// иначе ошибка до первого успешного тика пропадает
	stats := clock.PerfMonitor().GetSystemsStats()
	if stats["fast_tick"] == nil || stats["slow_tick"] == nil {
		t.Error("Метрики fast_tick и slow_tick должны существовать сразу после создания часов")
	}
}
