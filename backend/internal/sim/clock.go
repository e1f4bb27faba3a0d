package sim

import (
	"context"
	"log"
	"sync"
	"time"
)

// Clock источник тиков раунда: быстрый тик (движение/коллизии)
// и медленный тик (обратный отсчет времени).
// Пауза реализуется полной остановкой часов, а не пропуском логики -
// иначе накапливается дрейф позиции и счета.
type Clock struct {
	fastInterval time.Duration
	slowInterval time.Duration

	onFast func(deltaTime time.Duration)
	onSlow func()

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	tickCount    uint64
	lastTickTime time.Time

	perfMonitor *PerformanceMonitor
	logger      *log.Logger
}

// NewClock создает часы с двумя независимыми каденциями.
// onFast получает реальную дельту между тиками, onSlow вызывается раз в slowInterval.
func NewClock(fastInterval, slowInterval time.Duration, logger *log.Logger) *Clock {
	if fastInterval <= 0 {
		fastInterval = 50 * time.Millisecond
	}
	if slowInterval <= 0 {
		slowInterval = time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	c := &Clock{
		fastInterval: fastInterval,
		slowInterval: slowInterval,
		perfMonitor:  NewPerformanceMonitor(50, fastInterval/4),
		logger:       logger,
	}

	// Инициализируем метрики тиков заранее: ошибка (паника) может
	// случиться раньше первого успешного замера
	c.perfMonitor.initSystemMetrics("fast_tick")
	c.perfMonitor.initSystemMetrics("slow_tick")

	return c
}

// SetCallbacks устанавливает обработчики тиков. Вызывается до Start.
func (c *Clock) SetCallbacks(onFast func(time.Duration), onSlow func()) {
	c.onFast = onFast
	c.onSlow = onSlow
}

// Start запускает цикл тиков. Повторный вызов при работающих часах - no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	c.lastTickTime = time.Now()

	go c.run(ctx, c.done)
}

// Stop останавливает часы. Идемпотентен. После возврата гарантированно
// не будет ни одного вызова обработчиков: ждем завершения цикла.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done
}

// Running сообщает, идут ли часы
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// TickCount возвращает число быстрых тиков с момента создания часов
func (c *Clock) TickCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickCount
}

// PerfMonitor возвращает монитор производительности тиков
func (c *Clock) PerfMonitor() *PerformanceMonitor {
	return c.perfMonitor
}

// run основной цикл. Оба тикера живут в одной горутине, поэтому обработчики
// никогда не выполняются параллельно и не реентерабельны.
func (c *Clock) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	fast := time.NewTicker(c.fastInterval)
	defer fast.Stop()
	slow := time.NewTicker(c.slowInterval)
	defer slow.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case tickTime := <-fast.C:
			c.executeFast(tickTime)

		case <-slow.C:
			c.executeSlow()
		}
	}
}

// executeFast выполняет быстрый тик с защитой от паники и замером времени
func (c *Clock) executeFast(tickTime time.Time) {
	c.mu.Lock()
	deltaTime := tickTime.Sub(c.lastTickTime)
	c.lastTickTime = tickTime
	c.tickCount++
	c.mu.Unlock()

	if deltaTime > c.fastInterval*2 {
		c.logger.Printf("[Clock] ПРЕДУПРЕЖДЕНИЕ: большая задержка между тиками: %v (ожидалось: %v)",
			deltaTime, c.fastInterval)
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("[Clock] КРИТИЧЕСКАЯ ОШИБКА в быстром тике: %v", r)
			c.perfMonitor.recordError("fast_tick")
		}
	}()

	start := time.Now()
	if c.onFast != nil {
		c.onFast(deltaTime)
	}
	c.perfMonitor.recordExecution("fast_tick", time.Since(start))
}

// executeSlow выполняет медленный тик с защитой от паники
func (c *Clock) executeSlow() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("[Clock] КРИТИЧЕСКАЯ ОШИБКА в медленном тике: %v", r)
			c.perfMonitor.recordError("slow_tick")
		}
	}()

	start := time.Now()
	if c.onSlow != nil {
		c.onSlow()
	}
	c.perfMonitor.recordExecution("slow_tick", time.Since(start))
}
