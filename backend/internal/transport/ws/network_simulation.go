package ws

import (
	"math/rand"
	"sync"
	"time"

	"learn2go/backend/internal/sim"
)

// NetworkSimulation имитация плохих сетевых условий при рассылке снимков.
// Нужна для проверки, как клиентская интерполяция переживает задержку
// и потерю кадров, не выходя из локального стенда.
type NetworkSimulation struct {
	Enabled         bool
	BaseLatency     time.Duration
	LatencyVariance time.Duration // Джиттер
	PacketLoss      float64       // Доля потерянных снимков, 0.0 - 1.0
}

type delayedSnapshot struct {
	session *Session
	snap    sim.Snapshot
	sendAt  time.Time
}

// netSimState состояние имитатора внутри сервера
type netSimState struct {
	mu      sync.RWMutex
	cfg     NetworkSimulation
	delayed chan delayedSnapshot
	once    sync.Once
}

// SetNetworkSimulation устанавливает параметры имитации сети
func (s *WSServer) SetNetworkSimulation(cfg NetworkSimulation) {
	s.netSim.mu.Lock()
	s.netSim.cfg = cfg
	s.netSim.mu.Unlock()

	if cfg.Enabled {
		s.netSim.once.Do(func() {
			go s.deliverDelayedSnapshots()
		})
	}

	s.logger.Printf("[NetworkSim] Настройки обновлены: enabled=%v latency=%v jitter=%v loss=%.1f%%",
		cfg.Enabled, cfg.BaseLatency, cfg.LatencyVariance, cfg.PacketLoss*100)
}

// GetNetworkSimulation возвращает текущие настройки имитации
func (s *WSServer) GetNetworkSimulation() NetworkSimulation {
	s.netSim.mu.RLock()
	defer s.netSim.mu.RUnlock()
	return s.netSim.cfg
}

// sendSnapshot отправляет снимок с учетом имитируемых сетевых условий
func (s *WSServer) sendSnapshot(session *Session, snap sim.Snapshot) error {
	s.netSim.mu.RLock()
	cfg := s.netSim.cfg
	s.netSim.mu.RUnlock()

	if !cfg.Enabled {
		return session.WriteSnapshot(snap)
	}

	if cfg.PacketLoss > 0 && rand.Float64() < cfg.PacketLoss {
		return nil // Снимок "потерян"; следующий тик принесет свежий
	}

	delay := cfg.BaseLatency
	if cfg.LatencyVariance > 0 {
		jitter := time.Duration(rand.Float64() * float64(cfg.LatencyVariance))
		if rand.Float64() < 0.5 {
			jitter = -jitter
		}
		delay += jitter
	}

	if delay <= 0 {
		return session.WriteSnapshot(snap)
	}

	select {
	case s.netSim.delayed <- delayedSnapshot{session: session, snap: snap, sendAt: time.Now().Add(delay)}:
		return nil
	default:
		// Буфер переполнен: лучше отправить сразу, чем молча потерять
		return session.WriteSnapshot(snap)
	}
}

// deliverDelayedSnapshots доставляет отложенные снимки по расписанию
func (s *WSServer) deliverDelayedSnapshots() {
	for msg := range s.netSim.delayed {
		if wait := time.Until(msg.sendAt); wait > 0 {
			time.Sleep(wait)
		}
		if err := msg.session.WriteSnapshot(msg.snap); err != nil {
			s.logger.Printf("[NetworkSim] Ошибка отправки отложенного снимка сессии %s: %v",
				msg.session.ID, err)
		}
	}
}

// EnableNetworkSimulation включает имитацию по имени профиля.
// Неизвестный профиль выключает имитацию.
func (s *WSServer) EnableNetworkSimulation(profile string) {
	var cfg NetworkSimulation

	switch profile {
	case "mobile_3g":
		cfg = NetworkSimulation{Enabled: true, BaseLatency: 100 * time.Millisecond, LatencyVariance: 50 * time.Millisecond, PacketLoss: 0.02}
	case "mobile_4g":
		cfg = NetworkSimulation{Enabled: true, BaseLatency: 50 * time.Millisecond, LatencyVariance: 20 * time.Millisecond, PacketLoss: 0.01}
	case "wifi_poor":
		cfg = NetworkSimulation{Enabled: true, BaseLatency: 80 * time.Millisecond, LatencyVariance: 40 * time.Millisecond, PacketLoss: 0.03}
	case "school_lan":
		cfg = NetworkSimulation{Enabled: true, BaseLatency: 15 * time.Millisecond, LatencyVariance: 5 * time.Millisecond, PacketLoss: 0.001}
	default:
		cfg = NetworkSimulation{Enabled: false}
	}

	s.SetNetworkSimulation(cfg)
}
