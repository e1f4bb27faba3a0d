package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"learn2go/backend/internal/sim"
	"learn2go/backend/internal/telemetry"
)

// Интервал рассылки снимков совпадает с быстрым тиком движка:
// чаще нет смысла, состояние между тиками не меняется.
const snapshotInterval = 50 * time.Millisecond

// streamLoop рассылает клиенту снимки состояния его движка.
// Снимок уходит только когда тик продвинулся или сменилось
// состояние раунда, чтобы не гонять неизменные кадры.
func (s *WSServer) streamLoop(session *Session, stop <-chan struct{}) {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	var lastTick uint64
	lastState := sim.RoundState("")
	sentAny := false

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			engine := session.Engine()
			if engine == nil {
				continue
			}

			snap := engine.Snapshot()
			if sentAny && snap.Tick == lastTick && snap.Round.State == lastState && len(snap.Events) == 0 {
				continue
			}
			sentAny = true
			lastTick = snap.Tick
			lastState = snap.Round.State

			if err := s.sendSnapshot(session, snap); err != nil {
				s.logger.Printf("[WSServer] Сессия %s: ошибка отправки снимка: %v", session.ID, err)
				return
			}

			s.logPlayerState(session, snap)
		}
	}
}

// logPlayerState пишет состояние игрока в телеметрию
func (s *WSServer) logPlayerState(session *Session, snap sim.Snapshot) {
	if s.telemetry == nil {
		return
	}

	for _, e := range snap.Entities {
		if e.Kind != sim.KindPlayer {
			continue
		}
		s.telemetry.LogObjectState(
			session.ID, session.GameID(), e.ID, string(e.Kind),
			telemetry.Vector2{X: e.Pos.X(), Y: e.Pos.Y()}, e.Speed, e.Angle,
		)
		break
	}

	s.telemetry.PrintStatsIfDue()
}

func writeJSONResponse(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
