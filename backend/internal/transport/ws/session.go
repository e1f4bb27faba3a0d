package ws

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"learn2go/backend/internal/sim"
)

// Session одна игровая сессия: соединение, выбранная мини-игра и ее движок.
// Каждый клиент владеет отдельным движком - раунды сессий независимы.
type Session struct {
	ID       string
	Conn     *SafeWriter
	JoinTime time.Time

	mu     sync.RWMutex
	engine *sim.Engine
	gameID string
	format string // Формат снимков: json | msgpack

	// Сводка активности за сессию
	roundsPlayed   int
	bestPercentage int
}

// Engine возвращает текущий движок сессии (nil до выбора игры)
func (s *Session) Engine() *sim.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// GameID возвращает ID выбранной мини-игры
func (s *Session) GameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameID
}

// SetFormat выбирает формат сериализации снимков
func (s *Session) SetFormat(format string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if format == FormatMsgpack {
		s.format = FormatMsgpack
	} else {
		s.format = FormatJSON
	}
}

// RecordRound фиксирует завершенный раунд в сводке сессии.
// Возвращает обновленные счетчики для терминального сообщения.
func (s *Session) RecordRound(percentage int) (best, rounds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roundsPlayed++
	if percentage > s.bestPercentage {
		s.bestPercentage = percentage
	}
	return s.bestPercentage, s.roundsPlayed
}

// WriteSnapshot отправляет снимок в формате, выбранном клиентом
func (s *Session) WriteSnapshot(snap sim.Snapshot) error {
	s.mu.RLock()
	format := s.format
	s.mu.RUnlock()

	msg := NewSnapshotMessage(snap)

	if format == FormatMsgpack {
		data, err := msgpack.Marshal(msg)
		if err != nil {
			return fmt.Errorf("msgpack marshal: %w", err)
		}
		return s.Conn.WriteMessage(websocket.BinaryMessage, data)
	}

	return s.Conn.WriteJSON(msg)
}

// SessionManager реестр активных сессий
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	games  map[string]*sim.GameDefinition
	logger *log.Logger
}

// NewSessionManager создает реестр сессий поверх каталога игр
func NewSessionManager(games map[string]*sim.GameDefinition, logger *log.Logger) *SessionManager {
	if logger == nil {
		logger = log.Default()
	}

	return &SessionManager{
		sessions: make(map[string]*Session),
		games:    games,
		logger:   logger,
	}
}

// Create регистрирует новую сессию для соединения
func (sm *SessionManager) Create(conn *SafeWriter) *Session {
	session := &Session{
		ID:       uuid.New().String(),
		Conn:     conn,
		JoinTime: time.Now(),
		format:   FormatJSON,
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	sm.logger.Printf("[Sessions] Создана сессия %s (%s), всего активных: %d",
		session.ID, conn.RemoteAddr(), sm.Count())

	return session
}

// SelectGame создает движок выбранной игры для сессии.
// Предыдущий движок, если был, сбрасывается.
func (sm *SessionManager) SelectGame(session *Session, gameID string) error {
	def, ok := sm.games[gameID]
	if !ok {
		return fmt.Errorf("неизвестная игра: %q", gameID)
	}

	session.mu.Lock()
	old := session.engine
	session.engine = sim.NewEngine(def, sm.logger)
	session.gameID = gameID
	session.mu.Unlock()

	if old != nil {
		old.Restart()
	}

	sm.logger.Printf("[Sessions] Сессия %s выбрала игру %q", session.ID, gameID)
	return nil
}

// Remove снимает сессию с учета и останавливает ее движок
func (sm *SessionManager) Remove(id string) {
	sm.mu.Lock()
	session, exists := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()

	if !exists {
		return
	}

	if engine := session.Engine(); engine != nil {
		engine.Restart() // Останавливает таймеры раунда
	}

	sm.logger.Printf("[Sessions] Сессия %s удалена, всего активных: %d", id, sm.Count())
}

// Count количество активных сессий
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Stats сводка по всем активным сессиям для мониторинга
func (sm *SessionManager) Stats() map[string]interface{} {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	perSession := make([]map[string]interface{}, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		entry := map[string]interface{}{
			"id":        s.ID,
			"game":      s.GameID(),
			"joined_at": s.JoinTime.Format(time.RFC3339),
		}
		if engine := s.Engine(); engine != nil {
			entry["engine"] = engine.Stats()
		}
		perSession = append(perSession, entry)
	}

	return map[string]interface{}{
		"active_sessions": len(sm.sessions),
		"sessions":        perSession,
	}
}
