package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"learn2go/backend/internal/sim"
	"learn2go/backend/internal/telemetry"
)

const defaultPingInterval = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Обучающий стенд: принимаем любые источники
	},
}

// WSServer принимает websocket-клиентов и ведет их игровые сессии
type WSServer struct {
	sessions  *SessionManager
	games     map[string]*sim.GameDefinition
	telemetry *telemetry.TelemetryManager
	logger    *log.Logger

	pingInterval time.Duration
	netSim       netSimState
}

// NewWSServer создает сервер поверх каталога мини-игр
func NewWSServer(games map[string]*sim.GameDefinition, tm *telemetry.TelemetryManager, logger *log.Logger) *WSServer {
	if logger == nil {
		logger = log.Default()
	}

	return &WSServer{
		sessions:     NewSessionManager(games, logger),
		games:        games,
		telemetry:    tm,
		logger:       logger,
		pingInterval: defaultPingInterval,
		netSim:       netSimState{delayed: make(chan delayedSnapshot, 256)},
	}
}

// HandleWS обрабатывает одно websocket-соединение до его закрытия
func (s *WSServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[WSServer] Ошибка апгрейда соединения: %v", err)
		return
	}

	safeConn := NewSafeWriter(conn)
	session := s.sessions.Create(safeConn)

	defer func() {
		s.sessions.Remove(session.ID)
		safeConn.Close()
	}()

	// Приветствие: ID сессии и каталог доступных игр
	if err := safeConn.WriteJSON(NewInfoMessage("Подключено. Выберите игру сообщением hello.", session.ID)); err != nil {
		s.logger.Printf("[WSServer] Ошибка приветствия %s: %v", session.ID, err)
		return
	}
	if err := safeConn.WriteJSON(NewGamesMessage(s.games)); err != nil {
		s.logger.Printf("[WSServer] Ошибка каталога игр %s: %v", session.ID, err)
		return
	}

	stop := make(chan struct{})
	defer close(stop)

	go s.pingLoop(session, stop)
	go s.streamLoop(session, stop)

	s.readLoop(session)
}

// readLoop читает и исполняет управляющие сообщения клиента
func (s *WSServer) readLoop(session *Session) {
	for {
		_, data, err := session.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("[WSServer] Сессия %s: ошибка чтения: %v", session.ID, err)
			}
			return
		}

		msg, err := ParseMessage(data)
		if err != nil {
			s.logger.Printf("[WSServer] Сессия %s: некорректное сообщение: %v", session.ID, err)
			session.Conn.WriteJSON(NewErrorMessage("некорректное сообщение"))
			continue
		}

		s.dispatch(session, msg)
	}
}

// dispatch применяет одно управляющее сообщение к сессии
func (s *WSServer) dispatch(session *Session, msg *ControlMessage) {
	switch msg.Type {
	case MessageTypeHello:
		s.handleHello(session, msg)

	case MessageTypePing:
		session.Conn.WriteJSON(NewPongMessage(msg.ClientTime))

	case MessageTypeStart:
		if engine := session.Engine(); engine != nil {
			engine.Start()
		} else {
			session.Conn.WriteJSON(NewErrorMessage("игра не выбрана"))
		}

	case MessageTypePause:
		if engine := session.Engine(); engine != nil {
			engine.Pause()
		}

	case MessageTypeResume:
		if engine := session.Engine(); engine != nil {
			engine.Resume()
		}

	case MessageTypeRestart:
		if engine := session.Engine(); engine != nil {
			engine.Restart()
		}

	case MessageTypeInput:
		if engine := session.Engine(); engine != nil {
			engine.SetInput(msg.Key, msg.Pressed)
		}

	default:
		s.logger.Printf("[WSServer] Сессия %s: неизвестный тип сообщения %q", session.ID, msg.Type)
		session.Conn.WriteJSON(NewErrorMessage("неизвестный тип сообщения: " + msg.Type))
	}
}

// handleHello выбирает игру и формат снимков для сессии
func (s *WSServer) handleHello(session *Session, msg *ControlMessage) {
	if msg.Format != "" {
		session.SetFormat(msg.Format)
	}

	if msg.Game == "" {
		session.Conn.WriteJSON(NewErrorMessage("в hello не указана игра"))
		return
	}

	if err := s.sessions.SelectGame(session, msg.Game); err != nil {
		session.Conn.WriteJSON(NewErrorMessage(err.Error()))
		return
	}

	engine := session.Engine()
	engine.SetOnComplete(func(percentage int) {
		best, rounds := session.RecordRound(percentage)

		if s.telemetry != nil {
			s.telemetry.LogEvent(session.ID, session.GameID(), "round_complete")
		}

		if err := session.Conn.WriteJSON(NewCompleteMessage(percentage, best, rounds)); err != nil {
			s.logger.Printf("[WSServer] Сессия %s: ошибка отправки итога: %v", session.ID, err)
		}
	})

	session.Conn.WriteJSON(NewInfoMessage("Игра выбрана: "+engine.Def().Name, session.ID))
}

// pingLoop периодически шлет ping-кадры для контроля живости соединения
func (s *WSServer) pingLoop(session *Session, stop <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := session.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleStats отдает метрики сервера для мониторинга
func (s *WSServer) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.sessions.Stats()
	stats["server_time"] = GetCurrentServerTime()
	stats["network_sim"] = s.GetNetworkSimulation()
	if s.telemetry != nil {
		stats["telemetry"] = s.telemetry.GetCounters()
		stats["telemetry_recent"] = s.telemetry.GetRecentData(20)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSONResponse(w, stats)
}
