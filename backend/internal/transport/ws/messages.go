package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"learn2go/backend/internal/sim"
)

// Типы входящих сообщений (от клиента)
const (
	MessageTypeHello   = "hello" // Выбор игры и формата снимков
	MessageTypeStart   = "start"
	MessageTypePause   = "pause"
	MessageTypeResume  = "resume"
	MessageTypeRestart = "restart"
	MessageTypeInput   = "input"
	MessageTypePing    = "ping"
)

// Типы исходящих сообщений (к клиенту)
const (
	MessageTypeInfo     = "info"
	MessageTypeGames    = "games"
	MessageTypeSnapshot = "snapshot"
	MessageTypeComplete = "complete"
	MessageTypePong     = "pong"
	MessageTypeError    = "error"
)

// Форматы сериализации снимков
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// ControlMessage входящее управляющее сообщение клиента
type ControlMessage struct {
	Type       string `json:"type"`
	Game       string `json:"game,omitempty"`    // Для hello: ID мини-игры
	Format     string `json:"format,omitempty"`  // Для hello: json | msgpack
	Key        string `json:"key,omitempty"`     // Для input: имя клавиши
	Pressed    bool   `json:"pressed,omitempty"` // Для input: нажата/отпущена
	ClientTime int64  `json:"client_time,omitempty"`
}

// ParseMessage разбирает входящее сообщение клиента
func ParseMessage(data []byte) (*ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message without type")
	}
	return &msg, nil
}

// InfoMessage служебное сообщение клиенту
type InfoMessage struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	SessionID  string `json:"session_id,omitempty"`
	ServerTime int64  `json:"server_time"`
}

// NewInfoMessage создает служебное сообщение
func NewInfoMessage(message, sessionID string) *InfoMessage {
	return &InfoMessage{
		Type:       MessageTypeInfo,
		Message:    message,
		SessionID:  sessionID,
		ServerTime: GetCurrentServerTime(),
	}
}

// ErrorMessage сообщение об ошибке обработки
type ErrorMessage struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	ServerTime int64  `json:"server_time"`
}

// NewErrorMessage создает сообщение об ошибке
func NewErrorMessage(message string) *ErrorMessage {
	return &ErrorMessage{
		Type:       MessageTypeError,
		Message:    message,
		ServerTime: GetCurrentServerTime(),
	}
}

// PongMessage ответ на пинг с эхом клиентского времени
type PongMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"server_time"`
	ClientTime int64  `json:"client_time,omitempty"`
}

// NewPongMessage создает ответ на пинг
func NewPongMessage(clientTime int64) *PongMessage {
	return &PongMessage{
		Type:       MessageTypePong,
		ServerTime: GetCurrentServerTime(),
		ClientTime: clientTime,
	}
}

// GameInfo краткое описание мини-игры для списка на клиенте
type GameInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RoundTime int    `json:"round_time"`
	Levels    int    `json:"levels"`
}

// GamesMessage список доступных мини-игр
type GamesMessage struct {
	Type  string     `json:"type"`
	Games []GameInfo `json:"games"`
}

// NewGamesMessage создает список игр из определений
func NewGamesMessage(defs map[string]*sim.GameDefinition) *GamesMessage {
	games := make([]GameInfo, 0, len(defs))
	for _, def := range defs {
		games = append(games, GameInfo{
			ID:        def.ID,
			Name:      def.Name,
			RoundTime: def.RoundTime,
			Levels:    len(def.Levels),
		})
	}
	return &GamesMessage{Type: MessageTypeGames, Games: games}
}

// SnapshotMessage снимок состояния симуляции для рендеринга
type SnapshotMessage struct {
	Type     string       `json:"type" msgpack:"type"`
	Snapshot sim.Snapshot `json:"snapshot" msgpack:"snapshot"`
}

// NewSnapshotMessage оборачивает снимок движка
func NewSnapshotMessage(snap sim.Snapshot) *SnapshotMessage {
	return &SnapshotMessage{Type: MessageTypeSnapshot, Snapshot: snap}
}

// CompleteMessage терминальное сообщение завершенного раунда.
// Отправляется ровно один раз на раунд.
type CompleteMessage struct {
	Type           string `json:"type"`
	Percentage     int    `json:"percentage"`
	BestPercentage int    `json:"best_percentage"`
	RoundsPlayed   int    `json:"rounds_played"`
	ServerTime     int64  `json:"server_time"`
}

// NewCompleteMessage создает терминальное сообщение раунда
func NewCompleteMessage(percentage, best, rounds int) *CompleteMessage {
	return &CompleteMessage{
		Type:           MessageTypeComplete,
		Percentage:     percentage,
		BestPercentage: best,
		RoundsPlayed:   rounds,
		ServerTime:     GetCurrentServerTime(),
	}
}

// GetCurrentServerTime возвращает серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
