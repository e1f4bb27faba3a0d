package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Бот-клиент для нагрузочной проверки сервера мини-игр: подключается,
// выбирает игру и жмет клавиши по заданному паттерну, считая снимки.

type controlMessage struct {
	Type    string `json:"type"`
	Game    string `json:"game,omitempty"`
	Format  string `json:"format,omitempty"`
	Key     string `json:"key,omitempty"`
	Pressed bool   `json:"pressed,omitempty"`
}

type serverMessage struct {
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	Snapshot *struct {
		Round struct {
			State    string `json:"state"`
			Score    int    `json:"score"`
			TimeLeft int    `json:"time_left"`
		} `json:"round"`
		Signal string `json:"signal"`
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	} `json:"snapshot,omitempty"`
	Percentage int `json:"percentage,omitempty"`
}

// BotStats статистика работы бота
type BotStats struct {
	mu             sync.Mutex
	InputsSent     int
	SnapshotsSeen  int
	EventsSeen     int
	LastScore      int
	RoundFinished  bool
	FinalPercent   int
}

// Bot один сценарный клиент
type Bot struct {
	ID        string
	ServerURL string
	Game      string
	Pattern   string
	InputRate time.Duration
	Duration  time.Duration

	conn    *websocket.Conn
	writeMu sync.Mutex
	stats   BotStats

	signalMu sync.RWMutex
	signal   string
}

// NewBot создает бота с заданным сценарием поведения
func NewBot(id, serverURL, game, pattern string, duration, inputRate time.Duration) *Bot {
	return &Bot{
		ID:        id,
		ServerURL: serverURL,
		Game:      game,
		Pattern:   pattern,
		InputRate: inputRate,
		Duration:  duration,
	}
}

// Connect подключается к серверу
func (b *Bot) Connect() error {
	u, err := url.Parse(b.ServerURL)
	if err != nil {
		return fmt.Errorf("неверный URL: %v", err)
	}

	log.Printf("[Bot %s] Подключение к %s", b.ID, u.String())

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("ошибка подключения: %v", err)
	}

	b.conn = conn
	log.Printf("[Bot %s] Успешно подключен", b.ID)
	return nil
}

func (b *Bot) send(msg controlMessage) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(msg)
}

// Run играет один сеанс: выбор игры, старт и ввод до истечения времени
func (b *Bot) Run() {
	defer b.conn.Close()

	if err := b.send(controlMessage{Type: "hello", Game: b.Game, Format: "json"}); err != nil {
		log.Printf("[Bot %s] Ошибка hello: %v", b.ID, err)
		return
	}
	if err := b.send(controlMessage{Type: "start"}); err != nil {
		log.Printf("[Bot %s] Ошибка start: %v", b.ID, err)
		return
	}

	done := make(chan struct{})
	go b.readLoop(done)

	ticker := time.NewTicker(b.InputRate)
	defer ticker.Stop()
	deadline := time.After(b.Duration)

	var lastKey string
	for {
		select {
		case <-done:
			return
		case <-deadline:
			log.Printf("[Bot %s] Время сеанса истекло", b.ID)
			return
		case <-ticker.C:
			key := b.pickKey()
			if lastKey != "" && lastKey != key {
				b.send(controlMessage{Type: "input", Key: lastKey, Pressed: false})
			}
			if err := b.send(controlMessage{Type: "input", Key: key, Pressed: true}); err != nil {
				log.Printf("[Bot %s] Ошибка ввода: %v", b.ID, err)
				return
			}
			lastKey = key

			b.stats.mu.Lock()
			b.stats.InputsSent++
			b.stats.mu.Unlock()
		}
	}
}

// pickKey выбирает следующую клавишу согласно паттерну
func (b *Bot) pickKey() string {
	keys := []string{"ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight"}

	switch b.Pattern {
	case "runner":
		// Едем вперед, изредка подруливая
		if rand.Float64() < 0.2 {
			return keys[2+rand.IntN(2)]
		}
		return "ArrowUp"

	case "cautious":
		// Стоим на красный, едем на зеленый
		b.signalMu.RLock()
		signal := b.signal
		b.signalMu.RUnlock()
		if signal == "red" {
			return "ArrowDown"
		}
		return "ArrowUp"

	default: // random
		return keys[rand.IntN(len(keys))]
	}
}

// readLoop читает сообщения сервера и ведет статистику
func (b *Bot) readLoop(done chan<- struct{}) {
	defer close(done)

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "snapshot":
			if msg.Snapshot == nil {
				continue
			}
			b.signalMu.Lock()
			b.signal = msg.Snapshot.Signal
			b.signalMu.Unlock()

			b.stats.mu.Lock()
			b.stats.SnapshotsSeen++
			b.stats.EventsSeen += len(msg.Snapshot.Events)
			b.stats.LastScore = msg.Snapshot.Round.Score
			b.stats.mu.Unlock()

		case "complete":
			b.stats.mu.Lock()
			b.stats.RoundFinished = true
			b.stats.FinalPercent = msg.Percentage
			b.stats.mu.Unlock()
			log.Printf("[Bot %s] Раунд завершен: %d%%", b.ID, msg.Percentage)
			return

		case "error":
			log.Printf("[Bot %s] Ошибка сервера: %s", b.ID, msg.Message)
		}
	}
}

// PrintStats выводит итоговую статистику бота
func (b *Bot) PrintStats() {
	b.stats.mu.Lock()
	defer b.stats.mu.Unlock()

	log.Printf("[Bot %s] Итого: ввод %d, снимков %d, событий %d, счет %d",
		b.ID, b.stats.InputsSent, b.stats.SnapshotsSeen, b.stats.EventsSeen, b.stats.LastScore)
	if b.stats.RoundFinished {
		log.Printf("[Bot %s] Итоговый процент: %d%%", b.ID, b.stats.FinalPercent)
	}
}

func main() {
	var (
		serverURL = flag.String("server", "ws://localhost:8080/ws", "URL websocket сервера")
		game      = flag.String("game", "crossing", "ID мини-игры")
		pattern   = flag.String("pattern", "random", "паттерн ввода: random, runner, cautious")
		count     = flag.Int("bots", 1, "количество одновременных ботов")
		duration  = flag.Duration("duration", 60*time.Second, "длительность сеанса")
		rate      = flag.Duration("rate", 200*time.Millisecond, "интервал между нажатиями")
	)
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	var wg sync.WaitGroup
	bots := make([]*Bot, 0, *count)

	for i := 0; i < *count; i++ {
		bot := NewBot(fmt.Sprintf("bot-%d", i+1), *serverURL, *game, *pattern, *duration, *rate)
		if err := bot.Connect(); err != nil {
			log.Printf("[Bot %s] %v", bot.ID, err)
			continue
		}
		bots = append(bots, bot)

		wg.Add(1)
		go func() {
			defer wg.Done()
			bot.Run()
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-interrupt:
		log.Println("Прерывание, закрываем ботов")
		for _, bot := range bots {
			bot.conn.Close()
		}
		wg.Wait()
	}

	for _, bot := range bots {
		bot.PrintStats()
	}
}
