package sim

import "sync"

// Action логическое игровое действие. Несколько физических клавиш
// (стрелки, WASD, сенсорные кнопки) отображаются в одно действие.
type Action string

const (
	ActionUp     Action = "up"
	ActionDown   Action = "down"
	ActionLeft   Action = "left"
	ActionRight  Action = "right"
	ActionToggle Action = "toggle" // Переключение светофора / кнопка действия
)

// keyAliases отображение физических клавиш в логические действия.
// Сенсорные кнопки клиента присылают уже логические имена ("up", "down"...).
var keyAliases = map[string]Action{
	"ArrowUp":    ActionUp,
	"ArrowDown":  ActionDown,
	"ArrowLeft":  ActionLeft,
	"ArrowRight": ActionRight,
	"w":          ActionUp,
	"s":          ActionDown,
	"a":          ActionLeft,
	"d":          ActionRight,
	"W":          ActionUp,
	"S":          ActionDown,
	"A":          ActionLeft,
	"D":          ActionRight,
	" ":          ActionToggle,
	"Space":      ActionToggle,
	"Enter":      ActionToggle,
	"up":         ActionUp,
	"down":       ActionDown,
	"left":       ActionLeft,
	"right":      ActionRight,
	"toggle":     ActionToggle,
}

// InputState текущее состояние удерживаемых клавиш.
// Обновляется обработчиками событий клиента, читается синхронно внутри тика.
// Очереди нет - наблюдаемо только "нажата/не нажата" (семантика управления
// транспортом в реальном времени, без буферизации ввода).
type InputState struct {
	mu      sync.RWMutex
	pressed map[Action]bool
}

// NewInputState создает пустое состояние ввода
func NewInputState() *InputState {
	return &InputState{
		pressed: make(map[Action]bool),
	}
}

// SetKey устанавливает состояние физической клавиши.
// Неизвестные клавиши игнорируются.
func (is *InputState) SetKey(key string, pressed bool) {
	action, ok := keyAliases[key]
	if !ok {
		return
	}

	is.mu.Lock()
	defer is.mu.Unlock()

	if pressed {
		is.pressed[action] = true
	} else {
		delete(is.pressed, action)
	}
}

// IsPressed проверяет, удерживается ли логическое действие
func (is *InputState) IsPressed(action Action) bool {
	is.mu.RLock()
	defer is.mu.RUnlock()

	return is.pressed[action]
}

// Reset сбрасывает все удерживаемые клавиши (вызывается при рестарте раунда)
func (is *InputState) Reset() {
	is.mu.Lock()
	defer is.mu.Unlock()

	is.pressed = make(map[Action]bool)
}
