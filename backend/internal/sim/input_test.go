package sim

import "testing"

func TestInputKeyAliases(t *testing.T) {
	tests := []struct {
		key    string
		action Action
	}{
		{"ArrowUp", ActionUp},
		{"w", ActionUp},
		{"W", ActionUp},
		{"ArrowDown", ActionDown},
		{"s", ActionDown},
		{"ArrowLeft", ActionLeft},
		{"a", ActionLeft},
		{"ArrowRight", ActionRight},
		{"d", ActionRight},
		{" ", ActionToggle},
		{"Space", ActionToggle},
		{"Enter", ActionToggle},
		// Сенсорные кнопки присылают логические имена
		{"up", ActionUp},
		{"toggle", ActionToggle},
	}

	for _, tt := range tests {
		input := NewInputState()
		input.SetKey(tt.key, true)
		if !input.IsPressed(tt.action) {
			t.Errorf("Клавиша %q должна отображаться в действие %q", tt.key, tt.action)
		}

		input.SetKey(tt.key, false)
		if input.IsPressed(tt.action) {
			t.Errorf("Отпускание %q должно сбросить действие %q", tt.key, tt.action)
		}
	}
}

func TestInputUnknownKeyIgnored(t *testing.T) {
	input := NewInputState()
	input.SetKey("F13", true)

	for _, a := range []Action{ActionUp, ActionDown, ActionLeft, ActionRight, ActionToggle} {
		if input.IsPressed(a) {
			t.Errorf("Неизвестная клавиша не должна влиять на действие %q", a)
		}
	}
}

func TestInputMultipleKeysOneAction(t *testing.T) {
	input := NewInputState()

	// Две клавиши на одно действие: отпускание одной снимает действие,
	// состояние не считается по числу удерживаемых клавиш
	input.SetKey("ArrowUp", true)
	input.SetKey("w", true)
	input.SetKey("w", false)

	if input.IsPressed(ActionUp) {
		t.Error("Отпускание любой клавиши действия сбрасывает его состояние")
	}
}

func TestInputReset(t *testing.T) {
	input := NewInputState()
	input.SetKey("ArrowUp", true)
	input.SetKey("Space", true)

	input.Reset()

	if input.IsPressed(ActionUp) || input.IsPressed(ActionToggle) {
		t.Error("Reset должен сбросить все удерживаемые действия")
	}
}
