package sim

import (
	"log"
	"sync"
)

// Store хранилище всех сущностей одного раунда.
// Владеет записями эксклюзивно на время жизни раунда: наружу отдаются
// только копии. Порядок вставки сохраняется для детерминированного
// рендеринга на клиенте.
type Store struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]*Entity
	caps    map[Kind]int // Мягкий лимит живых сущностей по типу
	logger  *log.Logger
	nextSeq uint64
}

// NewStore создает хранилище с лимитами по типам сущностей
func NewStore(caps map[Kind]int, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}

	return &Store{
		order:  make([]string, 0, 32),
		byID:   make(map[string]*Entity),
		caps:   caps,
		logger: logger,
	}
}

// Add добавляет сущность. Дубликат ID заменяет существующую запись
// без изменения порядка вставки.
func (s *Store) Add(e *Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[e.ID]; !exists {
		s.order = append(s.order, e.ID)
	}
	s.byID[e.ID] = e
}

// Remove удаляет сущность по ID
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; !exists {
		return
	}

	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get возвращает копию сущности по ID
func (s *Store) Get(id string) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Update применяет мутацию к сущности под блокировкой.
// Возвращает false, если сущность не найдена.
func (s *Store) Update(id string, patch func(*Entity)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return false
	}
	patch(e)
	return true
}

// All возвращает копии сущностей в порядке вставки.
// Без аргументов - все; с аргументами - только перечисленные типы.
func (s *Store) All(kinds ...Kind) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		filter[k] = true
	}

	result := make([]Entity, 0, len(s.order))
	for _, id := range s.order {
		e := s.byID[id]
		if len(filter) > 0 && !filter[e.Kind] {
			continue
		}
		result = append(result, *e)
	}
	return result
}

// Count возвращает количество живых сущностей типа
func (s *Store) Count(kind Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.byID {
		if e.Kind == kind {
			count++
		}
	}
	return count
}

// CanSpawn проверяет лимит перед созданием новой сущности.
// Превышение лимита - не ошибка: спавнер просто пропускает спавн.
func (s *Store) CanSpawn(kind Kind) bool {
	cap, ok := s.caps[kind]
	if !ok {
		return true
	}
	return s.Count(kind) < cap
}

// Clear удаляет все сущности (вызывается при старте и рестарте раунда)
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.byID = make(map[string]*Entity)
}

// NextSeq возвращает монотонный счетчик для генерации ID сущностей
func (s *Store) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	return s.nextSeq
}
