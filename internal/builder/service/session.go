package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"page-builder/internal/builder/controller"
)

var ErrSessionNotFound = errors.New("session not found")

// ============================================================
// Session
// ============================================================

// Session: одна открытая вкладка редактора. Все жесты идут через With,
// поэтому контроллер видит их строго по одному.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu  sync.Mutex
	ctl *controller.Controller
}

func (s *Session) With(fn func(*controller.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ctl)
}

// ============================================================
// Session Manager
// ============================================================

// ControllerFactory собирает контроллер для новой сессии.
type ControllerFactory func(sessionID string) *controller.Controller

type SessionManager struct {
	sessions *lru.Cache[string, *Session]
	factory  ControllerFactory
	log      zerolog.Logger
}

// NewSessionManager ограничивает таблицу сессий limit записями. При
// переполнении выбрасывается давно не использованная сессия.
func NewSessionManager(limit int, factory ControllerFactory, log zerolog.Logger) (*SessionManager, error) {
	if factory == nil {
		return nil, errors.New("controller factory is required")
	}
	m := &SessionManager{factory: factory, log: log}

	// вызывается и при вытеснении, и при Close
	cache, err := lru.NewWithEvict(limit, func(id string, _ *Session) {
		m.log.Debug().Str("session", id).Msg("session dropped from table")
	})
	if err != nil {
		return nil, fmt.Errorf("session table: %w", err)
	}
	m.sessions = cache
	return m, nil
}

// Open создаёт сессию. Если pageID не пуст, страница загружается сразу
// (load-on-mount); при ошибке загрузки сессия не регистрируется.
func (m *SessionManager) Open(ctx context.Context, pageID string) (*Session, error) {
	id := uuid.NewString()
	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		ctl:       m.factory(id),
	}

	if pageID != "" {
		if err := s.ctl.Load(ctx, pageID); err != nil {
			return nil, err
		}
	}

	m.sessions.Add(id, s)
	m.log.Info().Str("session", id).Str("page", pageID).Msg("session opened")
	return s, nil
}

func (m *SessionManager) Get(id string) (*Session, bool) {
	return m.sessions.Get(id)
}

// With выполняет fn под замком сессии.
func (m *SessionManager) With(id string, fn func(*controller.Controller) error) error {
	s, ok := m.sessions.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.With(fn)
}

func (m *SessionManager) Close(id string) bool {
	if !m.sessions.Remove(id) {
		return false
	}
	m.log.Info().Str("session", id).Msg("session closed")
	return true
}

func (m *SessionManager) Len() int {
	return m.sessions.Len()
}
