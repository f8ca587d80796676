package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/models"
)

// UIStorageKey is the key UI state is persisted under.
const UIStorageKey = "trade-journal-ui"

// ErrInvalidTheme is returned by SetTheme for names other than light and dark.
var ErrInvalidTheme = errors.New("invalid theme")

// UIState holds display preferences.
type UIState struct {
	Theme            string `json:"theme"`
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
}

// DefaultUIState is used until persisted state is loaded.
func DefaultUIState() UIState {
	return UIState{Theme: models.ThemeLight}
}

// Effect is a side effect applied to the document after rehydration.
type Effect func(UIState, Document)

// ApplyThemeEffect leaves exactly one theme class on the document.
func ApplyThemeEffect(s UIState, doc Document) {
	doc.Remove(models.ThemeLight, models.ThemeDark)
	doc.Add(s.Theme)
}

// UIStore holds UIState, persists every change and keeps the document's theme class in step.
// Persistence is best-effort: failures are logged and the in-memory state stays authoritative.
type UIStore struct {
	storage Storage
	doc     Document
	onLoad  []Effect

	mu    sync.Mutex
	state UIState
	subs  subscribers[UIState]
}

// NewUIStore creates a store with default state. onLoad effects run after Load;
// ApplyThemeEffect is used when none are given.
func NewUIStore(storage Storage, doc Document, onLoad ...Effect) *UIStore {
	if len(onLoad) == 0 {
		onLoad = []Effect{ApplyThemeEffect}
	}
	return &UIStore{
		storage: storage,
		doc:     doc,
		onLoad:  onLoad,
		state:   DefaultUIState(),
	}
}

// Load rehydrates state from storage, then runs the on-load effects.
// Missing or unreadable state leaves the defaults in place.
func (s *UIStore) Load(ctx context.Context) {
	s.mu.Lock()
	if data, err := s.storage.Get(ctx, UIStorageKey); err != nil {
		log.Warn().Err(err).Msg("Failed to read UI state")
	} else if data != nil {
		var loaded UIState
		if err := json.Unmarshal(data, &loaded); err != nil {
			log.Warn().Err(err).Msg("Ignoring corrupt UI state")
		} else {
			if !validTheme(loaded.Theme) {
				loaded.Theme = models.ThemeLight
			}
			s.state = loaded
		}
	}

	snapshot := s.state
	for _, effect := range s.onLoad {
		effect(snapshot, s.doc)
	}
	s.mu.Unlock()

	s.subs.notify(snapshot)
}

// State returns the current snapshot.
func (s *UIStore) State() UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ToggleTheme switches between light and dark.
func (s *UIStore) ToggleTheme(ctx context.Context) {
	s.update(ctx, func(st *UIState) bool {
		if st.Theme == models.ThemeDark {
			st.Theme = models.ThemeLight
		} else {
			st.Theme = models.ThemeDark
		}
		return true
	})
}

// SetTheme sets the theme to light or dark.
func (s *UIStore) SetTheme(ctx context.Context, theme string) error {
	if !validTheme(theme) {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	s.update(ctx, func(st *UIState) bool {
		st.Theme = theme
		return true
	})
	return nil
}

// ToggleSidebar flips the sidebar between collapsed and expanded.
func (s *UIStore) ToggleSidebar(ctx context.Context) {
	s.update(ctx, func(st *UIState) bool {
		st.SidebarCollapsed = !st.SidebarCollapsed
		return false
	})
}

// SetSidebarCollapsed sets whether the sidebar is collapsed.
func (s *UIStore) SetSidebarCollapsed(ctx context.Context, collapsed bool) {
	s.update(ctx, func(st *UIState) bool {
		st.SidebarCollapsed = collapsed
		return false
	})
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *UIStore) Subscribe(fn func(UIState)) (unsubscribe func()) {
	return s.subs.add(fn)
}

// update applies fn, re-applies the theme class when fn reports a theme change, and persists.
func (s *UIStore) update(ctx context.Context, fn func(*UIState) bool) {
	s.mu.Lock()
	themeChanged := fn(&s.state)
	snapshot := s.state
	if themeChanged {
		ApplyThemeEffect(snapshot, s.doc)
	}
	s.persist(ctx, snapshot)
	s.mu.Unlock()

	s.subs.notify(snapshot)
}

func (s *UIStore) persist(ctx context.Context, st UIState) {
	data, err := json.Marshal(st)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode UI state")
		return
	}
	if err := s.storage.Set(ctx, UIStorageKey, data); err != nil {
		log.Warn().Err(err).Msg("Failed to persist UI state")
	}
}

func validTheme(theme string) bool {
	return theme == models.ThemeLight || theme == models.ThemeDark
}
