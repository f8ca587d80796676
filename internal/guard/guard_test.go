package guard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/state"
)

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func testUser(t *testing.T) *models.User {
	t.Helper()
	u, err := models.NewUser("admin@example.com", nil)
	require.NoError(t, err)
	return u
}

func TestStatusOf(t *testing.T) {
	u := &models.User{}

	require.Equal(t, Loading, StatusOf(state.AuthState{Loading: true}))
	require.Equal(t, Loading, StatusOf(state.AuthState{Loading: true, User: u}))
	require.Equal(t, Authenticated, StatusOf(state.AuthState{User: u}))
	require.Equal(t, Unauthenticated, StatusOf(state.AuthState{}))
}

func TestGuard_LoadingRendersNothing(t *testing.T) {
	nav := &recordingNavigator{}
	g := New(state.NewAuthStore(), nav, "")
	defer g.Close()

	require.Equal(t, Loading, g.Status())
	require.Nil(t, g.Render("dashboard"))

	g.Wait()
	require.Empty(t, nav.Paths())
}

func TestGuard_AuthenticatedRendersContent(t *testing.T) {
	store := state.NewAuthStore()
	nav := &recordingNavigator{}
	g := New(store, nav, "/login")
	defer g.Close()

	store.SetUser(testUser(t))

	require.Equal(t, Authenticated, g.Status())
	require.Equal(t, "dashboard", g.Render("dashboard"))

	g.Wait()
	require.Empty(t, nav.Paths())
}

func TestGuard_RedirectsOncePerTransition(t *testing.T) {
	store := state.NewAuthStore()
	nav := &recordingNavigator{}
	g := New(store, nav, "/login")
	defer g.Close()

	store.SetUser(nil)
	require.Equal(t, Unauthenticated, g.Status())
	require.Nil(t, g.Render("dashboard"))

	// further unauthenticated updates do not redirect again
	store.SetError("bad code")
	store.SetLoading(false)
	g.Wait()
	require.Equal(t, []string{"/login"}, nav.Paths())

	// log in then out: a fresh transition redirects again
	store.SetUser(testUser(t))
	require.Equal(t, "dashboard", g.Render("dashboard"))
	store.Reset()
	g.Wait()
	require.Equal(t, []string{"/login", "/login"}, nav.Paths())
}

func TestGuard_StartsUnauthenticated(t *testing.T) {
	store := state.NewAuthStore()
	store.Reset()

	nav := &recordingNavigator{}
	g := New(store, NavigatorFunc(nav.Redirect), "")
	g.Close()

	require.Equal(t, []string{DefaultLoginPath}, nav.Paths())
}

func TestGuard_CloseStopsTracking(t *testing.T) {
	store := state.NewAuthStore()
	nav := &recordingNavigator{}
	g := New(store, nav, "/login")
	g.Close()

	store.Reset()
	require.Equal(t, Loading, g.Status())
	require.Empty(t, nav.Paths())
}

func TestGuard_RedirectIsAsynchronous(t *testing.T) {
	store := state.NewAuthStore()
	release := make(chan struct{})
	done := make(chan struct{})

	g := New(store, NavigatorFunc(func(string) {
		<-release
		close(done)
	}), "/login")

	// would deadlock if the navigator ran on the mutating goroutine
	store.Reset()
	require.Equal(t, Unauthenticated, g.Status())

	close(release)
	<-done
	g.Close()
}
