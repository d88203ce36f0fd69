package learnauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/communitylearn/learnauth/identity"
	"github.com/communitylearn/learnauth/profile"
	"github.com/communitylearn/learnauth/sidechannel"
)

// fakeProvider delivers notifications synchronously on the goroutine that
// calls emit, which stands in for the provider's dispatch goroutine.
type fakeProvider struct {
	mu        sync.Mutex
	listeners map[int]identity.Listener
	nextID    int
	current   *identity.Identity

	signInErr  error
	signUpErr  error
	signUpID   *identity.Identity
	signUpHook func(*identity.Identity)
	signOut    func(context.Context) error
	tokenErr   error

	signUps int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{listeners: make(map[int]identity.Listener)}
}

func ident(uid string) *identity.Identity {
	return &identity.Identity{
		UID:        uid,
		Email:      uid + "@example.com",
		Credential: "cred-" + uid,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
}

func (f *fakeProvider) emit(id *identity.Identity) {
	f.mu.Lock()
	f.current = id
	ls := make([]identity.Listener, 0, len(f.listeners))
	for i := 1; i <= f.nextID; i++ {
		if l, ok := f.listeners[i]; ok {
			ls = append(ls, l)
		}
	}
	f.mu.Unlock()

	for _, l := range ls {
		l(id)
	}
}

func (f *fakeProvider) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeProvider) SignIn(_ context.Context, email, _ string) (*identity.Identity, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &identity.Identity{UID: "uid-" + email, Email: email}, nil
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string) (*identity.Identity, error) {
	f.mu.Lock()
	f.signUps++
	f.mu.Unlock()
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	id := f.signUpID
	if id == nil {
		id = &identity.Identity{UID: "uid-" + email, Email: email, Credential: "cred-new"}
	}
	if f.signUpHook != nil {
		f.signUpHook(id)
	}
	return id, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	if f.signOut != nil {
		return f.signOut(ctx)
	}
	return nil
}

func (f *fakeProvider) OnChange(fn identity.Listener) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.listeners[id] = fn
	current := f.current
	f.mu.Unlock()

	fn(current)

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeProvider) Token(_ context.Context, uid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	if f.current == nil {
		return "", identity.ErrNoCurrentIdentity
	}
	if f.current.UID != uid {
		return "", identity.ErrIdentityChanged
	}
	return f.current.Credential, nil
}

// switchTo changes the current identity without notifying, like a provider
// whose next notification is still queued.
func (f *fakeProvider) switchTo(id *identity.Identity) {
	f.mu.Lock()
	f.current = id
	f.mu.Unlock()
}

// gatedStore holds profiles in memory. A gated id blocks Get until the gate
// is released or the context ends.
type gatedStore struct {
	mu       sync.Mutex
	profiles map[string]profile.Profile
	gates    map[string]chan struct{}
	getErr   error
	putErr   error
}

func newGatedStore(ps ...profile.Profile) *gatedStore {
	s := &gatedStore{
		profiles: make(map[string]profile.Profile),
		gates:    make(map[string]chan struct{}),
	}
	for _, p := range ps {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *gatedStore) gate(id string) func() {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *gatedStore) Get(ctx context.Context, id string) (*profile.Profile, error) {
	s.mu.Lock()
	gate := s.gates[id]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &p, nil
}

func (s *gatedStore) Put(_ context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.profiles[p.ID] = p
	return nil
}

func teacherProfile(uid string) profile.Profile {
	return profile.Profile{ID: uid, Name: "Grace", Email: uid + "@example.com", Role: profile.RoleTeacher}
}

type harness struct {
	resolver   *Resolver
	provider   *fakeProvider
	store      *gatedStore
	projection *sidechannel.MemoryProjection
}

func newHarness(t testing.TB, mutate func(*Config), ps ...profile.Profile) *harness {
	t.Helper()

	h := &harness{
		provider:   newFakeProvider(),
		store:      newGatedStore(ps...),
		projection: sidechannel.NewMemoryProjection(),
	}

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	r, err := New().
		WithConfig(cfg).
		WithProvider(h.provider).
		WithProfileStore(h.store).
		WithProjection(h.projection).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(r.Close)
	h.resolver = r
	return h
}

func waitFor(t testing.TB, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitState(t testing.TB, r *Resolver, want State) SessionView {
	t.Helper()
	waitFor(t, "state "+want.String(), func() bool { return r.View().State == want })
	return r.View()
}
