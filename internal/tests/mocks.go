package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"rideshare/internal/domain"
	"rideshare/internal/redis"
	"rideshare/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Its
// ConditionalUpdate checks the expected statuses under the same lock that
// applies the patch, matching the atomicity of the real UPDATE.
type MockRideRepository struct {
	mu    sync.Mutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount            int32
	ConditionalUpdateCallCount int32

	// Error injection
	CreateError            error
	GetByIDError           error
	ListError              error
	ConditionalUpdateError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide seeds a ride into the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// GetRide returns the stored ride for test assertions.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rides[id]
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Ride
	for _, ride := range m.rides {
		if len(filter.Statuses) > 0 && !statusIn(ride.Status, filter.Statuses) {
			continue
		}
		if filter.UserID != "" && ride.UserID != filter.UserID {
			continue
		}
		if filter.CaptainID != "" && ride.CaptainID != filter.CaptainID {
			continue
		}
		if filter.Unassigned && ride.CaptainID != "" {
			continue
		}
		if filter.RatedOnly && ride.Rating.Captain == nil {
			continue
		}
		copy := *ride
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if filter.NewestFirst {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockRideRepository) ConditionalUpdate(ctx context.Context, id string, expected []domain.RideStatus, patch repository.RidePatch) (*domain.Ride, error) {
	atomic.AddInt32(&m.ConditionalUpdateCallCount, 1)
	if m.ConditionalUpdateError != nil {
		return nil, m.ConditionalUpdateError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !statusIn(ride.Status, expected) {
		return nil, repository.ErrStaleStatus
	}

	if patch.Status != nil {
		ride.Status = *patch.Status
	}
	if patch.CaptainID != nil {
		ride.CaptainID = *patch.CaptainID
	}
	if patch.StartTime != nil {
		ride.StartTime = *patch.StartTime
	}
	if patch.CompletedAt != nil {
		ride.CompletedAt = *patch.CompletedAt
	}
	if patch.CancelledAt != nil {
		ride.CancelledAt = *patch.CancelledAt
	}
	if patch.CancellationReason != nil {
		ride.CancellationReason = *patch.CancellationReason
	}
	if patch.ArrivalTime != nil {
		at := *patch.ArrivalTime
		ride.ArrivalTime = &at
	}
	if patch.Earnings != nil {
		e := *patch.Earnings
		ride.Earnings = &e
	}
	if patch.CaptainRating != nil {
		r := *patch.CaptainRating
		ride.Rating.Captain = &r
	}

	copy := *ride
	return &copy, nil
}

func statusIn(status domain.RideStatus, set []domain.RideStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	CreateCallCount int32
	CreateError     error
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// AddUser seeds a user into the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK CAPTAIN REPOSITORY
// ──────────────────────────────────────────────

// MockCaptainRepository is a mock implementation of CaptainRepository.
type MockCaptainRepository struct {
	mu       sync.RWMutex
	captains map[string]*domain.Captain

	CreateCallCount       int32
	UpdateRatingCallCount int32
	AddEarningsCallCount  int32

	CreateError       error
	UpdateRatingError error
	AddEarningsError  error
}

// NewMockCaptainRepository creates a new mock captain repository.
func NewMockCaptainRepository() *MockCaptainRepository {
	return &MockCaptainRepository{
		captains: make(map[string]*domain.Captain),
	}
}

// AddCaptain seeds a captain into the mock repository.
func (m *MockCaptainRepository) AddCaptain(captain *domain.Captain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captains[captain.ID] = captain
}

// GetCaptain returns the stored captain for test assertions.
func (m *MockCaptainRepository) GetCaptain(id string) *domain.Captain {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.captains[id]
}

func (m *MockCaptainRepository) Create(ctx context.Context, captain *domain.Captain) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captains[captain.ID] = captain
	return nil
}

func (m *MockCaptainRepository) GetByID(ctx context.Context, id string) (*domain.Captain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	captain, ok := m.captains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *captain
	return &copy, nil
}

func (m *MockCaptainRepository) GetByEmail(ctx context.Context, email string) (*domain.Captain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.captains {
		if c.Email == email {
			copy := *c
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockCaptainRepository) UpdateStatus(ctx context.Context, id string, status domain.CaptainStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	captain, ok := m.captains[id]
	if !ok {
		return repository.ErrNotFound
	}
	captain.Status = status
	return nil
}

func (m *MockCaptainRepository) UpdateRating(ctx context.Context, id string, rating float64) error {
	atomic.AddInt32(&m.UpdateRatingCallCount, 1)
	if m.UpdateRatingError != nil {
		return m.UpdateRatingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	captain, ok := m.captains[id]
	if !ok {
		return repository.ErrNotFound
	}
	captain.Rating = rating
	return nil
}

func (m *MockCaptainRepository) AddEarnings(ctx context.Context, id string, amount float64) error {
	atomic.AddInt32(&m.AddEarningsCallCount, 1)
	if m.AddEarningsError != nil {
		return m.AddEarningsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	captain, ok := m.captains[id]
	if !ok {
		return repository.ErrNotFound
	}
	captain.TotalEarnings += amount
	return nil
}

// ──────────────────────────────────────────────
// MOCK PUSHER
// ──────────────────────────────────────────────

// PushedEvent is one event captured by the mock pusher.
type PushedEvent struct {
	ActorID string
	RideID  string
	Event   string
	Payload any
}

// MockPusher records events instead of delivering them.
type MockPusher struct {
	mu     sync.Mutex
	Events []PushedEvent

	// PushError is returned from Push to simulate an unbound actor.
	PushError error
}

// NewMockPusher creates a new MockPusher.
func NewMockPusher() *MockPusher {
	return &MockPusher{}
}

func (m *MockPusher) Push(actorID, event string, payload any) error {
	if m.PushError != nil {
		return m.PushError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PushedEvent{ActorID: actorID, Event: event, Payload: payload})
	return nil
}

func (m *MockPusher) PushRide(rideID, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PushedEvent{RideID: rideID, Event: event, Payload: payload})
}

func (m *MockPusher) PushAll(event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PushedEvent{Event: event, Payload: payload})
}

// EventsNamed returns the captured events with the given name.
func (m *MockPusher) EventsNamed(name string) []PushedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PushedEvent
	for _, e := range m.Events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockBlacklist is an in-memory token blacklist.
type MockBlacklist struct {
	mu     sync.Mutex
	tokens map[string]struct{}

	AddError error
}

// NewMockBlacklist creates a new MockBlacklist.
func NewMockBlacklist() *MockBlacklist {
	return &MockBlacklist{tokens: make(map[string]struct{})}
}

func (m *MockBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = struct{}{}
	return nil
}

func (m *MockBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[token]
	return ok, nil
}

// MockPresence records which actors had their channel binding cleared.
type MockPresence struct {
	mu      sync.Mutex
	unbound map[string]int
}

// NewMockPresence creates a new MockPresence.
func NewMockPresence() *MockPresence {
	return &MockPresence{unbound: make(map[string]int)}
}

func (m *MockPresence) UnbindActor(actorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unbound[actorID]++
}

// WasUnbound reports whether UnbindActor was called for actorID.
func (m *MockPresence) WasUnbound(actorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unbound[actorID] > 0
}

// MockLocationStore is an in-memory captain location index.
type MockLocationStore struct {
	mu        sync.Mutex
	locations map[string]redis.CaptainLocation

	UpdateError error
}

// NewMockLocationStore creates a new MockLocationStore.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[string]redis.CaptainLocation)}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, captainID string, lat, lng float64) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[captainID] = redis.CaptainLocation{CaptainID: captainID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) CaptainsInRadius(ctx context.Context, lat, lng, radiusKm float64) ([]redis.CaptainLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]redis.CaptainLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		out = append(out, loc)
	}
	return out, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, captainID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, captainID)
	return nil
}

// HasLocation reports whether a captain has a stored position.
func (m *MockLocationStore) HasLocation(captainID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locations[captainID]
	return ok
}

// ──────────────────────────────────────────────
// STUB ROUTE PROVIDER
// ──────────────────────────────────────────────

// StubRouteProvider returns fixed distance and duration values.
type StubRouteProvider struct {
	Distance domain.ValueText
	Duration domain.ValueText

	CallCount int32
}

// NewStubRouteProvider creates a provider reporting a 5 km, 15 minute trip.
func NewStubRouteProvider() *StubRouteProvider {
	return &StubRouteProvider{
		Distance: domain.ValueText{Value: 5000, Text: "5.0 km"},
		Duration: domain.ValueText{Value: 900, Text: "15 mins"},
	}
}

func (s *StubRouteProvider) DistanceTime(ctx context.Context, origin, destination domain.GeoPoint) (domain.ValueText, domain.ValueText) {
	atomic.AddInt32(&s.CallCount, 1)
	return s.Distance, s.Duration
}
