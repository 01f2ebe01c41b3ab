package sandbox

import (
	"sync"

	"github.com/google/uuid"
)

// Link is a link the sandbox can resolve.
type Link struct {
	Token         string            `json:"link_token"`
	TappURL       string            `json:"tapp_url"`
	AttributedURL string            `json:"attr_tapp_url"`
	Influencer    string            `json:"influencer"`
	Data          map[string]string `json:"data"`
}

// Event is a recorded in-app event.
type Event struct {
	Name string `json:"event_name"`
	URL  string `json:"event_url,omitempty"`
}

// State is the sandbox's in-memory view of one app.
type State struct {
	mu sync.Mutex

	secret   string
	links    map[string]Link
	devices  map[string]bool
	deferred *Link

	impressions []string
	events      []Event
	requests    map[string]int
}

// NewState returns an empty state that hands out secret.
func NewState(secret string) *State {
	if secret == "" {
		secret = uuid.NewString()
	}
	return &State{
		secret:   secret,
		links:    make(map[string]Link),
		devices:  make(map[string]bool),
		requests: make(map[string]int),
	}
}

// Secret returns the app secret issued by the secrets endpoint.
func (s *State) Secret() string {
	return s.secret
}

// AddLink registers link; an empty token is generated.
func (s *State) AddLink(link Link) Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	if link.Token == "" {
		link.Token = uuid.NewString()
	}
	s.links[link.Token] = link
	return link
}

// Link looks up a link by token.
func (s *State) Link(token string) (Link, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[token]
	return link, ok
}

// ArmDeferred makes the next fingerprint submission match link.
func (s *State) ArmDeferred(link Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deferred = &link
}

// takeDeferred returns and clears the armed link.
func (s *State) takeDeferred() *Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	link := s.deferred
	s.deferred = nil
	return link
}

// device returns the record for id, registering unknown ids as inactive.
// An empty id gets a fresh one.
func (s *State) device(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	active, ok := s.devices[id]
	if !ok {
		s.devices[id] = false
	}
	return id, active
}

// activate marks a device as fingerprinted.
func (s *State) activate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		s.devices[id] = true
	}
}

func (s *State) recordImpression(deeplink string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.impressions = append(s.impressions, deeplink)
}

func (s *State) recordEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *State) countRequest(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[path]++
}

// Impressions returns the reported deep links.
func (s *State) Impressions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.impressions...)
}

// Events returns the reported events.
func (s *State) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Requests returns how many requests hit path.
func (s *State) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}
