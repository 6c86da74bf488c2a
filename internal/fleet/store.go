package fleet

import "fmt"

// Store keeps every game session created during the coordinator's
// lifetime, in creation order. Nothing is ever evicted.
type Store struct {
	order []string
	byID  map[string]*GameSession
}

func NewStore() *Store {
	return &Store{byID: make(map[string]*GameSession)}
}

func (s *Store) Add(gs *GameSession) error {
	if _, exists := s.byID[gs.GameSessionID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateGameSession, gs.GameSessionID)
	}
	s.byID[gs.GameSessionID] = gs
	s.order = append(s.order, gs.GameSessionID)
	return nil
}

func (s *Store) Get(gameSessionID string) (*GameSession, bool) {
	gs, ok := s.byID[gameSessionID]
	return gs, ok
}

// PlayerSessions returns a copy of the game session's player sessions,
// or an empty slice when the id is unknown.
func (s *Store) PlayerSessions(gameSessionID string) []PlayerSession {
	gs, ok := s.byID[gameSessionID]
	if !ok {
		return []PlayerSession{}
	}
	return append([]PlayerSession{}, gs.PlayerSessions...)
}

// FindPlayerSession scans sessions in creation order and returns the first match.
func (s *Store) FindPlayerSession(playerSessionID string) (PlayerSession, bool) {
	for _, id := range s.order {
		for _, ps := range s.byID[id].PlayerSessions {
			if ps.PlayerSessionID == playerSessionID {
				return ps, true
			}
		}
	}
	return PlayerSession{}, false
}

func (s *Store) All() []*GameSession {
	out := make([]*GameSession, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Store) Len() int { return len(s.order) }
