package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
	emailIndex    map[string]model.UserID
	players       map[model.PlayerID]*model.Player
	games         map[model.GameID]*model.Game
	codeIndex     map[model.GameCode]model.GameID
	members       map[model.GameID]map[model.PlayerID]model.Membership
	results       []model.Result

	nextUserID   model.UserID
	nextPlayerID model.PlayerID
	nextGameID   model.GameID
	nextResultID model.ResultID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		emailIndex:    make(map[string]model.UserID),
		players:       make(map[model.PlayerID]*model.Player),
		games:         make(map[model.GameID]*model.Game),
		codeIndex:     make(map[model.GameCode]model.GameID),
		members:       make(map[model.GameID]map[model.PlayerID]model.Membership),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for the in-memory store
func (s *Storage) Close() error {
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernameIndex[user.Username]; ok {
		return model.ErrUserExists
	}
	if _, ok := s.emailIndex[user.Email]; ok {
		return model.ErrUserExists
	}

	s.nextUserID++
	user.ID = s.nextUserID
	u := *user
	s.users[u.ID] = &u
	s.usernameIndex[u.Username] = u.ID
	s.emailIndex[u.Email] = u.ID

	player.UserID = user.ID
	s.insertPlayer(player)
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

func (s *Storage) UpdatePasswordHash(ctx context.Context, id model.UserID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	user.PasswordHash = hash
	return nil
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[player.UserID]; !ok {
		return model.ErrUserNotFound
	}
	s.insertPlayer(player)
	return nil
}

// insertPlayer assigns an ID and stores a copy. Caller holds the write lock.
func (s *Storage) insertPlayer(player *model.Player) {
	s.nextPlayerID++
	player.ID = s.nextPlayerID
	p := *player
	s.players[p.ID] = &p
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

func (s *Storage) ListPlayersByUser(ctx context.Context, userID model.UserID) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := []model.Player{}
	for _, p := range s.players {
		if p.UserID == userID {
			players = append(players, *p)
		}
	}
	sortPlayers(players)
	return players, nil
}

func (s *Storage) FindPlayerByName(ctx context.Context, userID model.UserID, name string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *model.Player
	for _, p := range s.players {
		if p.UserID == userID && p.Name == name && (found == nil || p.ID < found.ID) {
			found = p
		}
	}
	if found == nil {
		return nil, model.ErrPlayerNotFound
	}
	p := *found
	return &p, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game, creator model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codeIndex[game.Code]; ok {
		return model.ErrCodeTaken
	}
	if _, ok := s.players[creator]; !ok {
		return model.ErrPlayerNotFound
	}

	s.nextGameID++
	game.ID = s.nextGameID
	g := *game
	s.games[g.ID] = &g
	s.codeIndex[g.Code] = g.ID
	s.members[g.ID] = map[model.PlayerID]model.Membership{
		creator: {GameID: g.ID, PlayerID: creator, JoinedAt: g.CreatedAt},
	}
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	g := *game
	return &g, nil
}

func (s *Storage) GetGameByCode(ctx context.Context, code model.GameCode) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codeIndex[code]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	g := *s.games[id]
	return &g, nil
}

func (s *Storage) GameCodeExists(ctx context.Context, code model.GameCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codeIndex[code]
	return ok, nil
}

func (s *Storage) SetGameStatus(ctx context.Context, id model.GameID, status model.GameStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return model.ErrGameNotFound
	}
	game.Status = status
	return nil
}

// Membership operations

func (s *Storage) AddMember(ctx context.Context, m model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[m.GameID]; !ok {
		return model.ErrGameNotFound
	}
	if _, ok := s.players[m.PlayerID]; !ok {
		return model.ErrPlayerNotFound
	}
	if _, ok := s.members[m.GameID][m.PlayerID]; ok {
		return model.ErrAlreadyMember
	}
	s.members[m.GameID][m.PlayerID] = m
	return nil
}

func (s *Storage) ListMembers(ctx context.Context, gameID model.GameID) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := []model.Player{}
	for pid := range s.members[gameID] {
		if p, ok := s.players[pid]; ok {
			players = append(players, *p)
		}
	}
	sortPlayers(players)
	return players, nil
}

// Result operations

func (s *Storage) RecordResults(ctx context.Context, results []model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before writing anything
	for _, r := range results {
		if _, ok := s.games[r.GameID]; !ok {
			return model.ErrGameNotFound
		}
		if _, ok := s.players[r.WinnerID]; !ok {
			return model.ErrPlayerNotFound
		}
		if _, ok := s.players[r.LoserID]; !ok {
			return model.ErrPlayerNotFound
		}
		if r.WinnerID == r.LoserID {
			return model.ErrInvalidInput
		}
	}

	for i := range results {
		s.nextResultID++
		results[i].ID = s.nextResultID
		s.results = append(s.results, results[i])
	}
	return nil
}

func (s *Storage) ListResultsByGame(ctx context.Context, gameID model.GameID) ([]model.ResultDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	details := []model.ResultDetail{}
	for _, r := range s.results {
		if r.GameID != gameID {
			continue
		}
		details = append(details, model.ResultDetail{
			Result:     r,
			WinnerName: s.players[r.WinnerID].Name,
			LoserName:  s.players[r.LoserID].Name,
		})
	}
	slices.SortFunc(details, func(a, b model.ResultDetail) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return details, nil
}

func (s *Storage) ListResultsByPlayer(ctx context.Context, playerID model.PlayerID) ([]model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := []model.Result{}
	for _, r := range s.results {
		if r.WinnerID == playerID || r.LoserID == playerID {
			results = append(results, r)
		}
	}
	return results, nil
}

func sortPlayers(players []model.Player) {
	slices.SortFunc(players, func(a, b model.Player) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
