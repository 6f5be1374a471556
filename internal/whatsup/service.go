package whatsup

import (
	"errors"
	"fmt"
	"time"

	"whatsup-go/internal/model"
)

// ErrUserNotFound is returned when an address has no registered user.
var ErrUserNotFound = errors.New("user not found")

// WatchService manages users, watches and rules on behalf of the CLI.
// The check engine only reads what it writes.
type WatchService struct {
	database Database
	logger   Logger
	clock    Clock
}

func NewWatchService(database Database, logger Logger, clock Clock) *WatchService {
	return &WatchService{
		database: database,
		logger:   logger,
		clock:    clock,
	}
}

// AddUser registers a user. If the address is already registered, the
// existing user is returned.
func (s *WatchService) AddUser(address string) (*model.User, error) {
	existing, err := s.database.FindUserByAddress(address)
	if err != nil {
		return nil, fmt.Errorf("checking for existing user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	user, err := s.database.CreateUser(address)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user added", "user", user.Address)
	return user, nil
}

// SetPresence records a user's presence. Users in one of
// model.UnavailablePresences are not checked.
func (s *WatchService) SetPresence(address string, presence string) error {
	user, err := s.user(address)
	if err != nil {
		return err
	}
	if err := s.database.SetUserPresence(user, presence); err != nil {
		return err
	}
	s.logger.Info("presence changed", "user", address, "presence", presence)
	return nil
}

// UserStatus summarizes a user for the status command.
type UserStatus struct {
	Address    string
	Presence   string
	Active     bool
	QuietUntil *time.Time // nil unless a quiet window is still open
	Watches    int
}

// UserStatus reports a user's presence, activity flag and number of watches.
func (s *WatchService) UserStatus(address string) (*UserStatus, error) {
	user, err := s.user(address)
	if err != nil {
		return nil, err
	}
	watches, err := s.database.FindWatchesByUser(user)
	if err != nil {
		return nil, fmt.Errorf("listing watches: %w", err)
	}

	st := &UserStatus{
		Address:  user.Address,
		Presence: user.Presence,
		Active:   user.Active,
		Watches:  len(watches),
	}
	if user.QuietUntil != nil && s.clock.Now().Before(*user.QuietUntil) {
		st.QuietUntil = user.QuietUntil
	}
	return st, nil
}

// SetUserActive enables or disables checks of every watch the user owns.
func (s *WatchService) SetUserActive(address string, active bool) error {
	user, err := s.user(address)
	if err != nil {
		return err
	}
	return s.database.SetUserActive(user, active)
}

// QuietUser silences the user's notifications for d. A zero d ends the
// quiet window. Returns the end of the window, or nil when cleared.
func (s *WatchService) QuietUser(address string, d time.Duration) (*time.Time, error) {
	user, err := s.user(address)
	if err != nil {
		return nil, err
	}
	until := s.quietUntil(d)
	if err := s.database.SetUserQuiet(user, until); err != nil {
		return nil, err
	}
	return until, nil
}

// AddWatch starts watching target for the user.
func (s *WatchService) AddWatch(address string, target string) (*model.Watch, error) {
	user, err := s.user(address)
	if err != nil {
		return nil, err
	}
	watch, err := s.database.CreateWatch(user, target)
	if err != nil {
		return nil, err
	}
	s.logger.Info("watch added", "user", address, "watch", target)
	return watch, nil
}

// ListWatches returns all of a user's watches ordered by address.
func (s *WatchService) ListWatches(address string) ([]*model.Watch, error) {
	user, err := s.user(address)
	if err != nil {
		return nil, err
	}
	return s.database.FindWatchesByUser(user)
}

// InspectWatch returns a single watch with its rules.
func (s *WatchService) InspectWatch(address string, target string) (*model.Watch, error) {
	return s.watch(address, target)
}

// DeleteWatch stops watching target. Its rules go with it.
func (s *WatchService) DeleteWatch(address string, target string) error {
	watch, err := s.watch(address, target)
	if err != nil {
		return err
	}
	if err := s.database.DeleteWatch(watch); err != nil {
		return err
	}
	s.logger.Info("watch deleted", "user", address, "watch", target)
	return nil
}

// SetWatchActive enables or disables checks of one watch.
func (s *WatchService) SetWatchActive(address string, target string, active bool) error {
	watch, err := s.watch(address, target)
	if err != nil {
		return err
	}
	return s.database.SetWatchActive(watch, active)
}

// QuietWatch silences notifications for one watch for d; zero d clears it.
func (s *WatchService) QuietWatch(address string, target string, d time.Duration) (*time.Time, error) {
	watch, err := s.watch(address, target)
	if err != nil {
		return nil, err
	}
	until := s.quietUntil(d)
	if err := s.database.SetWatchQuiet(watch, until); err != nil {
		return nil, err
	}
	return until, nil
}

// AddRule adds a content rule to a watch. The pattern is rejected if it is
// not a valid regular expression.
func (s *WatchService) AddRule(address string, target string, kind model.RuleKind, pattern string) (*model.Rule, error) {
	watch, err := s.watch(address, target)
	if err != nil {
		return nil, err
	}
	rule, err := model.NewRule(watch.ID, kind, pattern)
	if err != nil {
		return nil, err
	}
	if err := s.database.CreateRule(rule); err != nil {
		return nil, err
	}
	s.logger.Info("rule added", "watch", target, "rule", kind.String()+" "+pattern)
	return rule, nil
}

func (s *WatchService) user(address string) (*model.User, error) {
	user, err := s.database.FindUserByAddress(address)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%s: %w", address, ErrUserNotFound)
	}
	return user, nil
}

func (s *WatchService) watch(address string, target string) (*model.Watch, error) {
	user, err := s.user(address)
	if err != nil {
		return nil, err
	}
	watch, err := s.database.FindWatchByAddress(user, target)
	if err != nil {
		return nil, fmt.Errorf("finding watch: %w", err)
	}
	if watch == nil {
		return nil, fmt.Errorf("%s: %w", target, ErrWatchNotFound)
	}
	return watch, nil
}

func (s *WatchService) quietUntil(d time.Duration) *time.Time {
	if d <= 0 {
		return nil
	}
	until := s.clock.Now().Add(d)
	return &until
}
