package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/campusarena/arena-system/cache"
	"github.com/campusarena/arena-system/events"
	"github.com/campusarena/arena-system/live"
	"github.com/campusarena/arena-system/models"
	"github.com/campusarena/arena-system/repositories"
)

// memStore - хранилище в памяти, реализующее все репозитории для тестов
// сервисного слоя. Репозитории возвращают копии, как это делает scan из БД,
// поэтому мутации возвращённых структур не задевают хранилище напрямую.
type memStore struct {
	mu sync.Mutex
	// txMu сериализует транзакции: конкурирующие WithinTx выполняются
	// строго по очереди, как конкурирующие FOR UPDATE в Postgres.
	txMu sync.Mutex

	users         map[int]*models.User
	teams         map[int]*models.Team
	events        map[int]*models.Event
	matches       map[int]*models.Match
	stakes        map[int]*models.Stake
	transactions  []*models.Transaction
	notifications []*models.Notification

	nextMatchID int
	nextStakeID int
	nextTxnID   int
	nextNotifID int
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[int]*models.User),
		teams:       make(map[int]*models.Team),
		events:      make(map[int]*models.Event),
		matches:     make(map[int]*models.Match),
		stakes:      make(map[int]*models.Stake),
		nextMatchID: 1,
		nextStakeID: 1,
		nextTxnID:   1,
		nextNotifID: 1,
	}
}

func (s *memStore) addEvent(id int, teamLives int) {
	s.events[id] = &models.Event{ID: id, Name: "Test Event", TeamLives: teamLives}
}

func (s *memStore) addTeam(id, eventID, captainID, lives int, name string) {
	s.teams[id] = &models.Team{
		ID:           id,
		EventID:      eventID,
		Name:         name,
		CaptainID:    captainID,
		Lives:        lives,
		HighestRound: models.RoundNone,
	}
}

func (s *memStore) addUser(id, points int) {
	s.users[id] = &models.User{ID: id, Role: models.RoleUser, Points: points}
}

func (s *memStore) addMatch(m *models.Match) *models.Match {
	cp := *m
	cp.ID = s.nextMatchID
	s.nextMatchID++
	if cp.Status == "" {
		cp.Status = models.MatchStatusScheduled
	}
	if cp.Round == "" {
		cp.Round = models.RoundNone
	}
	s.matches[cp.ID] = &cp
	out := cp
	return &out
}

func (s *memStore) addStake(userID, matchID, teamID, amount int) *models.Stake {
	st := &models.Stake{
		ID:      s.nextStakeID,
		UserID:  userID,
		MatchID: matchID,
		TeamID:  teamID,
		Amount:  amount,
		Outcome: models.StakeOutcomePending,
	}
	s.nextStakeID++
	s.stakes[st.ID] = st
	out := *st
	return &out
}

type memSnapshot struct {
	users         map[int]*models.User
	teams         map[int]*models.Team
	events        map[int]*models.Event
	matches       map[int]*models.Match
	stakes        map[int]*models.Stake
	transactions  []*models.Transaction
	notifications []*models.Notification

	nextMatchID int
	nextStakeID int
	nextTxnID   int
	nextNotifID int
}

func (s *memStore) snapshot() *memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &memSnapshot{
		users:       make(map[int]*models.User, len(s.users)),
		teams:       make(map[int]*models.Team, len(s.teams)),
		events:      make(map[int]*models.Event, len(s.events)),
		matches:     make(map[int]*models.Match, len(s.matches)),
		stakes:      make(map[int]*models.Stake, len(s.stakes)),
		nextMatchID: s.nextMatchID,
		nextStakeID: s.nextStakeID,
		nextTxnID:   s.nextTxnID,
		nextNotifID: s.nextNotifID,
	}
	for id, u := range s.users {
		cp := *u
		snap.users[id] = &cp
	}
	for id, t := range s.teams {
		cp := *t
		snap.teams[id] = &cp
	}
	for id, e := range s.events {
		cp := *e
		snap.events[id] = &cp
	}
	for id, m := range s.matches {
		cp := *m
		snap.matches[id] = &cp
	}
	for id, st := range s.stakes {
		cp := *st
		snap.stakes[id] = &cp
	}
	snap.transactions = append(snap.transactions, s.transactions...)
	snap.notifications = append(snap.notifications, s.notifications...)
	return snap
}

func (s *memStore) restore(snap *memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = snap.users
	s.teams = snap.teams
	s.events = snap.events
	s.matches = snap.matches
	s.stakes = snap.stakes
	s.transactions = snap.transactions
	s.notifications = snap.notifications
	s.nextMatchID = snap.nextMatchID
	s.nextStakeID = snap.nextStakeID
	s.nextTxnID = snap.nextTxnID
	s.nextNotifID = snap.nextNotifID
}

// memTxRunner даёт атомарность через снапшот: ошибка fn откатывает хранилище
// к состоянию на момент начала транзакции.
type memTxRunner struct {
	store *memStore
}

func (r *memTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	snap := r.store.snapshot()
	if err := fn(nil); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

// --- репозитории поверх memStore ---

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) AdjustPoints(ctx context.Context, exec repositories.SQLExecutor, id int, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return 0, repositories.ErrUserNotFound
	}
	if u.Points+delta < 0 {
		return 0, repositories.ErrInsufficientPoints
	}
	u.Points += delta
	return u.Points, nil
}

type memTeamRepo struct{ s *memStore }

func (r *memTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTeamRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	return r.GetByID(ctx, id)
}

func (r *memTeamRepo) ListByEvent(ctx context.Context, eventID int, onlyActive bool) ([]*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Team
	for _, t := range r.s.teams {
		if t.EventID != eventID {
			continue
		}
		if onlyActive && t.Eliminated {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTeamRepo) UpdateStanding(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.teams[team.ID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	stored.Lives = team.Lives
	stored.Eliminated = team.Eliminated
	stored.HighestRound = team.HighestRound
	if team.Rank != nil {
		rank := *team.Rank
		stored.Rank = &rank
	}
	return nil
}

type memEventRepo struct{ s *memStore }

func (r *memEventRepo) GetByID(ctx context.Context, id int) (*models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEventRepo) List(ctx context.Context) ([]*models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Event
	for _, e := range r.s.events {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memMatchRepo struct{ s *memStore }

func (r *memMatchRepo) Create(ctx context.Context, match *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	match.ID = r.s.nextMatchID
	r.s.nextMatchID++
	match.CreatedAt = time.Now()
	cp := *match
	r.s.matches[cp.ID] = &cp
	return nil
}

func (r *memMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, id)
}

func (r *memMatchRepo) GetByIDForShare(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, id)
}

func (r *memMatchRepo) ListByEvent(ctx context.Context, eventID int, round *models.Round, status *models.MatchStatus) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Match
	for _, m := range r.s.matches {
		if m.EventID != eventID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memMatchRepo) MarkLive(ctx context.Context, id int, startTime time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok || m.Status != models.MatchStatusScheduled {
		return repositories.ErrMatchStatusConflict
	}
	m.Status = models.MatchStatusLive
	m.StartTime = startTime
	return nil
}

func (r *memMatchRepo) UpdateScore(ctx context.Context, id int, scoreA, scoreB string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok || m.Status != models.MatchStatusLive {
		return repositories.ErrMatchStatusConflict
	}
	m.ScoreA = &scoreA
	m.ScoreB = &scoreB
	return nil
}

func (r *memMatchRepo) MarkCompleted(ctx context.Context, exec repositories.SQLExecutor, id int, winnerID int, scoreA, scoreB *string, endTime time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok || m.Status.IsTerminal() {
		return repositories.ErrMatchStatusConflict
	}
	m.Status = models.MatchStatusCompleted
	m.WinnerID = &winnerID
	if scoreA != nil {
		m.ScoreA = scoreA
	}
	if scoreB != nil {
		m.ScoreB = scoreB
	}
	m.EndTime = &endTime
	return nil
}

func (r *memMatchRepo) MarkCanceled(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok || m.Status.IsTerminal() {
		return repositories.ErrMatchStatusConflict
	}
	m.Status = models.MatchStatusCanceled
	return nil
}

type memStakeRepo struct{ s *memStore }

func (r *memStakeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, stake *models.Stake) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stake.ID = r.s.nextStakeID
	r.s.nextStakeID++
	stake.CreatedAt = time.Now()
	cp := *stake
	r.s.stakes[cp.ID] = &cp
	return nil
}

func (r *memStakeRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.Stake, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Stake
	for _, st := range r.s.stakes {
		if st.MatchID != matchID {
			continue
		}
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memStakeRepo) ListByUser(ctx context.Context, userID int) ([]*models.Stake, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Stake
	for _, st := range r.s.stakes {
		if st.UserID != userID {
			continue
		}
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memStakeRepo) AggregateByTeam(ctx context.Context, matchID int) ([]models.TeamPool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byTeam := make(map[int]*models.TeamPool)
	for _, st := range r.s.stakes {
		if st.MatchID != matchID {
			continue
		}
		pool, ok := byTeam[st.TeamID]
		if !ok {
			pool = &models.TeamPool{TeamID: st.TeamID}
			byTeam[st.TeamID] = pool
		}
		pool.Total += st.Amount
		pool.Count++
	}
	var out []models.TeamPool
	for _, pool := range byTeam {
		out = append(out, *pool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

func (r *memStakeRepo) Resolve(ctx context.Context, exec repositories.SQLExecutor, stakeID int, outcome models.StakeOutcome, payout int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stakes[stakeID]
	if !ok || st.Outcome != models.StakeOutcomePending {
		return repositories.ErrStakeAlreadyResolved
	}
	st.Outcome = outcome
	st.Payout = payout
	return nil
}

type memTransactionRepo struct{ s *memStore }

func (r *memTransactionRepo) Create(ctx context.Context, exec repositories.SQLExecutor, txn *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn.ID = r.s.nextTxnID
	r.s.nextTxnID++
	txn.CreatedAt = time.Now()
	cp := *txn
	r.s.transactions = append(r.s.transactions, &cp)
	return nil
}

func (r *memTransactionRepo) ListByUser(ctx context.Context, userID int) ([]*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Transaction
	for _, txn := range r.s.transactions {
		if txn.UserID != userID {
			continue
		}
		cp := *txn
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memTransactionRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Transaction
	for _, txn := range r.s.transactions {
		if txn.MatchID == nil || *txn.MatchID != matchID {
			continue
		}
		cp := *txn
		out = append(out, &cp)
	}
	return out, nil
}

type memNotificationRepo struct{ s *memStore }

func (r *memNotificationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, notification *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notification.ID = r.s.nextNotifID
	r.s.nextNotifID++
	notification.CreatedAt = time.Now()
	cp := *notification
	r.s.notifications = append(r.s.notifications, &cp)
	return nil
}

func (r *memNotificationRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, notifications []*models.Notification) error {
	for _, n := range notifications {
		if err := r.Create(ctx, exec, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *memNotificationRepo) ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memNotificationRepo) MarkRead(ctx context.Context, id int, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return repositories.ErrNotificationNotFound
}

// --- сборка сервисов для тестов ---

type testEnv struct {
	store *memStore

	ledger     LedgerService
	bracket    BracketService
	match      MatchService
	stake      StakeService
	settlement SettlementService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(policy RemainderPolicy) *testEnv {
	store := newMemStore()
	runner := &memTxRunner{store: store}
	logger := discardLogger()
	hub := live.NewHub()

	userRepo := &memUserRepo{s: store}
	teamRepo := &memTeamRepo{s: store}
	eventRepo := &memEventRepo{s: store}
	matchRepo := &memMatchRepo{s: store}
	stakeRepo := &memStakeRepo{s: store}
	txnRepo := &memTransactionRepo{s: store}
	notifRepo := &memNotificationRepo{s: store}

	ledger := NewLedgerService(runner, userRepo, txnRepo)
	bracket := NewBracketService(teamRepo)

	return &testEnv{
		store:   store,
		ledger:  ledger,
		bracket: bracket,
		match: NewMatchService(
			runner, matchRepo, teamRepo, eventRepo, stakeRepo, notifRepo,
			ledger, cache.NoopInvalidator{}, events.NoopPublisher{}, hub, logger,
		),
		stake: NewStakeService(
			runner, matchRepo, stakeRepo, ledger,
			cache.NoopInvalidator{}, logger,
		),
		settlement: NewSettlementService(
			runner, matchRepo, stakeRepo, notifRepo, ledger, bracket, policy,
			cache.NoopInvalidator{}, events.NoopPublisher{}, hub, nil, logger,
		),
	}
}

// seedMatch - типовой сетап: турнир, две команды, матч между ними.
func (e *testEnv) seedMatch(status models.MatchStatus, round models.Round) *models.Match {
	e.store.addEvent(1, 3)
	e.store.addTeam(10, 1, 100, 3, "Alpha")
	e.store.addTeam(20, 1, 200, 3, "Beta")
	return e.store.addMatch(&models.Match{
		EventID: 1,
		TeamAID: 10,
		TeamBID: 20,
		Status:  status,
		Round:   round,
	})
}

// totalPoints суммирует балансы всех пользователей: удобно для проверки
// сохранения пула.
func (e *testEnv) totalPoints() int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	total := 0
	for _, u := range e.store.users {
		total += u.Points
	}
	return total
}
