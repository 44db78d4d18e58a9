package release

import (
	"context"
	"errors"
	"sync"

	"github.com/hitoshi/releasecal/internal/model"
)

// Status はローダーの状態。
type Status int

const (
	// StatusIdle はまだ何も要求していない状態。
	StatusIdle Status = iota
	// StatusLoading は結果待ちの状態。
	StatusLoading
	// StatusError は取得に失敗した状態。キーが変わるか再検証されるまで維持する。
	StatusError
	// StatusReady は結果を保持している状態。0件の場合も含む。
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	default:
		return "idle"
	}
}

// State はローダーの現在の状態のスナップショット。
type State struct {
	Status Status
	Key    string
	Groups []model.PublicationByDate
	Err    error
}

// Loading は結果待ちかを返す。
func (s State) Loading() bool { return s.Status == StatusLoading }

// Empty は取得済みで0件かを返す。
func (s State) Empty() bool { return s.Status == StatusReady && len(s.Groups) == 0 }

// Ticket はBeginで発行される要求の識別子。
type Ticket struct {
	gen   uint64
	query Query
}

// Key はチケットのクエリキーを返す。
func (t Ticket) Key() string { return t.query.Key() }

// Source はローダーが結果を取得する先。
type Source interface {
	Fetch(ctx context.Context, q Query) ([]model.PublicationByDate, error)
}

// Loader はクエリキーごとの取得状態を管理する。
// 要求のたびに世代番号を進め、最新の要求に対応する結果のみを反映する。
type Loader struct {
	source Source

	mu     sync.Mutex
	gen    uint64
	active Ticket
	state  State
}

// NewLoader はLoaderの新しいインスタンスを生成する。
func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// Begin はクエリを有効なキーとして登録し、チケットを返す。
// 同じキーが取得中・取得済み・エラーの場合は状態を変えずに現在のチケットを返す。
func (l *Loader) Begin(q Query) Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := q.Key()
	if l.state.Status != StatusIdle && l.state.Key == key {
		return l.active
	}
	return l.beginLocked(q)
}

func (l *Loader) beginLocked(q Query) Ticket {
	l.gen++
	l.active = Ticket{gen: l.gen, query: q}
	l.state = State{Status: StatusLoading, Key: q.Key()}
	return l.active
}

// Complete は取得結果を反映する。チケットが最新でない場合は破棄してfalseを返す。
func (l *Loader) Complete(t Ticket, groups []model.PublicationByDate, err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.gen != l.gen {
		return false
	}
	if err != nil {
		l.state = State{Status: StatusError, Key: t.Key(), Err: err}
		return true
	}
	if groups == nil {
		groups = []model.PublicationByDate{}
	}
	l.state = State{Status: StatusReady, Key: t.Key(), Groups: groups}
	return true
}

// Load はクエリの状態を返す。取得が必要な場合はctxの期限まで待機する。
// 期限内に結果が得られない場合はLoading状態のまま返す。
func (l *Loader) Load(ctx context.Context, q Query) State {
	l.mu.Lock()
	key := q.Key()
	if l.state.Key == key && (l.state.Status == StatusReady || l.state.Status == StatusError) {
		st := l.state
		l.mu.Unlock()
		return st
	}
	l.mu.Unlock()

	return l.run(ctx, l.Begin(q))
}

// Revalidate は有効なキーを再取得する。エラー状態もここで解除される。
func (l *Loader) Revalidate(ctx context.Context) State {
	l.mu.Lock()
	if l.state.Status == StatusIdle {
		st := l.state
		l.mu.Unlock()
		return st
	}
	t := l.beginLocked(l.active.query)
	l.mu.Unlock()

	return l.run(ctx, t)
}

func (l *Loader) run(ctx context.Context, t Ticket) State {
	groups, err := l.source.Fetch(ctx, t.query)
	if !errors.Is(err, ErrPending) {
		l.Complete(t, groups, err)
	}
	return l.State()
}

// State は現在の状態を返す。
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
