package host

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/config"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/boot"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/buildlog"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/loader"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/model"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/ordering"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/validation"
	tu "github.com/GriffinCanCode/Orchestrator/backend/internal/testutil"
)

func standardRegistry() *loader.Registry {
	reg := loader.NewRegistry()
	reg.MustRegister(loader.Registration{Name: "directory", Order: ordering.Structural, Loader: loader.NewDirectoryLoader([]string{".*"})})
	reg.MustRegister(loader.Registration{Name: "legacy", Order: ordering.Generic, Loader: loader.NewLegacyLoader([]string{".*"})})
	return reg
}

func newInstance(t *testing.T, home *tu.Home, reg *loader.Registry, mutate ...func(*Options)) *Instance {
	t.Helper()
	opts := Options{
		Home:     home.Dir,
		ItemsDir: item.ChildrenDir,
		Registry: reg,
		Metrics:  monitoring.NewMetrics(),
		Workers:  4,
	}
	for _, m := range mutate {
		m(&opts)
	}
	inst, err := New(opts)
	require.NoError(t, err)
	return inst
}

// detached opens an item in the home without a parent, the way a custom
// loader would produce it.
func detached(t *testing.T, home *tu.Home, name string) item.Item {
	t.Helper()
	path := home.Job(name, item.YAML, "")
	it, err := item.Detect(nil, filepath.Dir(path), item.YAML)
	require.NoError(t, err)
	return it
}

func names(items []item.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name())
	}
	return out
}

func TestRootNode(t *testing.T) {
	inst := newInstance(t, tu.NewHome(t), standardRegistry())

	assert.Equal(t, "", inst.Name())
	assert.Equal(t, "", inst.URL())
	assert.Equal(t, "", model.FullName(inst))
	assert.Equal(t, "job", inst.URLChildPrefix())
	assert.Nil(t, inst.Parent())
	assert.Equal(t, StateStarting, inst.State())
}

func TestNewRequiresHomeAndRegistry(t *testing.T) {
	_, err := New(Options{Registry: loader.NewRegistry()})
	assert.Error(t, err)
	_, err = New(Options{Home: t.TempDir()})
	assert.Error(t, err)
}

func TestBootMergesLoadersInRankOrder(t *testing.T) {
	home := tu.NewHome(t)
	a, b, c := detached(t, home, "A"), detached(t, home, "B"), detached(t, home, "C")

	var order []string
	l1 := tu.NewMockLoader(t, a, b)
	l1.ExpectedCalls[0].Run(func(mock.Arguments) { order = append(order, "L1") })

	l2 := new(tu.MockLoader)
	l2.On("Load", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		order = append(order, "L2")
		root := args.Get(1).(loader.Root)
		assert.True(t, root.Claimed("A"), "later loaders see earlier claims")
		assert.True(t, root.Claimed("B"))
		assert.False(t, root.Claimed("C"))
	}).Return([]item.Item{c}, nil)

	reg := loader.NewRegistry()
	reg.MustRegister(loader.Registration{Name: "L2", Order: ordering.MustOf(10), Loader: l2})
	reg.MustRegister(loader.Registration{Name: "L1", Order: ordering.Structural, Loader: l1})

	inst := newInstance(t, home, reg)
	require.NoError(t, inst.Boot(context.Background()))

	assert.Equal(t, []string{"L1", "L2"}, order)
	assert.Equal(t, []string{"A", "B", "C"}, names(inst.Items()))
	assert.Equal(t, StateReady, inst.State())
	assert.False(t, inst.Claimed("A"), "claims are scoped to a pass")

	for _, it := range inst.Items() {
		assert.Same(t, model.Node(inst), it.Parent())
		assert.Equal(t, "job/"+it.Name()+"/", it.URL())
	}
	l1.AssertExpectations(t)
	l2.AssertExpectations(t)
}

func TestBootFailureInvokesNoLoader(t *testing.T) {
	home := tu.NewHome(t)
	l := tu.NewMockLoader(t)
	reg := loader.NewRegistry()
	reg.MustRegister(loader.Registration{Name: "only", Order: ordering.Structural, Loader: l})

	inst := newInstance(t, home, reg, func(o *Options) {
		o.Validator = boot.ValidatorFunc(func(string) boot.Result { return boot.Fail("layout is from the future") })
	})

	err := inst.Boot(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boot.ErrBootFailure)
	assert.Equal(t, "layout is from the future", err.Error())
	assert.Equal(t, StateFailed, inst.State())
	require.NotNil(t, inst.Failure())
	l.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(inst.Metrics().BootFailures))

	// Terminal: later calls return the same failure without loading.
	again := inst.Boot(context.Background())
	assert.Same(t, inst.Failure(), again)
	assert.ErrorIs(t, inst.Reload(context.Background()), boot.ErrBootFailure)
	l.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestBootWithLayoutValidator(t *testing.T) {
	home := tu.NewHome(t)
	home.WriteFile(boot.LayoutFile, "version: 99\n")

	inst := newInstance(t, home, standardRegistry())
	err := inst.Boot(context.Background())

	var failure *boot.Failure
	require.ErrorAs(t, err, &failure)
	assert.NotEmpty(t, failure.Message)
}

func TestLoaderFailureAbortsBoot(t *testing.T) {
	home := tu.NewHome(t)
	ok := tu.NewMockLoader(t, detached(t, home, "A"))
	boom := errors.New("disk unreadable")

	reg := loader.NewRegistry()
	reg.MustRegister(loader.Registration{Name: "good", Order: ordering.Structural, Loader: ok})
	reg.MustRegister(loader.Registration{Name: "bad", Order: ordering.Generic, Loader: tu.NewFailingLoader(t, boom)})

	inst := newInstance(t, home, reg)
	err := inst.Boot(context.Background())

	var lerr *loader.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "bad", lerr.Loader)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, inst.Items())
	assert.Equal(t, StateStarting, inst.State())
	assert.ErrorIs(t, inst.Reload(context.Background()), ErrNotReady)
}

func TestLoaderFailureLeavesLiveNamespaceUntouched(t *testing.T) {
	home := tu.NewHome(t)
	home.Job("A", item.YAML, "")
	home.Job("B", item.YAML, "")

	var fail atomic.Bool
	reg := standardRegistry()
	reg.MustRegister(loader.Registration{Name: "flaky", Order: ordering.MustOf(5), Loader: loader.Func(
		func(context.Context, loader.Root) ([]item.Item, error) {
			if fail.Load() {
				return nil, errors.New("transient")
			}
			return nil, nil
		})})

	inst := newInstance(t, home, reg)
	ctx := context.Background()
	require.NoError(t, inst.Boot(ctx))
	before := inst.Items()

	home.Job("C", item.YAML, "")
	fail.Store(true)
	require.Error(t, inst.Reload(ctx))

	assert.Equal(t, before, inst.Items())
	assert.Equal(t, StateReady, inst.State())
}

func TestCollisionPolicies(t *testing.T) {
	tests := []struct {
		policy  CollisionPolicy
		wantErr bool
		winner  string
	}{
		{policy: CollisionReject, wantErr: true},
		{policy: CollisionFirstWins, winner: "first"},
		{policy: CollisionLastWins, winner: "second"},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			home := tu.NewHome(t)
			first := detached(t, home, "dup")
			second := item.NewJob(first.RootDir(), item.YAML)
			require.NoError(t, second.OnLoad(nil, "dup"))

			reg := loader.NewRegistry()
			reg.MustRegister(loader.Registration{Name: "first", Order: ordering.Structural, Loader: tu.NewMockLoader(t, first)})
			reg.MustRegister(loader.Registration{Name: "second", Order: ordering.Generic, Loader: tu.NewMockLoader(t, second)})

			inst := newInstance(t, home, reg, func(o *Options) { o.Collision = tt.policy })
			err := inst.Boot(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNameCollision)
				var cerr *CollisionError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, "first", cerr.First)
				assert.Equal(t, "second", cerr.Second)
				assert.Empty(t, inst.Items())
				return
			}
			require.NoError(t, err)
			got, ok := inst.Item("dup")
			require.True(t, ok)
			want := map[string]item.Item{"first": first, "second": second}[tt.winner]
			assert.Same(t, want, got)
			assert.Equal(t, 1.0, testutil.ToFloat64(inst.Metrics().NameCollisions.WithLabelValues(string(tt.policy))))
		})
	}
}

func TestHydrationPolicies(t *testing.T) {
	setup := func(t *testing.T) *tu.Home {
		home := tu.NewHome(t)
		home.Job("good", item.YAML, "")
		home.Job("bad", item.YAML, "kind: [oops")
		return home
	}

	t.Run("skip", func(t *testing.T) {
		inst := newInstance(t, setup(t), standardRegistry(), func(o *Options) { o.Hydration = lifecycle.PolicySkip })
		require.NoError(t, inst.Boot(context.Background()))
		assert.Equal(t, []string{"good"}, names(inst.Items()))
		assert.Equal(t, 1.0, testutil.ToFloat64(inst.Metrics().HydrationFailures))
	})

	t.Run("abort", func(t *testing.T) {
		inst := newInstance(t, setup(t), standardRegistry(), func(o *Options) { o.Hydration = lifecycle.PolicyAbort })
		err := inst.Boot(context.Background())
		var lerr *lifecycle.LoadError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, "bad", lerr.Item)
		assert.Empty(t, inst.Items())
	})
}

func TestReloadCancelledDuringHydrationKeepsNamespace(t *testing.T) {
	home := tu.NewHome(t)
	home.Job("A", item.YAML, "")
	home.Job("B", item.YAML, "")

	var cancelPass atomic.Value
	reg := standardRegistry()
	reg.MustRegister(loader.Registration{Name: "interrupt", Order: ordering.Generic, Loader: loader.Func(
		func(context.Context, loader.Root) ([]item.Item, error) {
			if cancel, ok := cancelPass.Load().(context.CancelFunc); ok {
				cancel()
			}
			return nil, nil
		})})

	inst := newInstance(t, home, reg, func(o *Options) { o.Hydration = lifecycle.PolicySkip })
	require.NoError(t, inst.Boot(context.Background()))
	before := inst.Items()
	require.Len(t, before, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelPass.Store(context.CancelFunc(cancel))

	assert.ErrorIs(t, inst.Reload(ctx), context.Canceled)
	assert.Equal(t, before, inst.Items())
	assert.Equal(t, StateReady, inst.State())
}

func TestReloadRetainsIdentityAndDropsDeleted(t *testing.T) {
	home := tu.NewHome(t)
	home.Job("keep", item.YAML, "description: v1\n")
	goneDir := filepath.Dir(home.Job("gone", item.YAML, ""))
	home.Job("legacy", item.JSON, "")

	inst := newInstance(t, home, standardRegistry())
	ctx := context.Background()
	require.NoError(t, inst.Boot(ctx))
	assert.Equal(t, []string{"gone", "keep", "legacy"}, names(inst.Items()))
	keep, _ := inst.Item("keep")
	legacy, _ := inst.Item("legacy")

	require.NoError(t, os.RemoveAll(goneDir))
	home.Job("keep", item.YAML, "description: v2\n")
	home.Job("new", item.TOML, "")
	require.NoError(t, inst.Reload(ctx))

	assert.Equal(t, []string{"keep", "legacy", "new"}, names(inst.Items()))
	keepAfter, _ := inst.Item("keep")
	legacyAfter, _ := inst.Item("legacy")
	assert.Same(t, keep, keepAfter)
	assert.Same(t, legacy, legacyAfter)
	assert.Equal(t, "v2", keepAfter.(*item.Job).Config().Description)
	assert.Equal(t, 3.0, testutil.ToFloat64(inst.Metrics().NamespaceItems))
}

func TestReloadItemSharesConcurrentLoads(t *testing.T) {
	home := tu.NewHome(t)
	home.Job("api", item.YAML, "description: v1\n")
	inst := newInstance(t, home, standardRegistry())
	ctx := context.Background()
	require.NoError(t, inst.Boot(ctx))
	home.Job("api", item.YAML, "description: v2\n")

	var wg sync.WaitGroup
	results := make([]item.Item, 8)
	for n := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			it, err := inst.ReloadItem(ctx, "api")
			assert.NoError(t, err)
			results[n] = it
		}()
	}
	wg.Wait()

	api, _ := inst.Item("api")
	for _, r := range results {
		assert.Same(t, api, r)
	}
	assert.Equal(t, "v2", api.(*item.Job).Config().Description)

	_, err := inst.ReloadItem(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	home.Job("api", item.YAML, "kind: [oops")
	_, err = inst.ReloadItem(ctx, "api")
	var lerr *lifecycle.LoadError
	assert.ErrorAs(t, err, &lerr)
}

func TestLookups(t *testing.T) {
	home := tu.NewHome(t)
	home.Folder("team")
	home.WriteFile("jobs/team/jobs/api/config.yaml", "kind: pipeline\n")
	home.WriteFile("jobs/team/jobs/sub/config.yaml", "kind: folder\n")
	home.WriteFile("jobs/team/jobs/sub/jobs/deep/config.yaml", "kind: freestyle\n")
	home.WriteFile("jobs/team/jobs/broken/config.yaml", "kind: [oops")
	home.Job("solo", item.YAML, "")
	home.Job("with space", item.YAML, "")

	inst := newInstance(t, home, standardRegistry())
	require.NoError(t, inst.Boot(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(inst.Metrics().FolderChildErrors))

	deep, err := inst.ItemByFullName("team/sub/deep")
	require.NoError(t, err)
	assert.Equal(t, "team/sub/deep", deep.FullName())
	assert.Equal(t, "job/team/job/sub/job/deep/", deep.URL())

	resolved, err := inst.ResolveURL(deep.URL())
	require.NoError(t, err)
	assert.Same(t, deep, resolved)

	spaced, err := inst.ResolveURL("job/with%20space/")
	require.NoError(t, err)
	assert.Equal(t, "with space", spaced.Name())

	rel, err := inst.ItemByRelativeName("team/api", "../sub/deep")
	require.NoError(t, err)
	assert.Same(t, deep, rel)

	abs, err := inst.ItemByRelativeName("team/api", "/solo")
	require.NoError(t, err)
	assert.Equal(t, "solo", abs.FullName())

	for _, bad := range []string{"team/nope", "solo/child", "", "team/broken"} {
		_, err := inst.ItemByFullName(bad)
		assert.ErrorIs(t, err, ErrNotFound, bad)
	}
	for _, bad := range []string{"", "job/", "job/solo/job/x/", "view/team/", "job/team/view/api/"} {
		_, err := inst.ResolveURL(bad)
		assert.Error(t, err, bad)
	}
	_, err = inst.ResolveURL("/job/solo/")
	assert.ErrorIs(t, err, model.ErrInvalidURL)

	all := inst.AllItems()
	var fulls []string
	for _, it := range all {
		fulls = append(fulls, it.FullName())
	}
	assert.Equal(t, []string{"solo", "team", "team/api", "team/sub", "team/sub/deep", "with space"}, fulls)
}

func TestBuild(t *testing.T) {
	home := tu.NewHome(t)
	home.Job("api", item.YAML, "")
	inst := newInstance(t, home, standardRegistry())
	ctx := context.Background()

	_, err := inst.Build(ctx, "api", nil)
	assert.ErrorIs(t, err, ErrNotReady)
	require.NoError(t, inst.Boot(ctx))

	first, err := inst.Build(ctx, "api", func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "hello\n")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Job.Number)
	assert.True(t, first.Success)
	assert.Equal(t, buildlog.KindFile, first.Handle.Kind)

	data, err := os.ReadFile(filepath.Join(first.Dir, buildlog.LogFile))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	boom := errors.New("tests failed")
	second, err := inst.Build(ctx, "api", func(context.Context, io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, second.Job.Number)
	assert.False(t, second.Success)

	_, err = inst.Build(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	// Builds do not disturb item loading.
	require.NoError(t, inst.Reload(ctx))
	assert.Equal(t, []string{"api"}, names(inst.Items()))
}

type collectorConn struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

func (c *collectorConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data, p...)
	return len(p), nil
}

func (c *collectorConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestBuildStreamsToCollector(t *testing.T) {
	home := tu.NewHome(t)
	home.Job("api", item.YAML, "")
	conn := &collectorConn{}
	var dialed []buildlog.JobData
	inst := newInstance(t, home, standardRegistry(), func(o *Options) {
		o.Collector = func(_ context.Context, job buildlog.JobData) (io.WriteCloser, error) {
			dialed = append(dialed, job)
			return conn, nil
		}
	})
	ctx := context.Background()
	require.NoError(t, inst.Boot(ctx))

	b, err := inst.Build(ctx, "api", func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "streamed\n")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, buildlog.KindStream, b.Handle.Kind)
	require.Len(t, dialed, 1)
	assert.Equal(t, b.Job, dialed[0])

	conn.mu.Lock()
	assert.Equal(t, "streamed\n", string(conn.data))
	assert.True(t, conn.closed)
	conn.mu.Unlock()
	assert.NoFileExists(t, filepath.Join(b.Dir, buildlog.LogFile))

	err = inst.AppendLog("api", b.Job.Number, []byte("late\n"))
	assert.ErrorIs(t, err, buildlog.ErrUnknownDestination, "a finished stream cannot be reattached")
}

func TestAppendLogReattachesFileLog(t *testing.T) {
	home := tu.NewHome(t)
	home.Job("api", item.YAML, "")
	inst := newInstance(t, home, standardRegistry())
	ctx := context.Background()
	require.NoError(t, inst.Boot(ctx))

	b, err := inst.Build(ctx, "api", func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "built\n")
		return err
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(b.Dir, HandleFile))

	require.NoError(t, inst.AppendLog("api", b.Job.Number, []byte("archived\n")))
	data, err := os.ReadFile(filepath.Join(b.Dir, buildlog.LogFile))
	require.NoError(t, err)
	assert.Equal(t, "built\narchived\n", string(data))

	assert.ErrorIs(t, inst.AppendLog("api", 99, []byte("x")), ErrNotFound)
	assert.ErrorIs(t, inst.AppendLog("nope", 1, []byte("x")), ErrNotFound)
}

func TestReloadItemNested(t *testing.T) {
	home := tu.NewHome(t)
	home.Folder("team")
	home.WriteFile("jobs/team/jobs/api/config.yaml", "description: v1\n")
	inst := newInstance(t, home, standardRegistry())
	ctx := context.Background()

	_, err := inst.ReloadItem(ctx, "team/api")
	assert.ErrorIs(t, err, ErrNotReady)
	require.NoError(t, inst.Boot(ctx))

	before, err := inst.ItemByFullName("team/api")
	require.NoError(t, err)
	home.WriteFile("jobs/team/jobs/api/config.yaml", "description: v2\n")

	after, err := inst.ReloadItem(ctx, "team/api")
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Equal(t, "v2", after.(*item.Job).Config().Description)
}

func TestOptionsFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Loading.CollisionPolicy = "last-wins"
	cfg.Loading.HydrationPolicy = "abort"

	opts, err := OptionsFrom(cfg)
	require.NoError(t, err)
	assert.Equal(t, CollisionLastWins, opts.Collision)
	assert.Equal(t, lifecycle.PolicyAbort, opts.Hydration)
	assert.Equal(t, cfg.BuildLog.DrainTimeout, opts.BuildLog.DrainTimeout)

	cfg.Loading.CollisionPolicy = "merge"
	_, err = OptionsFrom(cfg)
	assert.Error(t, err)
}

func TestBootIsCancellable(t *testing.T) {
	home := tu.NewHome(t)
	home.Job("a", item.YAML, "")
	inst := newInstance(t, home, standardRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	assert.ErrorIs(t, inst.Boot(ctx), context.DeadlineExceeded)
}

func TestCreateItem(t *testing.T) {
	home := tu.NewHome(t)
	home.Folder("team")
	home.Job("solo", item.YAML, "")
	home.Mkdir("jobs/stray")
	inst := newInstance(t, home, standardRegistry())
	ctx := context.Background()

	_, err := inst.CreateItem(ctx, "", "new", item.Config{})
	assert.ErrorIs(t, err, ErrNotReady)
	require.NoError(t, inst.Boot(ctx))

	created, err := inst.CreateItem(ctx, "", "new", item.Config{DisplayName: "New Job"})
	require.NoError(t, err)
	assert.Equal(t, "job/new/", created.URL())
	assert.FileExists(t, filepath.Join(home.ItemsDir, "new", item.YAML.File()))
	got, ok := inst.Item("new")
	require.True(t, ok)
	assert.Same(t, created, got)

	child, err := inst.CreateItem(ctx, "team", "api", item.Config{Kind: item.KindPipeline})
	require.NoError(t, err)
	assert.Equal(t, "team/api", child.FullName())

	tests := []struct {
		name    string
		parent  string
		item    string
		wantErr error
	}{
		{name: "taken top-level", item: "solo", wantErr: item.ErrExists},
		{name: "unclaimed directory", item: "stray", wantErr: item.ErrExists},
		{name: "taken child", parent: "team", item: "api", wantErr: item.ErrExists},
		{name: "unsafe name", item: "a/b", wantErr: validation.ErrInvalidName},
		{name: "parent missing", parent: "nope", item: "x", wantErr: ErrNotFound},
		{name: "parent not a folder", parent: "solo", item: "x", wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inst.CreateItem(ctx, tt.parent, tt.item, item.Config{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Created items keep their identity across a reload.
	require.NoError(t, inst.Reload(ctx))
	again, ok := inst.Item("new")
	require.True(t, ok)
	assert.Same(t, created, again)
	assert.Equal(t, "New Job", again.DisplayName())
	deep, err := inst.ItemByFullName("team/api")
	require.NoError(t, err)
	assert.Equal(t, item.KindPipeline, deep.Kind())
}
