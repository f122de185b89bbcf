package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/MyStarInYourSky/zthost/config"
	"github.com/MyStarInYourSky/zthost/models"
	"github.com/MyStarInYourSky/zthost/sdk"
)

type fakeAgent struct {
	installed     bool
	nodeID        string
	joined        []string
	localConfPath string

	joinCalls  []string
	leaveCalls []string
	restarted  bool

	joinErr  error
	leaveErr error
}

func (a *fakeAgent) Installed() bool { return a.installed }

func (a *fakeAgent) NodeID() (string, error) { return a.nodeID, nil }

func (a *fakeAgent) JoinedNetworks() ([]string, error) { return a.joined, nil }

func (a *fakeAgent) LocalConfPath() string { return a.localConfPath }

func (a *fakeAgent) Join(ctx context.Context, networkID string) error {
	a.joinCalls = append(a.joinCalls, networkID)
	return a.joinErr
}

func (a *fakeAgent) Leave(ctx context.Context, networkID string) error {
	a.leaveCalls = append(a.leaveCalls, networkID)
	return a.leaveErr
}

func (a *fakeAgent) RestartService(ctx context.Context) error {
	a.restarted = true
	return nil
}

type fakeControlPlane struct {
	members map[string]*sdk.Member

	networkErr error
	memberErr  error

	updates map[string]*sdk.Member
	deletes []string
}

func newFakeControlPlane() *fakeControlPlane {
	return &fakeControlPlane{
		members: make(map[string]*sdk.Member),
		updates: make(map[string]*sdk.Member),
	}
}

func (c *fakeControlPlane) GetNetwork(ctx context.Context, networkID string) (*sdk.Network, error) {
	if c.networkErr != nil {
		return nil, c.networkErr
	}
	return &sdk.Network{ID: networkID}, nil
}

func (c *fakeControlPlane) GetMember(ctx context.Context, networkID, nodeID string) (*sdk.Member, error) {
	if c.memberErr != nil {
		return nil, c.memberErr
	}
	if m, ok := c.members[networkID]; ok {
		return m, nil
	}
	return &sdk.Member{NetworkID: networkID, NodeID: nodeID}, nil
}

func (c *fakeControlPlane) UpdateMember(ctx context.Context, networkID, nodeID string, member *sdk.Member) (*sdk.Member, error) {
	c.updates[networkID] = member
	return member, nil
}

func (c *fakeControlPlane) DeleteMember(ctx context.Context, networkID, nodeID string) error {
	c.deletes = append(c.deletes, networkID)
	return nil
}

func newTestReconciler(agent *fakeAgent, plane MemberAPI) *Reconciler {
	return New(Config{
		Agent: agent,
		NewClient: func(apiKey string) (MemberAPI, error) {
			return plane, nil
		},
	})
}

func TestRunAgentNotInstalled(t *testing.T) {
	r := newTestReconciler(&fakeAgent{installed: false}, newFakeControlPlane())

	_, err := r.Run(context.Background(), &config.Declaration{})
	if !errors.Is(err, models.ErrAgentNotInstalled) {
		t.Errorf("Run() error = %v, want ErrAgentNotInstalled", err)
	}
}

func TestRunJoinsAndUpdatesNewNetwork(t *testing.T) {
	agent := &fakeAgent{installed: true, nodeID: "abcdef1234"}
	plane := newFakeControlPlane()
	plane.members["8056c2e21c000001"] = &sdk.Member{
		Config: map[string]interface{}{"authorized": false},
	}
	r := newTestReconciler(agent, plane)

	decl := &config.Declaration{
		Networks: map[string]config.NetworkDeclaration{
			"8056c2e21c000001": {
				APIKey: "k",
				Config: map[string]interface{}{"authorized": true},
			},
		},
	}

	summary, err := r.Run(context.Background(), decl)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(agent.joinCalls, []string{"8056c2e21c000001"}) {
		t.Errorf("join calls = %v, want the declared network", agent.joinCalls)
	}

	updated, ok := plane.updates["8056c2e21c000001"]
	if !ok {
		t.Fatal("expected a member update to be pushed")
	}
	if updated.Config["authorized"] != true {
		t.Errorf("pushed authorized = %v, want true", updated.Config["authorized"])
	}

	if len(summary.Networks) != 1 {
		t.Fatalf("got %d network results, want 1", len(summary.Networks))
	}
	result := summary.Networks[0]
	wantActions := []models.ActionKind{models.ActionJoin, models.ActionUpdate}
	if !reflect.DeepEqual(result.Actions, wantActions) {
		t.Errorf("actions = %v, want %v", result.Actions, wantActions)
	}
	if !result.Changed || result.Failed() {
		t.Errorf("result = %+v, want changed and not failed", result)
	}
	if summary.RunID == "" {
		t.Error("run ID should be set")
	}
}

func TestRunCreatesMemberRecordAfterFreshJoin(t *testing.T) {
	// Right after a join the controller has not seen the node yet, so the
	// member fetch 404s. The declared config must still be pushed: the POST
	// is what creates the record.
	agent := &fakeAgent{installed: true, nodeID: "abcdef1234"}
	plane := newFakeControlPlane()
	plane.memberErr = sdk.ErrNotFound
	r := newTestReconciler(agent, plane)

	decl := &config.Declaration{
		Networks: map[string]config.NetworkDeclaration{
			"8056c2e21c000001": {
				APIKey: "k",
				Config: map[string]interface{}{"authorized": true},
			},
		},
	}

	summary, err := r.Run(context.Background(), decl)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Failed() {
		t.Fatalf("run failed: %+v", summary.Networks)
	}

	updated, ok := plane.updates["8056c2e21c000001"]
	if !ok {
		t.Fatal("expected the member record to be created via POST")
	}
	if updated.Config["authorized"] != true {
		t.Errorf("pushed authorized = %v, want true", updated.Config["authorized"])
	}

	wantActions := []models.ActionKind{models.ActionJoin, models.ActionUpdate}
	if !reflect.DeepEqual(summary.Networks[0].Actions, wantActions) {
		t.Errorf("actions = %v, want %v", summary.Networks[0].Actions, wantActions)
	}
}

func TestRunSecondPassIsNoOp(t *testing.T) {
	agent := &fakeAgent{
		installed: true,
		nodeID:    "abcdef1234",
		joined:    []string{"8056c2e21c000001"},
	}
	plane := newFakeControlPlane()
	plane.members["8056c2e21c000001"] = &sdk.Member{
		Config: map[string]interface{}{"authorized": true},
	}
	r := newTestReconciler(agent, plane)

	decl := &config.Declaration{
		Networks: map[string]config.NetworkDeclaration{
			"8056c2e21c000001": {
				APIKey: "k",
				Config: map[string]interface{}{"authorized": true},
			},
		},
	}

	summary, err := r.Run(context.Background(), decl)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(agent.joinCalls) != 0 {
		t.Errorf("unexpected join calls: %v", agent.joinCalls)
	}
	if len(plane.updates) != 0 {
		t.Errorf("unexpected member updates: %v", plane.updates)
	}
	if summary.Changed() {
		t.Error("converged state should report no change")
	}
}

func TestRunLeavesUndeclaredNetworkLocally(t *testing.T) {
	agent := &fakeAgent{
		installed: true,
		nodeID:    "abcdef1234",
		joined:    []string{"9999999999999999"},
	}
	plane := newFakeControlPlane()
	r := newTestReconciler(agent, plane)

	summary, err := r.Run(context.Background(), &config.Declaration{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(agent.leaveCalls, []string{"9999999999999999"}) {
		t.Errorf("leave calls = %v, want the undeclared network", agent.leaveCalls)
	}
	// No declaration means no API key, so the member record stays.
	if len(plane.deletes) != 0 {
		t.Errorf("unexpected member deletions: %v", plane.deletes)
	}
	if !summary.Changed() {
		t.Error("a leave should report a change")
	}
}

func TestRunDisabledNetworkLeavesAndDeletesMember(t *testing.T) {
	agent := &fakeAgent{
		installed: true,
		nodeID:    "abcdef1234",
		joined:    []string{"8056c2e21c000001"},
	}
	plane := newFakeControlPlane()
	r := newTestReconciler(agent, plane)

	decl := &config.Declaration{
		Networks: map[string]config.NetworkDeclaration{
			"8056c2e21c000001": {APIKey: "k", Enabled: boolPtr(false)},
		},
	}

	summary, err := r.Run(context.Background(), decl)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(agent.leaveCalls, []string{"8056c2e21c000001"}) {
		t.Errorf("leave calls = %v, want the disabled network", agent.leaveCalls)
	}
	if !reflect.DeepEqual(plane.deletes, []string{"8056c2e21c000001"}) {
		t.Errorf("member deletions = %v, want the disabled network", plane.deletes)
	}
	if len(summary.Networks) != 1 || summary.Networks[0].Failed() {
		t.Errorf("unexpected results: %+v", summary.Networks)
	}
}

func TestRunFailedNetworkDoesNotBlockOthers(t *testing.T) {
	agent := &fakeAgent{installed: true, nodeID: "abcdef1234"}

	bad := newFakeControlPlane()
	bad.networkErr = sdk.ErrUnauthorized
	good := newFakeControlPlane()

	planes := map[string]MemberAPI{
		"bad-key":  bad,
		"good-key": good,
	}
	r := New(Config{
		Agent: agent,
		NewClient: func(apiKey string) (MemberAPI, error) {
			return planes[apiKey], nil
		},
	})

	decl := &config.Declaration{
		Networks: map[string]config.NetworkDeclaration{
			"aaaaaaaaaaaaaaaa": {APIKey: "bad-key"},
			"bbbbbbbbbbbbbbbb": {
				APIKey: "good-key",
				Config: map[string]interface{}{"authorized": true},
			},
		},
	}

	summary, err := r.Run(context.Background(), decl)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !summary.Failed() {
		t.Fatal("summary should report the failed network")
	}
	if got := summary.FailedNetworks(); !reflect.DeepEqual(got, []string{"aaaaaaaaaaaaaaaa"}) {
		t.Errorf("failed networks = %v, want only the bad-key network", got)
	}
	if _, ok := good.updates["bbbbbbbbbbbbbbbb"]; !ok {
		t.Error("healthy network should still have been reconciled")
	}
}

func TestRunWritesLocalConfigAndRestarts(t *testing.T) {
	dir := t.TempDir()
	agent := &fakeAgent{
		installed:     true,
		nodeID:        "abcdef1234",
		localConfPath: filepath.Join(dir, "local.conf"),
	}
	r := newTestReconciler(agent, newFakeControlPlane())

	decl := &config.Declaration{
		LocalConfig: map[string]interface{}{
			"settings": map[string]interface{}{"primaryPort": 9993},
		},
	}

	summary, err := r.Run(context.Background(), decl)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !summary.LocalConfigChanged {
		t.Error("LocalConfigChanged should be true on first write")
	}
	if !summary.AgentRestarted || !agent.restarted {
		t.Error("agent should have been restarted after the config write")
	}
	if _, err := os.Stat(agent.localConfPath); err != nil {
		t.Errorf("local.conf not written: %v", err)
	}

	// A second pass over identical content must leave the file alone.
	agent.restarted = false
	summary, err = r.Run(context.Background(), decl)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if summary.LocalConfigChanged || agent.restarted {
		t.Error("unchanged local config must not trigger a rewrite or restart")
	}
}

func TestRunWithoutLocalConfigLeavesFileAlone(t *testing.T) {
	dir := t.TempDir()
	agent := &fakeAgent{
		installed:     true,
		nodeID:        "abcdef1234",
		localConfPath: filepath.Join(dir, "local.conf"),
	}
	r := newTestReconciler(agent, newFakeControlPlane())

	summary, err := r.Run(context.Background(), &config.Declaration{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.LocalConfigChanged || agent.restarted {
		t.Error("nil local config must not touch the file or the service")
	}
	if _, err := os.Stat(agent.localConfPath); !os.IsNotExist(err) {
		t.Errorf("local.conf should not exist, stat err = %v", err)
	}
}
