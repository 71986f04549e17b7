package signing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/activation"
	"github.com/JaimeStill/docket/internal/artifacts"
	"github.com/JaimeStill/docket/internal/delegations"
	"github.com/JaimeStill/docket/internal/directory"
	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/dossiers/dossierstest"
	"github.com/JaimeStill/docket/internal/render"
	"github.com/JaimeStill/docket/internal/signer"
	"github.com/JaimeStill/docket/internal/signing"
	"github.com/JaimeStill/docket/internal/slots"
	"github.com/JaimeStill/docket/pkg/keylock"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeDirectory struct {
	users      map[uuid.UUID]directory.User
	identities map[uuid.UUID]directory.Identity
	signatures map[uuid.UUID]directory.Signature
}

func (f *fakeDirectory) FindUser(_ context.Context, id uuid.UUID) (*directory.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, directory.ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeDirectory) ActiveIdentity(_ context.Context, id uuid.UUID) (*directory.Identity, error) {
	i, ok := f.identities[id]
	if !ok {
		return nil, directory.ErrNoIdentity
	}
	return &i, nil
}

func (f *fakeDirectory) Signature(_ context.Context, id uuid.UUID) (*directory.Signature, error) {
	s, ok := f.signatures[id]
	if !ok {
		return nil, directory.ErrNoSignature
	}
	return &s, nil
}

type staticSource []delegations.Delegation

func (s staticSource) Incoming(_ context.Context, userID uuid.UUID) ([]delegations.Delegation, error) {
	var out []delegations.Delegation
	for _, d := range s {
		if d.ToUserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeRenderer writes plain-text "PDFs": the source line followed by one line
// per stamp.
type fakeRenderer struct {
	mu      sync.Mutex
	fail    error
	renders int
	stamps  []render.Stamp
}

func (r *fakeRenderer) RenderToPDF(_ context.Context, d *dossiers.Dossier, dir string) (string, error) {
	r.mu.Lock()
	r.renders++
	r.mu.Unlock()

	path := filepath.Join(dir, "source.pdf")
	return path, os.WriteFile(path, []byte("source "+d.Code+"\n"), 0o644)
}

func (r *fakeRenderer) RenderSignedMock(_ context.Context, in, out string, stamp render.Stamp) error {
	r.mu.Lock()
	fail := r.fail
	r.stamps = append(r.stamps, stamp)
	r.mu.Unlock()

	if fail != nil {
		return fail
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, append(data, []byte("mock "+string(stamp.SlotKey)+"\n")...), 0o644)
}

type fakeSigner struct {
	mu       sync.Mutex
	fail     error
	requests []signer.Request
}

func (s *fakeSigner) Sign(_ context.Context, req signer.Request) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	fail := s.fail
	s.mu.Unlock()

	if fail != nil {
		return fail
	}
	data, err := os.ReadFile(req.InputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(req.OutputPath, append(data, []byte("remote "+req.SearchPattern+"\n")...), 0o644)
}

type fakeSource map[string]string

func (f fakeSource) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

type env struct {
	sys       signing.System
	repo      *dossierstest.Memory
	dir       *fakeDirectory
	renderer  *fakeRenderer
	signer    *fakeSigner
	artifacts *artifacts.Store
	grants    *staticSource

	dossier  dossiers.Dossier
	assignee map[slots.Key]uuid.UUID
}

func newEnv(t *testing.T, mode string, keys ...slots.Key) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := artifacts.New(t.TempDir(), nil, logger)
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}

	e := &env{
		repo:      dossierstest.New(),
		renderer:  &fakeRenderer{},
		signer:    &fakeSigner{},
		artifacts: store,
		grants:    &staticSource{},
		dir: &fakeDirectory{
			users:      make(map[uuid.UUID]directory.User),
			identities: make(map[uuid.UUID]directory.Identity),
			signatures: make(map[uuid.UUID]directory.Signature),
		},
		assignee: make(map[slots.Key]uuid.UUID),
	}

	e.dossier = dossiers.Dossier{
		ID:        uuid.New(),
		Code:      "HS-001",
		Title:     "Procurement request",
		Status:    dossiers.StatusSubmitted,
		SourceKey: "dossiers/source.pdf",
	}

	ctx := context.Background()
	err = e.repo.InTx(ctx, func(s dossiers.Store) error {
		for i, k := range keys {
			id := uuid.New()
			e.assignee[k] = id
			e.dir.users[id] = directory.User{ID: id, FullName: "User " + string(k), IsActive: true}
			if k == slots.Submitter {
				e.dossier.CreatedBy = id
			}
			if i == 0 {
				if err := s.InsertDossier(ctx, &e.dossier); err != nil {
					return err
				}
			}
			task := dossiers.Task{
				ID:             uuid.New(),
				DossierID:      e.dossier.ID,
				AssigneeID:     id,
				Order:          i + 1,
				Status:         dossiers.TaskPending,
				SlotKey:        k,
				Phase:          k.Phase(),
				VisiblePattern: k.VisiblePattern(),
			}
			if err := s.InsertTask(ctx, &task); err != nil {
				return err
			}
		}
		_, err := activation.Recompute(ctx, s, e.dossier.ID)
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	e.sys = signing.New(signing.Deps{
		Repo:      e.repo,
		Directory: e.dir,
		Auth:      delegations.NewResolver(e.grants, func() time.Time { return now }),
		Artifacts: store,
		Renderer:  e.renderer,
		Signer:    e.signer,
		Source:    fakeSource{"dossiers/source.pdf": "original source"},
		Locks:     keylock.New[uuid.UUID](),
		Now:       func() time.Time { return now },
	}, &signing.Config{Mode: mode, TempDir: t.TempDir()}, logger)

	return e
}

func (e *env) task(t *testing.T, k slots.Key) dossiers.Task {
	t.Helper()
	task, err := e.repo.FindTaskBySlot(context.Background(), e.dossier.ID, k)
	if err != nil {
		t.Fatalf("find %s: %v", k, err)
	}
	return *task
}

func (e *env) approve(t *testing.T, k slots.Key) *signing.Decision {
	t.Helper()
	d, err := e.sys.Approve(context.Background(), e.task(t, k).ID, e.assignee[k], signing.ApproveCommand{})
	if err != nil {
		t.Fatalf("approve %s: %v", k, err)
	}
	return d
}

func (e *env) versions(t *testing.T) []int {
	t.Helper()
	v, err := e.artifacts.Versions(e.dossier.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	return v
}

func (e *env) active(t *testing.T) []slots.Key {
	t.Helper()
	tasks, _ := e.repo.ListTasks(context.Background(), e.dossier.ID)
	var keys []slots.Key
	for _, task := range tasks {
		if task.IsActivated {
			keys = append(keys, task.SlotKey)
		}
	}
	return keys
}

func TestFullScenario(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.DepartmentHead, slots.Clerk, slots.Director)
	ctx := context.Background()

	d := e.approve(t, slots.Submitter)
	if d.DossierStatus != dossiers.StatusInProgress || d.Artifact != "Signed_v1.pdf" {
		t.Errorf("after submitter: status %s artifact %s", d.DossierStatus, d.Artifact)
	}
	if d.Mode != dossiers.ModeMock {
		t.Errorf("mode = %s, want mock", d.Mode)
	}
	if d.Task.Status != dossiers.TaskApproved || d.Task.IsActivated {
		t.Errorf("decided task = %+v", d.Task)
	}

	e.approve(t, slots.DepartmentHead)

	clerk := e.task(t, slots.Clerk)
	if !clerk.IsActivated {
		t.Fatal("clerk should be active after department head")
	}

	_, err := e.sys.Approve(ctx, clerk.ID, e.assignee[slots.Clerk], signing.ApproveCommand{})
	if !errors.Is(err, signing.ErrClerkSlot) {
		t.Fatalf("approve clerk err = %v, want ErrClerkSlot", err)
	}
	if e.task(t, slots.Director).IsActivated {
		t.Fatal("director active before clerk confirmation")
	}

	cd, err := e.sys.ClerkConfirm(ctx, e.dossier.ID, e.assignee[slots.Clerk])
	if err != nil {
		t.Fatalf("ClerkConfirm: %v", err)
	}
	if !cd.Task.ClerkConfirmed || cd.Task.Status != dossiers.TaskApproved {
		t.Errorf("clerk task = %+v", cd.Task)
	}
	if !e.task(t, slots.Director).IsActivated {
		t.Fatal("director should be active after clerk confirmation")
	}

	final := e.approve(t, slots.Director)
	if final.DossierStatus != dossiers.StatusApproved {
		t.Errorf("final status = %s, want Approved", final.DossierStatus)
	}

	if got := e.versions(t); len(got) != 3 || got[2] != 3 {
		t.Errorf("versions = %v, want [1 2 3]", got)
	}
	if e.renderer.renders != 1 {
		t.Errorf("source rendered %d times, want 1", e.renderer.renders)
	}

	path, ok, _ := e.artifacts.CurrentPointer(ctx, e.dossier.ID)
	if !ok || filepath.Base(path) != "Signed_v3.pdf" {
		t.Errorf("current pointer = %s", path)
	}
	data, _ := os.ReadFile(path)
	for _, k := range []slots.Key{slots.Submitter, slots.DepartmentHead, slots.Director} {
		if !strings.Contains(string(data), "mock "+string(k)) {
			t.Errorf("final document missing %s stamp", k)
		}
	}

	events := e.repo.Events()
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	for _, ev := range events {
		if !ev.Success || ev.Mode != dossiers.ModeMock {
			t.Errorf("event = %+v", ev)
		}
	}

	if got := e.active(t); len(got) != 0 {
		t.Errorf("active after approval = %v", got)
	}
}

func TestApproveNotReady(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.DepartmentHead)

	_, err := e.sys.Approve(context.Background(), e.task(t, slots.DepartmentHead).ID, e.assignee[slots.DepartmentHead], signing.ApproveCommand{})
	if !errors.Is(err, signing.ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
	if len(e.repo.Events()) != 0 {
		t.Error("event recorded for rejected precondition")
	}
}

func TestApproveUnknownTask(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter)

	_, err := e.sys.Approve(context.Background(), uuid.New(), uuid.New(), signing.ApproveCommand{})
	if !errors.Is(err, dossiers.ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestApproveUnauthorized(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter)

	_, err := e.sys.Approve(context.Background(), e.task(t, slots.Submitter).ID, uuid.New(), signing.ApproveCommand{})
	if !errors.Is(err, signing.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestApproveByDelegate(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.DepartmentHead)
	e.approve(t, slots.Submitter)

	head := e.assignee[slots.DepartmentHead]
	delegate := uuid.New()
	end := now.Add(time.Hour)
	*e.grants = append(*e.grants, delegations.Delegation{
		FromUserID: head, ToUserID: delegate, Start: now.Add(-time.Hour), End: &end, IsActive: true,
	})

	d, err := e.sys.Approve(context.Background(), e.task(t, slots.DepartmentHead).ID, delegate, signing.ApproveCommand{Comment: "on behalf"})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if d.Task.DecidedBy == nil || *d.Task.DecidedBy != delegate {
		t.Errorf("decided_by = %v, want delegate", d.Task.DecidedBy)
	}
	if d.Task.AssigneeID != head {
		t.Error("assignee changed by delegated approval")
	}
	if d.Task.Comment == nil || *d.Task.Comment != "on behalf" {
		t.Errorf("comment = %v", d.Task.Comment)
	}
}

func TestApproveExpiredDelegation(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter)

	delegate := uuid.New()
	end := now.Add(-time.Second)
	*e.grants = append(*e.grants, delegations.Delegation{
		FromUserID: e.assignee[slots.Submitter], ToUserID: delegate, Start: now.Add(-time.Hour), End: &end, IsActive: true,
	})

	_, err := e.sys.Approve(context.Background(), e.task(t, slots.Submitter).ID, delegate, signing.ApproveCommand{})
	if !errors.Is(err, signing.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestSigningFailureIsAudited(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.DepartmentHead)
	e.renderer.fail = errors.New("stamp engine down")

	_, err := e.sys.Approve(context.Background(), e.task(t, slots.Submitter).ID, e.assignee[slots.Submitter], signing.ApproveCommand{})
	if !errors.Is(err, signing.ErrSigningFailed) {
		t.Fatalf("err = %v, want ErrSigningFailed", err)
	}

	task := e.task(t, slots.Submitter)
	if task.Status != dossiers.TaskPending || !task.IsActivated {
		t.Errorf("task after failure = %s active=%t", task.Status, task.IsActivated)
	}

	events := e.repo.Events()
	if len(events) != 1 || events[0].Success || events[0].Error == nil {
		t.Fatalf("events = %+v, want one failed event", events)
	}
	if !strings.Contains(*events[0].Error, "stamp engine down") {
		t.Errorf("event error = %s", *events[0].Error)
	}
	if len(e.versions(t)) != 0 {
		t.Error("version saved for failed signature")
	}
}

func TestFailureAuditSurvivesCancellation(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter)
	e.renderer.fail = context.Canceled

	_, err := e.sys.Approve(context.Background(), e.task(t, slots.Submitter).ID, e.assignee[slots.Submitter], signing.ApproveCommand{})
	if !errors.Is(err, signing.ErrSigningFailed) {
		t.Fatalf("err = %v, want ErrSigningFailed", err)
	}
	if len(e.repo.Events()) != 1 {
		t.Error("failure event lost")
	}
}

func TestApproveCommitFailure(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.DepartmentHead)
	ctx := context.Background()
	e.repo.FailNext = 1

	_, err := e.sys.Approve(ctx, e.task(t, slots.Submitter).ID, e.assignee[slots.Submitter], signing.ApproveCommand{})
	if !errors.Is(err, dossierstest.ErrCommitFailed) {
		t.Fatalf("err = %v, want ErrCommitFailed", err)
	}

	task := e.task(t, slots.Submitter)
	if task.Status != dossiers.TaskPending || !task.IsActivated {
		t.Errorf("task after failed commit = %s active=%t", task.Status, task.IsActivated)
	}
	if got := e.versions(t); len(got) != 0 {
		t.Errorf("versions = %v, want none", got)
	}
	if _, ok, _ := e.artifacts.CurrentPointer(ctx, e.dossier.ID); ok {
		t.Error("current pointer left on discarded version")
	}
	events := e.repo.Events()
	if len(events) != 1 || events[0].Success || events[0].Error == nil {
		t.Fatalf("events = %+v, want one failed event", events)
	}

	d := e.approve(t, slots.Submitter)
	if d.Artifact != "Signed_v1.pdf" {
		t.Errorf("retry artifact = %s, want Signed_v1.pdf", d.Artifact)
	}
	if got := e.versions(t); len(got) != 1 || got[0] != 1 {
		t.Errorf("versions after retry = %v, want [1]", got)
	}
	path, _, _ := e.artifacts.CurrentPointer(ctx, e.dossier.ID)
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "mock "+string(slots.Submitter)); n != 1 {
		t.Errorf("submitter stamped %d times, want 1", n)
	}
	events = e.repo.Events()
	if len(events) != 2 || !events[1].Success {
		t.Errorf("events after retry = %+v", events)
	}
}

func TestApproveCommitFailureRestoresPointer(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.DepartmentHead)
	ctx := context.Background()
	e.approve(t, slots.Submitter)
	e.repo.FailNext = 1

	_, err := e.sys.Approve(ctx, e.task(t, slots.DepartmentHead).ID, e.assignee[slots.DepartmentHead], signing.ApproveCommand{})
	if !errors.Is(err, dossierstest.ErrCommitFailed) {
		t.Fatalf("err = %v, want ErrCommitFailed", err)
	}
	if e.task(t, slots.DepartmentHead).Status != dossiers.TaskPending {
		t.Error("department head decided despite failed commit")
	}
	path, ok, _ := e.artifacts.CurrentPointer(ctx, e.dossier.ID)
	if !ok || filepath.Base(path) != "Signed_v1.pdf" {
		t.Errorf("current pointer = %s, want Signed_v1.pdf", path)
	}

	e.approve(t, slots.DepartmentHead)
	if got := e.versions(t); len(got) != 2 || got[1] != 2 {
		t.Errorf("versions after retry = %v, want [1 2]", got)
	}
}

func TestRemoteSigning(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter)
	actor := e.assignee[slots.Submitter]
	taskID := e.task(t, slots.Submitter).ID

	_, err := e.sys.Approve(context.Background(), taskID, actor, signing.ApproveCommand{Pin: "1234"})
	if !errors.Is(err, directory.ErrNoIdentity) {
		t.Fatalf("err = %v, want ErrNoIdentity", err)
	}
	if signing.MapHTTPStatus(err) != 422 {
		t.Errorf("status = %d, want 422", signing.MapHTTPStatus(err))
	}

	e.dir.identities[actor] = directory.Identity{UserID: actor, EmpCode: "E001", CertName: "CN=User", Company: "Hospital"}

	d, err := e.sys.Approve(context.Background(), taskID, actor, signing.ApproveCommand{Pin: "1234"})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if d.Mode != dossiers.ModeRemote {
		t.Errorf("mode = %s, want remote", d.Mode)
	}

	if len(e.signer.requests) != 1 {
		t.Fatalf("signer calls = %d, want 1", len(e.signer.requests))
	}
	req := e.signer.requests[0]
	if req.SearchPattern != "##{S1}##" || req.Pin != "1234" || req.EmpCode != "E001" || req.Page != 0 {
		t.Errorf("request = %+v", req)
	}
	if req.SignLocationType != signer.LocationSearchPattern {
		t.Errorf("location type = %d", req.SignLocationType)
	}
	if len(e.renderer.stamps) != 0 {
		t.Error("mock stamp used for remote signing")
	}
}

func TestRemoteSigningFailure(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter)
	actor := e.assignee[slots.Submitter]
	e.dir.identities[actor] = directory.Identity{UserID: actor, EmpCode: "E001"}
	e.signer.fail = signer.ErrRejected

	_, err := e.sys.Approve(context.Background(), e.task(t, slots.Submitter).ID, actor, signing.ApproveCommand{Pin: "0000"})
	if !errors.Is(err, signing.ErrSigningFailed) || !errors.Is(err, signer.ErrRejected) {
		t.Fatalf("err = %v, want ErrSigningFailed wrapping ErrRejected", err)
	}
	if signing.MapHTTPStatus(err) != 502 {
		t.Errorf("status = %d, want 502", signing.MapHTTPStatus(err))
	}

	events := e.repo.Events()
	if len(events) != 1 || events[0].Mode != dossiers.ModeRemote || events[0].Success {
		t.Errorf("events = %+v", events)
	}
}

func TestMockModeIgnoresPin(t *testing.T) {
	e := newEnv(t, signing.ModeMock, slots.Submitter)

	d, err := e.sys.Approve(context.Background(), e.task(t, slots.Submitter).ID, e.assignee[slots.Submitter], signing.ApproveCommand{Pin: "1234"})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if d.Mode != dossiers.ModeMock || len(e.signer.requests) != 0 {
		t.Errorf("mode = %s, signer calls = %d", d.Mode, len(e.signer.requests))
	}
}

func TestMockStampUsesSavedSignature(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter)
	user := e.assignee[slots.Submitter]
	e.dir.signatures[user] = directory.Signature{UserID: user, ContentType: "image/png", Data: []byte("png")}

	e.approve(t, slots.Submitter)

	stamp := e.renderer.stamps[0]
	if string(stamp.Image) != "png" || stamp.SignerName != "User Submitter" {
		t.Errorf("stamp = %+v", stamp)
	}
}

func TestReject(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.DepartmentHead, slots.Director)
	e.approve(t, slots.Submitter)

	d, err := e.sys.Reject(context.Background(), e.task(t, slots.DepartmentHead).ID, e.assignee[slots.DepartmentHead], signing.RejectCommand{Comment: "missing budget"})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if d.DossierStatus != dossiers.StatusRejected || d.Task.Status != dossiers.TaskRejected {
		t.Errorf("decision = %+v", d)
	}
	if got := e.active(t); len(got) != 0 {
		t.Errorf("active after rejection = %v", got)
	}

	_, err = e.sys.Approve(context.Background(), e.task(t, slots.Director).ID, e.assignee[slots.Director], signing.ApproveCommand{})
	if !errors.Is(err, signing.ErrNotReady) {
		t.Errorf("approve after rejection err = %v, want ErrNotReady", err)
	}
}

func TestClerkConfirmPreconditions(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.Clerk, slots.Director)
	ctx := context.Background()

	_, err := e.sys.ClerkConfirm(ctx, e.dossier.ID, e.assignee[slots.Clerk])
	if !errors.Is(err, signing.ErrNotReady) {
		t.Errorf("early confirm err = %v, want ErrNotReady", err)
	}

	e.approve(t, slots.Submitter)

	_, err = e.sys.ClerkConfirm(ctx, e.dossier.ID, uuid.New())
	if !errors.Is(err, signing.ErrUnauthorized) {
		t.Errorf("stranger confirm err = %v, want ErrUnauthorized", err)
	}

	other := newEnv(t, signing.ModeAuto, slots.Submitter)
	_, err = other.sys.ClerkConfirm(ctx, other.dossier.ID, uuid.New())
	if !errors.Is(err, dossiers.ErrTaskNotFound) {
		t.Errorf("no clerk err = %v, want ErrTaskNotFound", err)
	}
}

func TestConcurrentApprovalsSerialize(t *testing.T) {
	keys := append([]slots.Key{slots.Submitter}, slots.Functional...)
	e := newEnv(t, signing.ModeAuto, keys...)
	e.approve(t, slots.Submitter)

	if got := e.active(t); len(got) != len(slots.Functional) {
		t.Fatalf("active = %v, want all functional slots", got)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes = 1
	)
	for _, k := range slots.Functional {
		taskID := e.task(t, k).ID
		actor := e.assignee[k]
		wg.Go(func() {
			if _, err := e.sys.Approve(context.Background(), taskID, actor, signing.ApproveCommand{}); err != nil {
				t.Errorf("approve %s: %v", k, err)
				return
			}
			mu.Lock()
			successes++
			mu.Unlock()
		})
	}
	wg.Wait()

	versions := e.versions(t)
	if len(versions) != successes {
		t.Fatalf("versions = %d, successful signs = %d", len(versions), successes)
	}
	for i, v := range versions {
		if v != i+1 {
			t.Errorf("versions = %v, want contiguous", versions)
			break
		}
	}

	path, _, _ := e.artifacts.CurrentPointer(context.Background(), e.dossier.ID)
	data, _ := os.ReadFile(path)
	for _, k := range keys {
		if !strings.Contains(string(data), "mock "+string(k)) {
			t.Errorf("latest version missing %s stamp", k)
		}
	}

	d, _ := e.repo.FindDossier(context.Background(), e.dossier.ID)
	if d.Status != dossiers.StatusApproved {
		t.Errorf("status = %s, want Approved", d.Status)
	}
}

func TestMyTasksIncludesDelegated(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.DepartmentHead)
	ctx := context.Background()

	submitter := e.assignee[slots.Submitter]
	delegate := uuid.New()
	*e.grants = append(*e.grants, delegations.Delegation{
		FromUserID: submitter, ToUserID: delegate, Start: now.Add(-time.Hour), IsActive: true,
	})

	mine, err := e.sys.MyTasks(ctx, delegate)
	if err != nil {
		t.Fatalf("MyTasks: %v", err)
	}
	if len(mine) != 1 || mine[0].SlotKey != slots.Submitter {
		t.Fatalf("delegate tasks = %+v", mine)
	}

	head, _ := e.sys.MyTasks(ctx, e.assignee[slots.DepartmentHead])
	if len(head) != 0 {
		t.Errorf("inactive task listed: %+v", head)
	}

	e.approve(t, slots.Submitter)

	grouped, err := e.sys.MyTasksGrouped(ctx, submitter)
	if err != nil {
		t.Fatalf("MyTasksGrouped: %v", err)
	}
	if len(grouped.Processed) != 1 || len(grouped.Pending) != 0 || len(grouped.Completed) != 0 {
		t.Errorf("submitter grouped = %+v", grouped)
	}

	e.approve(t, slots.DepartmentHead)

	grouped, _ = e.sys.MyTasksGrouped(ctx, submitter)
	if len(grouped.Completed) != 1 {
		t.Errorf("completed = %d, want 1", len(grouped.Completed))
	}
}

func TestCurrentArtifact(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter, slots.DepartmentHead)
	ctx := context.Background()
	creator := e.assignee[slots.Submitter]

	a, err := e.sys.CurrentArtifact(ctx, e.dossier.ID, creator)
	if err != nil {
		t.Fatalf("CurrentArtifact: %v", err)
	}
	data, _ := io.ReadAll(a.Body)
	a.Body.Close()
	if a.Signed || string(data) != "original source" {
		t.Errorf("unsigned artifact = %s signed=%t", data, a.Signed)
	}

	e.approve(t, slots.Submitter)

	a, err = e.sys.CurrentArtifact(ctx, e.dossier.ID, e.assignee[slots.DepartmentHead])
	if err != nil {
		t.Fatalf("CurrentArtifact: %v", err)
	}
	a.Body.Close()
	if !a.Signed || a.Name != "Signed_v1.pdf" {
		t.Errorf("artifact = %s signed=%t", a.Name, a.Signed)
	}

	if _, err := e.sys.CurrentArtifact(ctx, e.dossier.ID, uuid.New()); !errors.Is(err, signing.ErrUnauthorized) {
		t.Errorf("stranger err = %v, want ErrUnauthorized", err)
	}
}

func TestEvents(t *testing.T) {
	e := newEnv(t, signing.ModeAuto, slots.Submitter)
	e.approve(t, slots.Submitter)

	events, err := e.sys.Events(context.Background(), e.dossier.ID, e.assignee[slots.Submitter])
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 || events[0].SearchPattern != "##{S1}##" {
		t.Errorf("events = %+v", events)
	}
}
