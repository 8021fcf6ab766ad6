package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reimburse/internal/auth"
	"reimburse/internal/db/dbtest"
	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
	"reimburse/internal/repository"
)

var (
	alice = auth.Principal{Username: "alice", Role: model.RoleEmployee}
	bob   = auth.Principal{Username: "bob", Role: model.RoleEmployee}
	hr    = auth.Principal{Username: "hr", Role: model.RoleHR}
)

// memoryDocs is an in-memory DocumentStore.
type memoryDocs struct {
	mu    sync.Mutex
	seq   int
	files map[string][]byte
}

func newMemoryDocs() *memoryDocs {
	return &memoryDocs{files: make(map[string][]byte)}
}

func (d *memoryDocs) Save(_ context.Context, filename string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", apperrors.ErrDocumentMissing
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	url := fmt.Sprintf("http://test/Documents/%d_%s", d.seq, filename)
	d.files[url] = data
	return url, nil
}

func (d *memoryDocs) Delete(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, url)
	return nil
}

func (d *memoryDocs) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.files)
}

func (d *memoryDocs) has(url string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[url]
	return ok
}

type fixture struct {
	store     *repository.Store
	docs      *memoryDocs
	recorder  EventRecorder
	auth      AuthService
	requests  RequestService
	trackings TrackingService
	payments  PaymentService
	profiles  ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewStore(dbtest.New(t))
	logger := zap.NewNop()
	docs := newMemoryDocs()
	recorder := NewEventRecorder(store.TrackingEvents, logger)
	t.Cleanup(recorder.Close)

	f := &fixture{
		store:     store,
		docs:      docs,
		recorder:  recorder,
		auth:      NewAuthService(store.Users, newTestJWT(t), auth.NewTokenStore(nil), logger),
		requests:  NewRequestService(store, docs, recorder, logger),
		trackings: NewTrackingService(store, recorder, logger),
		payments:  NewPaymentService(store, logger),
		profiles:  NewProfileService(store.Profiles, nil, logger),
	}

	ctx := context.Background()
	for _, p := range []auth.Principal{alice, bob, hr} {
		_, err := f.auth.Register(ctx, p.Username, p.Username+"-pw", p.Role)
		require.NoError(t, err)
	}
	return f
}

func pdf() *Document {
	return &Document{Filename: "receipt.pdf", Content: bytes.NewReader([]byte("%PDF-1.4 receipt"))}
}

func (f *fixture) submit(t *testing.T, caller auth.Principal, category, amount string) (*model.Request, *model.Tracking) {
	t.Helper()
	req, tracking, err := f.requests.Create(context.Background(), caller, RequestInput{
		ExpenseCategory: category,
		Amount:          decimal.RequireFromString(amount),
		Description:     strings.ToLower(category) + " expense",
		Document:        pdf(),
	})
	require.NoError(t, err)
	return req, tracking
}

func (f *fixture) approve(t *testing.T, requestID uint) *model.Tracking {
	t.Helper()
	tracking, err := f.trackings.Advance(context.Background(), hr, requestID, "Approved")
	require.NoError(t, err)
	return tracking
}
