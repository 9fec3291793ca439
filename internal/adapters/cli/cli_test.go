package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"agency-ledger/internal/app"
	"agency-ledger/internal/core"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeService struct {
	app.ApplicationService

	topLimit   int
	calcReq    app.BookingRequest
	statusRef  string
	statusNext string
	migrated   bool
	released   int
}

func (f *fakeService) GetTopPerformingAgencies(_ context.Context, limit int) (*app.RankingsResult, error) {
	f.topLimit = limit
	return &app.RankingsResult{
		Count: 1,
		Rankings: []core.AgencyRanking{
			{AgencyID: 7, AgencyCode: "AG-7", Rank: 1, Score: decimal.RequireFromString("81.25"), Tier: "platinum"},
		},
	}, nil
}

func (f *fakeService) CalculateCommission(_ context.Context, req app.BookingRequest) (*core.Commission, error) {
	f.calcReq = req
	return nil, core.ErrNoApplicableRule
}

func (f *fakeService) BookingStatusChanged(_ context.Context, ref, status string) (*core.Booking, error) {
	f.statusRef, f.statusNext = ref, status
	return &core.Booking{BookingRef: ref, Status: core.BookingStatus(status)}, nil
}

func run(t *testing.T, fake *fakeService, args ...string) (app.Envelope, error) {
	t.Helper()
	open := func(context.Context) (*Runtime, func(), error) {
		return &Runtime{
			Svc: fake,
			Log: zap.NewNop(),
			Migrate: func(context.Context) error {
				fake.migrated = true
				return nil
			},
		}, func() { fake.released++ }, nil
	}
	root, release := NewRootCmd(open)
	defer release()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())

	var env app.Envelope
	if out.Len() > 0 && out.Bytes()[0] == '{' {
		if decErr := json.Unmarshal(out.Bytes(), &env); decErr != nil {
			t.Fatalf("output is not an envelope: %v\n%s", decErr, out.String())
		}
	}
	return env, err
}

func TestRankingsTopPassesLimit(t *testing.T) {
	fake := &fakeService{}
	env, err := run(t, fake, "rankings", "top", "--limit", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.topLimit != 3 {
		t.Errorf("limit = %d, want 3", fake.topLimit)
	}
	if !env.Success {
		t.Errorf("expected success envelope, got %+v", env)
	}
}

func TestRankingsTopDefaultLimit(t *testing.T) {
	fake := &fakeService{}
	if _, err := run(t, fake, "rankings", "top"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.topLimit != 10 {
		t.Errorf("default limit = %d, want 10", fake.topLimit)
	}
}

func TestCommissionCalculateReportsBusinessError(t *testing.T) {
	fake := &fakeService{}
	env, err := run(t, fake, "commission", "calculate",
		"--agency", "4", "--amount", "1250.00", "--category", "flight", "--destination", "Lisbon")
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	if env.Success || env.Error == nil {
		t.Fatalf("expected failure envelope, got %+v", env)
	}
	if env.Error.Code != "NoApplicableRule" || env.Error.Kind != core.KindNoApplicableRule {
		t.Errorf("error = %+v", env.Error)
	}
	want := app.BookingRequest{AgencyID: 4, Amount: "1250.00", ProductCategory: "flight", Destination: "Lisbon"}
	if fake.calcReq != want {
		t.Errorf("request = %+v, want %+v", fake.calcReq, want)
	}
}

func TestCommissionCalculateRequiresAmount(t *testing.T) {
	_, err := run(t, &fakeService{}, "commission", "calculate", "--agency", "4")
	if err == nil {
		t.Fatal("expected missing flag error")
	}
}

func TestBookingStatus(t *testing.T) {
	fake := &fakeService{}
	env, err := run(t, fake, "booking", "status", "BK-1001", "cancelled")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.statusRef != "BK-1001" || fake.statusNext != "cancelled" {
		t.Errorf("got ref=%q status=%q", fake.statusRef, fake.statusNext)
	}
	if !env.Success {
		t.Errorf("expected success, got %+v", env)
	}
}

func TestMigrate(t *testing.T) {
	fake := &fakeService{}
	if _, err := run(t, fake, "migrate"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fake.migrated {
		t.Error("migrate did not run")
	}
}

func TestOpenFailureStopsCommand(t *testing.T) {
	boom := errors.New("no database")
	root, release := NewRootCmd(func(context.Context) (*Runtime, func(), error) { return nil, nil, boom })
	defer release()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"balances"})
	if err := root.ExecuteContext(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestTableFormat(t *testing.T) {
	fake := &fakeService{}
	root, release := NewRootCmd(func(context.Context) (*Runtime, func(), error) {
		return &Runtime{Svc: fake, Log: zap.NewNop()}, func() {}, nil
	})
	defer release()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"rankings", "top", "--format", "table"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"AGENCY RANKINGS", "AG-7", "81.25", "platinum"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("table output missing %q:\n%s", want, out.String())
		}
	}
}

func TestExecuteReleasesRuntimeOnFailure(t *testing.T) {
	fake := &fakeService{}
	open := func(context.Context) (*Runtime, func(), error) {
		return &Runtime{Svc: fake, Log: zap.NewNop()}, func() { fake.released++ }, nil
	}
	err := Execute(context.Background(), open, []string{"commission", "calculate", "--agency", "1", "--amount", "100", "--format", "table"})
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	if fake.released != 1 {
		t.Errorf("release ran %d times, want 1", fake.released)
	}
}

func TestExecuteReleasesRuntimeOnSuccess(t *testing.T) {
	fake := &fakeService{}
	open := func(context.Context) (*Runtime, func(), error) {
		return &Runtime{Svc: fake, Log: zap.NewNop(), Migrate: func(context.Context) error { return nil }}, func() { fake.released++ }, nil
	}
	if err := Execute(context.Background(), open, []string{"migrate", "--format", "table"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.released != 1 {
		t.Errorf("release ran %d times, want 1", fake.released)
	}
}
