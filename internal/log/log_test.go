package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: slog.LevelDebug, Component: ComponentCoordinator}, &buf)
	l.InfoContext(context.Background(), "Refreshed view", FieldAccount, "Savings")
	l.WithComponent(ComponentStorage).Debug("Opened database")

	out := buf.String()
	for _, want := range []string{"component=coordinator", "account=Savings", "component=storage", "Opened database"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithAccount("Visa").
		WithAccount("").
		WithMonth("").
		WithTransactionID(0).
		WithTransactionID(12).
		WithAmount(decimal.RequireFromString("7.5")).
		WithAction("payment").
		WithDropped(3).
		WithErrorType("").
		WithErrorType(ErrorTypeTransport).
		WithError(errors.New("boom"))

	if f[FieldAccount] != "Visa" || f[FieldTransactionID] != int64(12) || f[FieldAmount] != "7.50" || f[FieldError] != "boom" {
		t.Errorf("unexpected fields %v", f)
	}
	if f[FieldDropped] != 3 || f[FieldErrorType] != ErrorTypeTransport {
		t.Errorf("unexpected dropped/error_type fields %v", f)
	}
	if _, ok := f[FieldMonth]; ok {
		t.Error("blank month should be left out")
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Error("ToSlice length mismatch")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(Config{Component: ComponentHTTP}, &buf)
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "Handled")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cards", nil))

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("request id missing: %s", buf.String())
	}
	if FromContext(context.Background()).Component() != ComponentApp {
		t.Error("fallback logger should use the app component")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(NewWithWriter(Config{}, &buf))
	sl.LogLedgerWrite(context.Background(), OpTransfer, NewFields().WithAccount("Checking"))
	sl.LogError(context.Background(), "Write failed", errors.New("disk full"), ComponentStorage, OpCreate, nil)

	out := buf.String()
	for _, want := range []string{"operation=transfer", "component=ledger", "component=storage", "error=\"disk full\""} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestForComponentUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	l := ForComponent(ComponentWorker)
	l.Info("Exported", FieldOperation, OpExport)
	if l.Component() != ComponentWorker || !strings.Contains(buf.String(), "component=worker operation=export") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
