package state

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"typeflow/config"
)

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
}

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())

	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() = nil")
	}
	if env.start.IsZero() {
		t.Error("environment start time not set")
	}
}

func TestEnvFromContextPanicsWithoutEnv(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("EnvFromContext() on bare context did not panic")
		}
	}()
	EnvFromContext(context.Background())
}

func TestEnvUptime(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))

	time.Sleep(10 * time.Millisecond)
	if up := env.Uptime(); up < 10*time.Millisecond || up > time.Minute {
		t.Errorf("Uptime() = %v", up)
	}
}

func TestEnvRedirectStdLog(t *testing.T) {
	env := &LocalEnv{Log: testLogger(t)}

	for i := 0; i < 3; i++ {
		env.RedirectStdLog()
		if env.restoreStdLog == nil {
			t.Fatalf("cycle %d: redirect did not install restore hook", i)
		}
		env.RestoreStdLog()
	}

	// Restore without a prior redirect and redirect without a logger are
	// both no-ops.
	env.RestoreStdLog()
	bare := &LocalEnv{}
	bare.RedirectStdLog()
	if bare.restoreStdLog != nil {
		t.Error("redirect installed a hook without a logger")
	}
	bare.RestoreStdLog()
}

func TestEnvCarriesRunState(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)

	env.Cfg = &config.Config{Version: 1}
	env.Rpt = &config.Report{}
	env.Log = testLogger(t)
	env.NoDirs = true

	again := EnvFromContext(ctx)
	if again != env {
		t.Fatal("context returned a different environment")
	}
	if again.Cfg.Version != 1 || !again.NoDirs || again.Overwrite {
		t.Errorf("run state lost: %+v", again)
	}
	if again.CodePage != nil {
		t.Error("CodePage set without configuration")
	}
}
