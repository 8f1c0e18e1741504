package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/hyprscribe/internal/deps"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/testutil"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "toggle", "start", "stop", "status", "transcript", "quit", "version", "record", "configure", "doctor"} {
		assert.Contains(t, names, want)
	}
}

func TestClientCommandWithoutDaemon(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	root := newRootCmd()
	root.SetArgs([]string{"status"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach daemon")
}

func TestRecordUntilCancelled(t *testing.T) {
	source := testutil.NewMockSource()
	connector := testutil.NewMockConnector()
	var out bytes.Buffer
	p := newPrinter(&out)
	ctrl := session.New(source, connector, session.Options{Observers: []session.Observer{p}})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- record(ctx, ctrl, p) }()

	stream := source.NextStream(t)
	conn := connector.NextConn(t)
	conn.Open()
	testutil.WaitForCondition(t, func() bool {
		return ctrl.Snapshot().State == session.Recording
	}, 2*time.Second)

	conn.Deliver(testutil.FinalResult("hello"))
	conn.Deliver(testutil.FinalResult("world"))
	testutil.WaitForCondition(t, func() bool {
		return len(ctrl.Snapshot().Transcript) == 2
	}, 2*time.Second)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("record did not return")
	}

	assert.True(t, stream.Stopped())
	assert.True(t, conn.Closed())
	assert.Contains(t, out.String(), "recording")
	assert.Contains(t, out.String(), "hello world")
}

func TestRecordReportsCaptureFailure(t *testing.T) {
	source := testutil.NewMockSource()
	source.Err = fmt.Errorf("%w: no target", recording.ErrDeviceNotFound)
	var out bytes.Buffer
	p := newPrinter(&out)
	ctrl := session.New(source, testutil.NewMockConnector(), session.Options{Observers: []session.Observer{p}})

	errCh := make(chan error, 1)
	go func() { errCh <- record(context.Background(), ctrl, p) }()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("record did not return")
	}
	assert.Contains(t, out.String(), "No microphone found")
	assert.Contains(t, out.String(), "No speech was transcribed")
}

func TestToolLine(t *testing.T) {
	pw := deps.Tools[0]
	assert.Contains(t, toolLine(deps.Status{Tool: pw, Installed: true, Path: "/usr/bin/pw-record", Version: "1.2"}), "/usr/bin/pw-record (1.2)")
	assert.Contains(t, toolLine(deps.Status{Tool: pw}), "needed for microphone capture")
	assert.Contains(t, toolLine(deps.Status{Tool: deps.Tool{Name: "notify-send", Purpose: "desktop notifications"}}), "optional")
}
