package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_FailuresReleaseLock(t *testing.T) {
	for _, k := range []string{"LISTINGS_URL", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "NATS_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "PORT"} {
		t.Setenv(k, "")
	}

	tests := []struct {
		name     string
		config   string
		holdLock bool
		args     []string
		want     int
	}{
		{name: "bad flag", args: []string{"-nope"}, want: 2},
		{name: "config does not parse", config: "limit: [1, 2\n", want: 1},
		{name: "another run holds the lock", config: "database_url: sqlite://jobs.db\n", holdLock: true, want: 1},
		{name: "database url not supported", config: "database_url: mysql://localhost/jobs\n", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			lockPath := filepath.Join(dir, "run", "ingest.lock")
			configPath := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.config+"lock_path: "+lockPath+"\n"), 0644))

			if tt.holdLock {
				require.NoError(t, os.MkdirAll(filepath.Dir(lockPath), 0755))
				held := flock.New(lockPath)
				locked, err := held.TryLock()
				require.NoError(t, err)
				require.True(t, locked)
				defer func() { _ = held.Unlock() }()
			}

			args := tt.args
			if args == nil {
				args = []string{"-config", configPath}
			}
			assert.Equal(t, tt.want, run(args))

			if !tt.holdLock {
				after := flock.New(lockPath)
				_ = os.MkdirAll(filepath.Dir(lockPath), 0755)
				locked, err := after.TryLock()
				require.NoError(t, err)
				assert.True(t, locked)
				_ = after.Unlock()
			}
		})
	}
}
