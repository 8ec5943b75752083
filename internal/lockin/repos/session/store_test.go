package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/lockin/internal/lockin/common/clock"
	"github.com/haukened/lockin/internal/lockin/common/log"
	"github.com/haukened/lockin/internal/lockin/domain"
	"github.com/haukened/lockin/internal/lockin/gateways/fsflag"
	"github.com/haukened/lockin/internal/lockin/services/signer"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store *Store
	clock *clock.MockClock
	flag  *fsflag.Memory
	path  string
	priv  bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := signer.DeriveKey("test-machine")
	require.NoError(t, err)

	f := &fixture{
		clock: &clock.MockClock{CurrentTime: t0},
		flag:  fsflag.NewMemory(),
		path:  filepath.Join(t.TempDir(), "lockin", "session.json"),
		priv:  true,
	}
	f.store = New(Options{
		Path:       f.path,
		Signer:     signer.New(key),
		Clock:      f.clock,
		Logger:     log.NewNoopLogger(),
		Flag:       f.flag,
		Privileged: func() bool { return f.priv },
	})
	return f
}

func testSet() domain.BlockSet {
	return domain.NewBlockSet([]string{"reddit.com", "www.reddit.com"}, []string{"Discord"})
}

func TestCreateLoad_RoundTrip(t *testing.T) {
	f := newFixture(t)

	created, err := f.store.Create("deep-work", testSet(), 90*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, t0, created.Start)
	assert.Equal(t, int64(5400), created.DurationSeconds)
	assert.NotEmpty(t, created.Signature)

	loaded, ok, err := f.store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.Profile, loaded.Profile)
	assert.Equal(t, created.Domains, loaded.Domains)
	assert.Equal(t, created.Apps, loaded.Apps)
	assert.True(t, created.Start.Equal(loaded.Start))

	on, err := f.flag.IsImmutable(f.path)
	require.NoError(t, err)
	assert.True(t, on, "record must be pinned after create")
}

func TestCreate_RecordShape(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create("deep-work", testSet(), time.Hour)
	require.NoError(t, err)

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"profile", "resolved_domains", "resolved_apps", "start", "duration_seconds", "signature"} {
		assert.Contains(t, raw, key)
	}

	info, err := os.Stat(f.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())
}

func TestCreate_RequiresPrivilege(t *testing.T) {
	f := newFixture(t)
	f.priv = false

	_, err := f.store.Create("deep-work", testSet(), time.Hour)
	assert.ErrorIs(t, err, domain.ErrPrivilege)
	_, statErr := os.Stat(f.path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "no state may be written")
}

func TestCreate_InvalidDuration(t *testing.T) {
	f := newFixture(t)
	for _, d := range []time.Duration{
		0, -time.Minute, 500 * time.Millisecond,
		domain.MaxSessionDuration + time.Second, 1300000 * time.Hour,
	} {
		_, err := f.store.Create("deep-work", testSet(), d)
		assert.ErrorIs(t, err, domain.ErrConfig, d.String())
	}
}

func TestCreate_RefusesWhileActive(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create("deep-work", testSet(), time.Hour)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	_, err = f.store.Create("light", testSet(), time.Hour)
	assert.ErrorIs(t, err, domain.ErrSessionActive)

	// clock set back before the start still counts as running
	f.clock.Set(t0.Add(-time.Hour))
	_, err = f.store.Create("light", testSet(), time.Hour)
	assert.ErrorIs(t, err, domain.ErrSessionActive)

	f.clock.Set(t0.Add(61 * time.Minute))
	replaced, err := f.store.Create("light", testSet(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "light", replaced.Profile)
}

func TestCreate_NoSigner(t *testing.T) {
	f := newFixture(t)
	f.store.signer = nil
	_, err := f.store.Create("deep-work", testSet(), time.Hour)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestLoad_Missing(t *testing.T) {
	f := newFixture(t)
	_, ok, err := f.store.Load()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestLoad_RejectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"duration extended", func(m map[string]any) { m["duration_seconds"] = 99999 }},
		{"start moved", func(m map[string]any) { m["start"] = t0.Add(-2 * time.Hour).Format(time.RFC3339Nano) }},
		{"domain dropped", func(m map[string]any) { m["resolved_domains"] = []string{"reddit.com"} }},
		{"domains reordered", func(m map[string]any) { m["resolved_domains"] = []string{"www.reddit.com", "reddit.com"} }},
		{"apps cleared", func(m map[string]any) { m["resolved_apps"] = []string{} }},
		{"signature removed", func(m map[string]any) { delete(m, "signature") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.store.Create("deep-work", testSet(), time.Hour)
			require.NoError(t, err)

			data, err := os.ReadFile(f.path)
			require.NoError(t, err)
			var raw map[string]any
			require.NoError(t, json.Unmarshal(data, &raw))
			tt.mutate(raw)
			data, err = json.Marshal(raw)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(f.path, data, 0o644))

			_, ok, err := f.store.Load()
			assert.False(t, ok)
			assert.ErrorIs(t, err, domain.ErrIntegrity)
		})
	}
}

func TestLoad_DurationOutOfRange(t *testing.T) {
	for _, d := range []time.Duration{1300000 * time.Hour, domain.MaxSessionDuration + time.Hour} {
		f := newFixture(t)
		// correctly signed, so only the range check can reject it
		sess := domain.NewSession("deep-work", testSet(), t0, d)
		sess.Signature = f.store.signer.Sign(sess)
		require.NoError(t, f.store.write(sess))

		_, ok, err := f.store.Load()
		assert.False(t, ok, d.String())
		assert.ErrorIs(t, err, domain.ErrIntegrity, d.String())
	}
}

func TestCreate_AcceptsMaximumDuration(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create("deep-work", testSet(), domain.MaxSessionDuration)
	require.NoError(t, err)
	_, ok, err := f.store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoad_Garbage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.path), 0o755))
	require.NoError(t, os.WriteFile(f.path, []byte("{not json"), 0o644))

	_, ok, err := f.store.Load()
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create("deep-work", testSet(), time.Hour)
	require.NoError(t, err)

	f.priv = false
	assert.ErrorIs(t, f.store.Delete(), domain.ErrPrivilege)
	_, ok, _ := f.store.Load()
	assert.True(t, ok)

	f.priv = true
	require.NoError(t, f.store.Delete())
	_, ok, err = f.store.Load()
	assert.NoError(t, err)
	assert.False(t, ok)

	// deleting an absent record is fine
	assert.NoError(t, f.store.Delete())
}

func TestProtect_RestoresFlag(t *testing.T) {
	f := newFixture(t)
	repaired, err := f.store.Protect()
	require.NoError(t, err)
	assert.False(t, repaired, "nothing to protect without a record")

	_, err = f.store.Create("deep-work", testSet(), time.Hour)
	require.NoError(t, err)
	repaired, err = f.store.Protect()
	require.NoError(t, err)
	assert.False(t, repaired)

	require.NoError(t, f.flag.ClearImmutable(f.path))
	repaired, err = f.store.Protect()
	require.NoError(t, err)
	assert.True(t, repaired)

	f.flag.SetErr = fsflag.ErrUnsupported
	require.NoError(t, f.flag.ClearImmutable(f.path))
	repaired, err = f.store.Protect()
	assert.NoError(t, err)
	assert.False(t, repaired)

	f.flag.SetErr = errors.New("operation not permitted")
	repaired, err = f.store.Protect()
	assert.ErrorIs(t, err, domain.ErrEnforcement)
	assert.False(t, repaired)
}
