package cache

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/dbehnke/dstar-gateway/pkg/database"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func openDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(database.Config{Path: filepath.Join(t.TempDir(), "cache.db")}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFindRepeaterThroughHost(t *testing.T) {
	c := New(nil, testLogger())
	require.NoError(t, c.AddHost(gateway.RepeaterEntry{Repeater: "XRF001", Address: "10.0.0.1", Protocol: dstar.ProtocolDExtra}, false))

	e, ok := c.FindRepeater("XRF001 A")
	require.True(t, ok)
	assert.Equal(t, "XRF001 A", e.Repeater)
	assert.Equal(t, "XRF001 G", e.Gateway)
	assert.Equal(t, "10.0.0.1", e.Address)
	assert.Equal(t, dstar.ProtocolDExtra, e.Protocol)

	_, ok = c.FindRepeater("XRF002 A")
	assert.False(t, ok)
}

func TestRepeaterEntryWinsOverHost(t *testing.T) {
	c := New(nil, testLogger())
	require.NoError(t, c.AddHost(gateway.RepeaterEntry{Repeater: "GB7YY", Address: "10.0.0.1", Protocol: dstar.ProtocolDCS}, false))
	c.AddRepeater(gateway.RepeaterEntry{Repeater: "GB7YY  B", Gateway: "GB7YY  G", Address: "10.0.0.2", Protocol: dstar.ProtocolNone})

	e, ok := c.FindRepeater("GB7YY  B")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", e.Address)

	e, ok = c.FindRepeater("GB7YY  C")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", e.Address)
}

func TestAddHostRejectsBlank(t *testing.T) {
	c := New(nil, testLogger())
	assert.Error(t, c.AddHost(gateway.RepeaterEntry{Repeater: "  "}, false))
}

func TestFindUser(t *testing.T) {
	c := New(nil, testLogger())
	require.NoError(t, c.AddUser(gateway.UserEntry{User: "M0ABC", Repeater: "GB7YY  B", Gateway: "GB7YY  G", Address: "10.0.0.3"}))

	e, ok := c.FindUser("M0ABC   ")
	require.True(t, ok)
	assert.Equal(t, "GB7YY  B", e.Repeater)

	_, ok = c.FindUser("G4XYZ")
	assert.False(t, ok)
}

func TestReplaceHosts(t *testing.T) {
	c := New(nil, testLogger())
	require.NoError(t, c.AddHost(gateway.RepeaterEntry{Repeater: "REF001", Address: "1.1.1.1", Protocol: dstar.ProtocolDPlus}, false))
	require.NoError(t, c.AddHost(gateway.RepeaterEntry{Repeater: "XRF001", Address: "2.2.2.2", Protocol: dstar.ProtocolDExtra}, false))

	require.NoError(t, c.ReplaceHosts(dstar.ProtocolDPlus, []gateway.RepeaterEntry{
		{Repeater: "REF002", Address: "1.1.1.2"},
	}))

	_, ok := c.FindRepeater("REF001 C")
	assert.False(t, ok, "old dplus host should be gone")

	e, ok := c.FindRepeater("REF002 C")
	require.True(t, ok)
	assert.Equal(t, dstar.ProtocolDPlus, e.Protocol)

	_, ok = c.FindRepeater("XRF001 A")
	assert.True(t, ok, "other protocols are untouched")

	hosts, repeaters, users := c.Counts()
	assert.Equal(t, 2, hosts)
	assert.Zero(t, repeaters)
	assert.Zero(t, users)
}

func TestWriteThroughAndLoad(t *testing.T) {
	db := openDB(t)

	c := New(db, testLogger())
	require.NoError(t, c.AddHost(gateway.RepeaterEntry{Repeater: "DCS001", Address: "3.3.3.3", Protocol: dstar.ProtocolDCS}, true))
	require.NoError(t, c.AddUser(gateway.UserEntry{User: "M0ABC", Repeater: "GB7YY  B", Gateway: "GB7YY  G", Address: "10.0.0.3"}))

	fresh := New(db, testLogger())
	require.NoError(t, fresh.Load())

	e, ok := fresh.FindRepeater("DCS001 C")
	require.True(t, ok)
	assert.Equal(t, "3.3.3.3", e.Address)

	u, ok := fresh.FindUser("M0ABC")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.3", u.Address)
}

func TestReplaceHostsKeepsLocked(t *testing.T) {
	db := openDB(t)
	c := New(db, testLogger())

	require.NoError(t, c.AddHost(gateway.RepeaterEntry{Repeater: "DCS001", Address: "192.168.0.1", Protocol: dstar.ProtocolDCS}, true))
	require.NoError(t, c.ReplaceHosts(dstar.ProtocolDCS, []gateway.RepeaterEntry{
		{Repeater: "DCS001", Address: "4.4.4.4"},
		{Repeater: "DCS002", Address: "4.4.4.5"},
	}))

	e, ok := c.FindRepeater("DCS001 A")
	require.True(t, ok)
	assert.Equal(t, "192.168.0.1", e.Address)

	e, ok = c.FindRepeater("DCS002 A")
	require.True(t, ok)
	assert.Equal(t, "4.4.4.5", e.Address)
}

func TestLoadWithoutDatabase(t *testing.T) {
	c := New(nil, testLogger())
	assert.NoError(t, c.Load())
}
