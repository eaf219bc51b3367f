package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/surveystack/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "classify", "balidreams.com", "random7742.net")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "balidreams.com\ttravel\t(keyword \"bali\")", lines[0])
	assert.Equal(t, "random7742.net\tgeneral", lines[1])
}

func TestTopicCommand(t *testing.T) {
	out, err := run(t, "topic", "coffee-lovers-survey.com")
	require.NoError(t, err)
	assert.Equal(t, "coffee-lovers-survey.com\tCoffee lovers\n", out)
}

func TestDeriveCommand(t *testing.T) {
	out, err := run(t, "derive", "WWW.GolfPoll.com")
	require.NoError(t, err)

	var cfg domain.TenantConfig
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "sports", cfg.Vertical)
	assert.Equal(t, "Golf", cfg.Topic)

	_, err = run(t, "derive", "   ")
	assert.Error(t, err)
}

func TestVerticalsCommand(t *testing.T) {
	out, err := run(t, "verticals")
	require.NoError(t, err)
	keys := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "travel", keys[0])
	assert.Contains(t, keys, "general")
}

func TestCommandArgs(t *testing.T) {
	_, err := run(t, "classify")
	assert.Error(t, err)
	_, err = run(t, "derive", "a.com", "b.com")
	assert.Error(t, err)
}

func TestParseOverrides(t *testing.T) {
	got, err := parseOverrides([]string{"store=true", "blog=off", "impact=0"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"store": true, "blog": false, "impact": false}, got)

	_, err = parseOverrides([]string{"store"})
	assert.Error(t, err)
	_, err = parseOverrides([]string{"store=maybe"})
	assert.Error(t, err)
}
