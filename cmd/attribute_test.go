package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	w, err := parseWindow("2026-03-01", "2026-03-07")
	require.NoError(t, err)
	assert.Equal(t, 7, w.Days())
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestParseWindow_SingleDay(t *testing.T) {
	w, err := parseWindow("2026-03-01", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, w.Days())
}

func TestParseWindow_EndBeforeStart(t *testing.T) {
	_, err := parseWindow("2026-03-07", "2026-03-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before start")
}

func TestParseWindow_BadDate(t *testing.T) {
	_, err := parseWindow("03/01/2026", "2026-03-07")
	require.Error(t, err)
}
