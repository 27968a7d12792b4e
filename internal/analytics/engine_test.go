package analytics

import (
	"testing"
	"time"

	"github.com/newthinker/tradelog/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FillsDefaults(t *testing.T) {
	e := New(Config{}, nil)
	cfg := e.Config()

	assert.Equal(t, "INR", cfg.AccountCurrency)
	assert.Equal(t, 10000.0, cfg.StartingBalance)
	assert.Equal(t, 10000, cfg.Simulations)
	assert.Equal(t, time.Local, cfg.Location)
}

func TestWithAccountCurrency(t *testing.T) {
	e := newTestEngine()

	same, err := e.WithAccountCurrency("")
	require.NoError(t, err)
	assert.Same(t, e, same)
	same, err = e.WithAccountCurrency("usd")
	require.NoError(t, err)
	assert.Same(t, e, same)

	eur, err := e.WithAccountCurrency(" eur ")
	require.NoError(t, err)
	assert.Equal(t, "EUR", eur.Config().AccountCurrency)
	assert.Equal(t, "USD", e.Config().AccountCurrency, "receiver unchanged")
	assert.Equal(t, e.Config().StartingBalance, eur.Config().StartingBalance)
}

func TestWithAccountCurrency_UnknownCode(t *testing.T) {
	e := newTestEngine()

	got, err := e.WithAccountCurrency("xyz")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
	assert.Equal(t, "USD", e.Config().AccountCurrency)
}
