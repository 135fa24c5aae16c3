package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", c.Env)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, "none", c.Journal.Driver)
	assert.Equal(t, 168*time.Hour, c.Journal.Retention)
	assert.Equal(t, "@every 1h", c.Journal.PruneSchedule)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("JOURNAL_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("JOURNAL_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidRetention(t *testing.T) {
	t.Setenv("JOURNAL_RETENTION", "lots")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_AllowedIDs(t *testing.T) {
	t.Setenv("TELEGRAM_ALLOWED_IDS", "1,2, 3")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, c.Telegram.AllowedIDs)
}

func TestParseReminders(t *testing.T) {
	reminders, err := ParseReminders("30=kettle off, 60=stand up")
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, Reminder{Delay: 30, Message: "kettle off"}, reminders[0])
	assert.Equal(t, Reminder{Delay: 60, Message: "stand up"}, reminders[1])
}

func TestParseReminders_Empty(t *testing.T) {
	reminders, err := ParseReminders("")
	require.NoError(t, err)
	assert.Nil(t, reminders)
}

func TestParseReminders_Invalid(t *testing.T) {
	for _, s := range []string{"kettle", "=kettle", "0=kettle", "x=kettle", "30="} {
		_, err := ParseReminders(s)
		assert.Error(t, err, "input %q", s)
	}
}
