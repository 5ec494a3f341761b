// internal/config/config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essg/internal/apperr"
)

const validINI = `
[SETUP]
bin_length = 60
lta_length = 600
sta_length = 120
m = 1.0
b = 0.0
detection_threshold = 3.0
trigger_reset = 300
bin_load_delay = 15
max_words = 20
filter_terms = rt|giveaway

[LOGGING]
level = info
file = /var/log/quaketweetd/quaketweetd.log

[DATABASE]
host = localhost
port = 5432
user = quaketweetd
password = secret
database = essg
ssl_mode = disable
max_open_conns = 10
max_idle_conns = 2
max_lifetime = 3600

[ESRI]
client_id = id
client_secret = secret
token_url = https://example.com/token
geocode_url = https://example.com/geocode
reverse_url = https://example.com/reverse

[MAIL]
from = alerts@example.com
subject_tag = [EARTHQUAKE]
detection_list = ops@example.com,oncall@example.com
dispatcher = /usr/sbin/sendmail
`

func writeTempINI(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeTempINI(t, validINI)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Setup.BinLength)
	assert.Equal(t, 20, cfg.Setup.MaxWords)
	assert.Equal(t, []string{"rt", "giveaway"}, cfg.Setup.FilterTerms)
	assert.Equal(t, "quaketweetd", cfg.Database.User)
	assert.Equal(t, []string{"ops@example.com", "oncall@example.com"}, cfg.Mail.DetectionList)
	assert.False(t, cfg.Ops.Enabled)
	assert.False(t, cfg.NATS.Enabled)
}

func TestLoad_MissingKeyIsConfigError(t *testing.T) {
	body := validINI // copy and corrupt the SETUP section
	broken := removeLine(body, "bin_length = 60")
	path := writeTempINI(t, broken)

	_, err := Load(path)
	require.Error(t, err)

	var cerr *apperr.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "SETUP", cerr.Section)
	assert.Equal(t, "bin_length", cerr.Key)
}

func TestLoad_STALengthMustBeLessThanLTALength(t *testing.T) {
	body := replaceLine(validINI, "sta_length = 120", "sta_length = 600")
	path := writeTempINI(t, body)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_BinLengthMustDivideSTAAndLTA(t *testing.T) {
	body := replaceLine(validINI, "sta_length = 120", "sta_length = 125")
	path := writeTempINI(t, body)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_OptionalSectionsEnableWhenPresent(t *testing.T) {
	body := validINI + "\n[OPS]\nhost = 0.0.0.0\nport = 9090\n\n[NATS]\nurl = nats://127.0.0.1:4222\n"
	path := writeTempINI(t, body)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Ops.Enabled)
	assert.Equal(t, 9090, cfg.Ops.Port)
	assert.True(t, cfg.NATS.Enabled)
}

func removeLine(body, line string) string {
	return replaceLine(body, line, "")
}

func replaceLine(body, old, new string) string {
	out := make([]byte, 0, len(body))
	for _, l := range splitLines(body) {
		if l == old {
			if new != "" {
				out = append(out, new...)
				out = append(out, '\n')
			}
			continue
		}
		out = append(out, l...)
		out = append(out, '\n')
	}
	return string(out)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
