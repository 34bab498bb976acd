package auth

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

func TestExtractTelegramData(t *testing.T) {
	values := url.Values{}
	values.Set("auth_date", "1677649900")
	values.Set("user", `{"id":5060715466,"first_name":"Bob","username":"defi_master"}`)
	values.Set("start_param", "99887766")
	values.Set("hash", "ignored-here")

	data, err := ExtractTelegramData(values.Encode())
	require.NoError(t, err)

	assert.Equal(t, int64(5060715466), data.ID)
	assert.Equal(t, "Bob", data.FirstName)
	assert.Equal(t, "defi_master", data.Username)
	assert.Equal(t, "99887766", data.StartParam)
	assert.Equal(t, time.Unix(1677649900, 0), data.AuthDate)
}

func TestExtractTelegramData_NoStartParam(t *testing.T) {
	values := url.Values{}
	values.Set("auth_date", "1677649900")
	values.Set("user", `{"id":42,"first_name":"Alice"}`)

	data, err := ExtractTelegramData(values.Encode())
	require.NoError(t, err)
	assert.Empty(t, data.StartParam)
	assert.Empty(t, data.Username)
}

func TestExtractTelegramData_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		initData string
	}{
		{name: "missing auth_date", initData: "user=%7B%22id%22%3A1%7D"},
		{name: "missing user payload", initData: "auth_date=1677649900"},
		{name: "garbage user payload", initData: "auth_date=1677649900&user=not-json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractTelegramData(tt.initData)
			assert.Error(t, err)
		})
	}
}

func TestValidateSignedFixture(t *testing.T) {
	const botToken = "12345:test-bot-token"

	initData := initdata.Sign(map[string]string{
		"user":        `{"id":7,"first_name":"Eve","username":"eve"}`,
		"start_param": "1001",
	}, botToken, time.Now())

	assert.NoError(t, initdata.Validate(initData, botToken, 24*time.Hour))
	assert.Error(t, initdata.Validate(initData, "other-token", 24*time.Hour))

	data, err := ExtractTelegramData(initData)
	require.NoError(t, err)
	assert.Equal(t, int64(7), data.ID)
}
