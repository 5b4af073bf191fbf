package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndParseToken(t *testing.T) {
	token, expireAt, err := GenerateToken(testSecret, "user-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *expireAt, time.Second)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseToken_Invalid(t *testing.T) {
	token, _, err := GenerateToken(testSecret, "user-1", RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("another-secret-another-secret-xx", token)
	assert.Error(t, err)

	expired, _, err := GenerateToken(testSecret, "user-1", RoleUser, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired)
	assert.Error(t, err)

	_, err = ParseToken(testSecret, "not-a-token")
	assert.Error(t, err)
}

func TestPagination_Normalize(t *testing.T) {
	p := Pagination{}
	offset, limit := p.Normalize(UsageHistoryBounds)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 1, p.Page)

	p = Pagination{Page: 3, Limit: 500}
	offset, limit = p.Normalize(UsageHistoryBounds)
	assert.Equal(t, 100, offset)
	assert.Equal(t, 50, limit)

	p = Pagination{Page: 2, Limit: 500}
	_, limit = p.Normalize(PageBounds{DefaultLimit: 10})
	assert.Equal(t, 500, limit)
}

func TestNewPageResult(t *testing.T) {
	p := Pagination{Page: 2, Limit: 5}
	assert.True(t, NewPageResult(nil, 11, p).HasMore)
	assert.False(t, NewPageResult(nil, 10, p).HasMore)
}
