package util

import (
	"bytes"
	"dsa_hub_backend/internal/model"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		url string
		id  string
		ok  bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://vimeo.com/123456", "", false},
		{"https://www.youtube.com/watch?v=short", "", false},
		{"ftp://youtu.be/dQw4w9WgXcQ", "", false},
	}
	for _, tt := range tests {
		id, ok := YouTubeVideoID(tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.id, id, tt.url)
	}
}

func TestValidateMimeType(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%some bytes")
	mime, err := ValidateMimeType(bytes.NewReader(pdf), []string{MimePDF})
	require.NoError(t, err)
	assert.Equal(t, MimePDF, mime)

	_, err = ValidateMimeType(bytes.NewReader([]byte("plain text")), []string{MimeImage})
	assert.Error(t, err)

	assert.True(t, MimeAllowed("video/mp4; codecs=avc1", []string{"video/mp4"}))
	assert.True(t, HasExtension("Lecture.MP4", AllowedVideoExtensions))
}

func TestParseProbe(t *testing.T) {
	out := `{"streams":[{"codec_type":"video","width":1280,"height":720},{"codec_type":"audio"}],
	"format":{"duration":"93.5","size":"1024","format_name":"mov,mp4,m4a"}}`
	info, err := parseProbe(out, 7)
	require.NoError(t, err)
	assert.Equal(t, 93.5, info.Duration)
	assert.Equal(t, 1280, info.Width)
	assert.True(t, info.HasAudio)
	assert.Equal(t, "mov", info.Format)
	assert.Equal(t, int64(1024), info.Size)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "数据", Truncate("数据结构", 2))
	assert.Equal(t, "abc", Truncate("abc", 10))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 3, ParseIntDefault("3", 1))
	assert.Equal(t, 1, ParseIntDefault("", 1))
	assert.Equal(t, 1, ParseIntDefault("three", 1))
}

func TestJWT(t *testing.T) {
	user := &model.User{Username: "ada", Email: "ada@example.com"}
	user.ID = 42

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)
	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	// 其他签发方的 token 不被接受
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}
