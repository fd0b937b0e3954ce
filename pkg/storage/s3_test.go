package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVideoAndThumbnailKeys(t *testing.T) {
	require.Equal(t, "videos/abc-123.mp4", VideoKey("abc-123"))
	require.Equal(t, "thumbnails/abc-123.png", ThumbnailKey("abc-123"))
}

func TestUserUploadKey(t *testing.T) {
	key := UserUploadKey("u1", "My Demo Video!", "tok42", ".mp4")
	require.Equal(t, "users/u1/my-demo-video-tok42.mp4", key)
}

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  spaced  out  ", "spaced-out"},
		{"already-clean", "already-clean"},
		{"sp3c!@l ch@rs##", "sp3c-l-ch-rs"},
		{"", "untitled"},
		{"!!!", "untitled"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, SanitizeTitle(tc.in), "input %q", tc.in)
	}
}
