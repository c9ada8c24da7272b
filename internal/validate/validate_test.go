package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fieldOf returns the Field of the *apperror.AppError inside err.
func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected *apperror.AppError, got %v", err)
	require.ErrorIs(t, err, apperror.ErrValidation)
	return appErr.Field
}

func TestFirst_ReportsOnlyFirstFailure(t *testing.T) {
	err := First(
		Required("a", "x"),
		Required("b", ""),
		Required("c", ""),
	)
	require.Error(t, err)
	assert.Equal(t, "b", fieldOf(t, err))
	assert.Equal(t, `"b" is required`, err.Error())

	assert.NoError(t, First())
}

func TestLengthsCountCharacters(t *testing.T) {
	// four characters, eight bytes
	assert.NoError(t, First(MaxLen("name", "пара", 4)))
	assert.Error(t, First(MinLen("name", "пара", 5)))
}

func TestEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"a@x.com", true},
		{"First.Last@Sub.Example.org", true},
		{"no-at-sign.com", false},
		{"a@localhost", false},
		{"a@.com", false},
		{"Alice <a@x.com>", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := First(Email("email", tt.email))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{"strong", "Str0ng!Pass", ""},
		{"empty", "", `"password" is required`},
		{"too short", "S0!a", `"password" length must be at least 8 characters long`},
		{"too long", "Aa1!" + strings.Repeat("x", 23), `"password" length must be less than or equal to 26 characters long`},
		{"no lower", "STR0NG!PASS", `"password" should contain at least 1 lower-cased letter`},
		{"no upper", "str0ng!pass", `"password" should contain at least 1 upper-cased letter`},
		{"no digit", "Strong!Pass", `"password" should contain at least 1 number`},
		{"no symbol", "Str0ngPass1", `"password" should contain at least 1 symbol`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPassword(tt.password)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, "password", fieldOf(t, err))
		})
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		email     string
		password  string
		wantField string
	}{
		{"valid", "alice", "a@x.com", "Str0ng!Pass", ""},
		{"short username", "a", "a@x.com", "Str0ng!Pass", "username"},
		{"long username", strings.Repeat("u", 101), "a@x.com", "Str0ng!Pass", "username"},
		{"short email", "alice", "a@b", "Str0ng!Pass", "email"},
		{"bad email", "alice", "alice-at-x.com", "Str0ng!Pass", "email"},
		{"weak password", "alice", "a@x.com", "password", "password"},
		{"username checked first", "", "bad", "weak", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Register(tt.username, tt.email, tt.password)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantField, fieldOf(t, err))
		})
	}
}

// Login doesn't apply the complexity policy, only a minimum length.
func TestLogin(t *testing.T) {
	assert.NoError(t, Login("a@x.com", "plainpassword"))
	assert.Equal(t, "password", fieldOf(t, Login("a@x.com", "short")))
	assert.Equal(t, "email", fieldOf(t, Login("nope", "plainpassword")))
}

func TestProfileUpdate_OnlyChecksPresentFields(t *testing.T) {
	assert.NoError(t, ProfileUpdate(nil, nil, nil))

	short := "a"
	assert.Equal(t, "username", fieldOf(t, ProfileUpdate(&short, nil, nil)))

	weak := "weak"
	assert.Equal(t, "password", fieldOf(t, ProfileUpdate(nil, &weak, nil)))

	bio := "hello there"
	assert.NoError(t, ProfileUpdate(nil, nil, &bio))
}

func TestNewPost(t *testing.T) {
	assert.NoError(t, NewPost("Go tips", "ten chars or more", "go"))
	assert.Equal(t, "title", fieldOf(t, NewPost("G", "ten chars or more", "go")))
	assert.Equal(t, "description", fieldOf(t, NewPost("Go tips", "short", "go")))
	assert.Equal(t, "category", fieldOf(t, NewPost("Go tips", "ten chars or more", "")))
}

func TestPostUpdate(t *testing.T) {
	assert.NoError(t, PostUpdate(nil, nil, nil))

	empty := ""
	assert.Equal(t, "category", fieldOf(t, PostUpdate(nil, nil, &empty)))
}

func TestCommentAndCategory(t *testing.T) {
	assert.NoError(t, NewComment("post-1", "nice"))
	assert.Equal(t, "postId", fieldOf(t, NewComment("", "nice")))
	assert.Equal(t, "text", fieldOf(t, NewComment("post-1", "")))
	assert.Equal(t, "text", fieldOf(t, CommentText("")))
	assert.Equal(t, "title", fieldOf(t, CategoryTitle("")))
}
