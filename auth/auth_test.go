package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MonMotDePasseTr0pSûr!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Negative comparison (wrong password)
	match, err = ComparePassword("MauvaisMDP", hash)
	req.NoError(err)
	req.False(match)
}

func TestSignupValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     SignupRequest
		wantErr bool
	}{
		{"Valid request", SignupRequest{"Alice Example", "test@example.com", "ComplexPass123!"}, false},
		{"Invalid email", SignupRequest{"Alice Example", "notanemail", "ComplexPass123!"}, true},
		{"Missing full name", SignupRequest{"", "test@example.com", "ComplexPass123!"}, true},
		{"Password too short", SignupRequest{"Alice Example", "test@example.com", "Short1!"}, true},
		{"Missing digit", SignupRequest{"Alice Example", "test@example.com", "NoDigitPassword!"}, true},
		{"Missing special char", SignupRequest{"Alice Example", "test@example.com", "NoSpecialChar123"}, true},
		{"Missing uppercase", SignupRequest{"Alice Example", "test@example.com", "nouppercase123!"}, true},
		{"Password too long (edge case)", SignupRequest{"Alice Example", "test@example.com", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignup(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestLoginValidation(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateLogin(LoginRequest{Email: "test@example.com", Password: "whatever"}))
	req.Error(ValidateLogin(LoginRequest{Email: "notanemail", Password: "whatever"}))
	req.Error(ValidateLogin(LoginRequest{Email: "test@example.com", Password: ""}))
}

func TestGenerateAndValidateToken(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-42", time.Minute)
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("user-42", claims.UserID)
}

func TestValidateToken_Expired(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-42", -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func TestValidateToken_Garbage(t *testing.T) {
	req := require.New(t)

	_, err := ValidateToken("not.a.token")
	req.Error(err)
}

// BenchmarkHashPassword measures the CPU/RAM impact of the argon2id settings
func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
