package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor used when callers do not pick one.
	// Roughly 70ms per hash on commodity hardware; doubling per +1.
	DefaultCost = 10
	// MinCost and MaxCost bound the accepted work factor band. Out-of-band
	// values are coerced to DefaultCost rather than rejected.
	MinCost = 4
	MaxCost = 31

	// PasswordMinLength and PasswordMaxLength form the basic length band.
	PasswordMinLength = 8
	PasswordMaxLength = 20

	// DefaultGeneratedLength is the length of generated passwords when the
	// caller does not specify one.
	DefaultGeneratedLength = 16
)

const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "~`!@#$%^&*()-_=+[{]}\\|;:'\",<.>/?"
)

// commonWeakSubstrings are rejected outright by the weak-password check
// when they appear anywhere in the lowercased password.
var commonWeakSubstrings = []string{
	"123456", "123456789", "111111", "000000", "password", "12345678",
	"qwerty", "abc123", "admin", "admin123", "root", "123123", "654321",
	"666666", "888888", "qwerty123", "1qaz2wsx", "asdfgh", "zxcvbn",
}

// Strength classifies a password into one of three levels.
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthMedium
	StrengthStrong
)

// String returns the lowercase name of the strength level.
func (s Strength) String() string {
	switch s {
	case StrengthStrong:
		return "strong"
	case StrengthMedium:
		return "medium"
	default:
		return "weak"
	}
}

// HashPassword hashes the password with the default work factor.
// The result is the 60-byte bcrypt encoding carrying algorithm tag, work
// factor, and a fresh random salt, so two calls with the same input never
// produce the same output.
func HashPassword(rawPassword string) (string, error) {
	return HashPasswordWithCost(rawPassword, DefaultCost)
}

// HashPasswordWithCost hashes the password with an explicit work factor.
// A cost outside [MinCost, MaxCost] is coerced to DefaultCost.
func HashPasswordWithCost(rawPassword string, cost int) (string, error) {
	if strings.TrimSpace(rawPassword) == "" {
		return "", fmt.Errorf("raw password must not be empty")
	}
	if cost < MinCost || cost > MaxCost {
		cost = DefaultCost
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(rawPassword), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hashed), nil
}

// VerifyPassword reports whether rawPassword matches the stored encoding.
// Empty or malformed inputs yield false, never an error; callers cannot
// use this function to distinguish "empty" from "tampered".
func VerifyPassword(rawPassword, encoded string) bool {
	if rawPassword == "" || encoded == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(rawPassword)) == nil
}

// IsBasic reports whether the password length falls inside the basic band.
func IsBasic(password string) bool {
	return len(password) >= PasswordMinLength && len(password) <= PasswordMaxLength
}

// IsMedium reports whether the password sits in the basic band, contains
// both a letter and a digit, and uses only the allowed character set.
func IsMedium(password string) bool {
	if !IsBasic(password) {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case isUpper(r) || isLower(r):
			hasLetter = true
		case isDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

// IsStrong reports whether the password sits in the basic band and contains
// at least one uppercase letter, one lowercase letter, one digit, and one
// character from the special set, using only the allowed character set.
func IsStrong(password string) bool {
	if !IsBasic(password) {
		return false
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case isUpper(r):
			hasUpper = true
		case isLower(r):
			hasLower = true
		case isDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		default:
			return false
		}
	}
	return hasUpper && hasLower && hasDigit && hasSpecial
}

// IsWeak reports whether the password matches a known weak pattern: a
// common substring from the denylist or any character repeated three or
// more times in a row. Empty passwords are weak.
func IsWeak(password string) bool {
	if password == "" {
		return true
	}

	lowered := strings.ToLower(password)
	for _, weak := range commonWeakSubstrings {
		if strings.Contains(lowered, weak) {
			return true
		}
	}

	runes := []rune(password)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 1
		}
	}

	return false
}

// ClassifyStrength returns the strength level of the password. A denylist
// match, a repeated-character run, or a length outside the basic band is
// weak regardless of character classes. Pure function of the input.
func ClassifyStrength(password string) Strength {
	if IsWeak(password) || !IsBasic(password) {
		return StrengthWeak
	}
	if IsStrong(password) {
		return StrengthStrong
	}
	if IsMedium(password) {
		return StrengthMedium
	}
	return StrengthWeak
}

// Evaluation carries the policy classification plus an advisory estimator
// score for client-side strength meters.
type Evaluation struct {
	Strength Strength
	// Score is the zxcvbn 0-4 estimate; advisory only, never gates policy.
	Score int
}

// Evaluate classifies the password and attaches the zxcvbn score.
func Evaluate(password string) Evaluation {
	result := zxcvbn.PasswordStrength(password, nil)
	return Evaluation{
		Strength: ClassifyStrength(password),
		Score:    result.Score,
	}
}

// GeneratePassword returns a random password of DefaultGeneratedLength.
func GeneratePassword() (string, error) {
	return Generate(DefaultGeneratedLength)
}

// Generate returns a random password of the given length that satisfies
// the strong character-class policy by construction: one character from
// each required class, the remainder drawn uniformly from the union, then
// a cryptographically seeded shuffle.
func Generate(length int) (string, error) {
	if length < PasswordMinLength {
		return "", fmt.Errorf("password length must be at least %d", PasswordMinLength)
	}

	chars := make([]byte, 0, length)
	for _, pool := range []string{upperChars, lowerChars, digitChars, specialChars} {
		c, err := randomChar(pool)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	allChars := upperChars + lowerChars + digitChars + specialChars
	for len(chars) < length {
		c, err := randomChar(allChars)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Fisher-Yates with crypto/rand so the seeded class characters do not
	// sit at predictable positions.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

func randomChar(pool string) (byte, error) {
	idx, err := randomInt(len(pool))
	if err != nil {
		return 0, err
	}
	return pool[idx], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("generate random index: %w", err)
	}
	return int(v.Int64()), nil
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
